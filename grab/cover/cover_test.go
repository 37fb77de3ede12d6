package cover

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/download"
	"github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
)

func solidImage(c color.RGBA, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestDiffIdenticalArtwork(t *testing.T) {
	red := color.RGBA{R: 200, G: 30, B: 30, A: 255}
	small := decodePNG(t, solidImage(red, 50))
	large := decodePNG(t, solidImage(red, 400))

	if d := Diff(small, large, 100); d > 1.0 {
		t.Fatalf("same artwork at different resolutions scored %f", d)
	}
}

func TestDiffDistinctArtwork(t *testing.T) {
	red := decodePNG(t, solidImage(color.RGBA{R: 220, A: 255}, 100))
	blue := decodePNG(t, solidImage(color.RGBA{B: 220, A: 255}, 100))

	if d := Diff(red, blue, 100); d < 100 {
		t.Fatalf("distinct artwork scored only %f", d)
	}
}

// imageServer serves named PNG assets and counts requests per asset.
type imageServer struct {
	mu     sync.Mutex
	assets map[string][]byte
	hits   map[string]int
	srv    *httptest.Server
}

func newImageServer() *imageServer {
	s := &imageServer{
		assets: make(map[string][]byte),
		hits:   make(map[string]int),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.assets[r.URL.Path]
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))
	return s
}

func (s *imageServer) add(path string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[path] = data
	return s.srv.URL + path
}

func (s *imageServer) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// coverModule is a minimal module with search and cover support.
type coverModule struct {
	name    string
	results []service.SearchResult
	covers  map[string]map[int]string // trackID -> resolution -> URL
}

func (m *coverModule) Name() string              { return m.name }
func (m *coverModule) SupportsDownload() bool    { return false }
func (m *coverModule) SupportsSearch() bool      { return true }
func (m *coverModule) SupportsLyrics() bool      { return false }
func (m *coverModule) Capabilities() service.Capabilities {
	return service.Capabilities{Search: true, Covers: true}
}

func (m *coverModule) GetTrack(context.Context, string, service.Params) (*service.TrackMetadata, error) {
	return nil, service.ErrUnsupported
}
func (m *coverModule) GetAlbum(context.Context, string, service.Params) (*service.AlbumMetadata, error) {
	return nil, service.ErrUnsupported
}
func (m *coverModule) GetPlaylist(context.Context, string, service.Params) (*service.PlaylistMetadata, error) {
	return nil, service.ErrUnsupported
}
func (m *coverModule) GetArtist(context.Context, service.ArtistInfoRequest) (*service.ArtistMetadata, error) {
	return nil, service.ErrUnsupported
}
func (m *coverModule) Download(context.Context, service.DownloadRequest) (*service.DownloadResult, error) {
	return nil, service.ErrUnsupported
}

func (m *coverModule) Search(_ context.Context, _ service.MediaType, _ string, _ int) ([]service.SearchResult, error) {
	return m.results, nil
}

func (m *coverModule) GetCover(_ context.Context, trackID string, opts service.CoverOptions, _ service.Params) (*service.CoverInfo, error) {
	byRes, ok := m.covers[trackID]
	if !ok {
		return nil, service.ErrNotFound
	}
	url, ok := byRes[opts.Resolution]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &service.CoverInfo{URL: url, Ext: "png"}, nil
}

func newTestResolver(t *testing.T, lookup ModuleLookup, opts config.CoverSettings) *Resolver {
	t.Helper()
	fetcher := download.NewFetcher(download.FetcherOptions{Timeout: 10 * time.Second})
	log := logger.NewWithWriter(&bytes.Buffer{}, "debug")
	return NewResolver(fetcher, lookup, opts, log)
}

func TestResolveBaselineOnly(t *testing.T) {
	srv := newImageServer()
	defer srv.srv.Close()

	red := solidImage(color.RGBA{R: 200, A: 255}, 120)
	baseURL := srv.add("/base.png", red)

	primary := &coverModule{name: "primary"}
	r := newTestResolver(t, nil, config.CoverSettings{
		Main: service.CoverOptions{Ext: "png", Resolution: 1400},
	})

	path, err := r.Resolve(context.Background(), primary, &service.TrackMetadata{
		ID:       "t1",
		Name:     "Song",
		Artists:  []string{"Artist"},
		CoverURL: baseURL,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path == "" {
		t.Fatal("expected a cover path")
	}
}

func TestResolvePrefersFirstMatchingCandidate(t *testing.T) {
	srv := newImageServer()
	defer srv.srv.Close()

	red := color.RGBA{R: 200, G: 10, B: 10, A: 255}
	baseURL := srv.add("/base.png", solidImage(red, 100))
	matchSmall := srv.add("/match_small.png", solidImage(red, 100))
	matchFull := srv.add("/match_full.png", solidImage(red, 600))
	otherSmall := srv.add("/other_small.png", solidImage(color.RGBA{B: 220, A: 255}, 100))

	secondary := &coverModule{
		name: "lossless-source",
		results: []service.SearchResult{
			{ID: "hit1", Name: "Song"},
			{ID: "hit2", Name: "Song (Live)"},
		},
		covers: map[string]map[int]string{
			"hit1": {100: matchSmall, 1400: matchFull},
			"hit2": {100: otherSmall},
		},
	}

	primary := &coverModule{name: "primary"}
	lookup := func(name string) (service.Module, bool) {
		if name == "lossless-source" {
			return secondary, true
		}
		return nil, false
	}

	r := newTestResolver(t, lookup, config.CoverSettings{
		Main:              service.CoverOptions{Ext: "png", Resolution: 1400},
		CompareModule:     "lossless-source",
		CompareThreshold:  22.5,
		CompareResolution: 100,
	})

	path, err := r.Resolve(context.Background(), primary, &service.TrackMetadata{
		ID:       "t1",
		Name:     "Song",
		Artists:  []string{"Artist"},
		CoverURL: baseURL,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if srv.hitCount("/match_full.png") != 1 {
		t.Fatal("matching candidate's full-resolution cover was not fetched")
	}
	// First candidate matched, so the second must never be downloaded.
	if srv.hitCount("/other_small.png") != 0 {
		t.Fatal("later candidate fetched despite earlier match")
	}
	if path == "" {
		t.Fatal("expected a cover path")
	}
}

func TestResolveFallsBackWhenNoCandidateMatches(t *testing.T) {
	srv := newImageServer()
	defer srv.srv.Close()

	baseURL := srv.add("/base.png", solidImage(color.RGBA{R: 200, A: 255}, 100))
	wrongURL := srv.add("/wrong.png", solidImage(color.RGBA{G: 200, A: 255}, 100))

	secondary := &coverModule{
		name:    "lossless-source",
		results: []service.SearchResult{{ID: "hit1", Name: "Song"}},
		covers:  map[string]map[int]string{"hit1": {100: wrongURL}},
	}

	lookup := func(string) (service.Module, bool) { return secondary, true }

	r := newTestResolver(t, lookup, config.CoverSettings{
		Main:              service.CoverOptions{Ext: "png", Resolution: 1400},
		CompareModule:     "lossless-source",
		CompareThreshold:  22.5,
		CompareResolution: 100,
	})

	path, err := r.Resolve(context.Background(), &coverModule{name: "primary"}, &service.TrackMetadata{
		ID:       "t1",
		Name:     "Song",
		Artists:  []string{"Artist"},
		CoverURL: baseURL,
	}, t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if path == "" {
		t.Fatal("expected baseline path on fallback")
	}
	if srv.hitCount("/base.png") == 0 {
		t.Fatal("baseline never fetched")
	}
}
