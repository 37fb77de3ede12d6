package netease

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	marker "github.com/XiaoMengXinX/163KeyMarker"
	"github.com/XiaoMengXinX/Music163Api-Go/types"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/service"
)

// Module implements the service module interface for NetEase Cloud Music.
type Module struct {
	client *Client
	log    grab.Logger
}

func NewModule(client *Client, log grab.Logger) *Module {
	return &Module{client: client, log: log}
}

func (m *Module) Name() string           { return "netease" }
func (m *Module) SupportsDownload() bool { return true }
func (m *Module) SupportsSearch() bool   { return true }
func (m *Module) SupportsLyrics() bool   { return true }

func (m *Module) Capabilities() service.Capabilities {
	return service.Capabilities{
		Download: true,
		Search:   true,
		Lyrics:   true,
		Covers:   true,
		HiRes:    true,
	}
}

// DownloadConvention declares that retrieval needs only the track ID and
// quality tier; the URL is resolved at download time.
func (m *Module) DownloadConvention() service.DownloadConvention {
	return service.ConventionQualityOnly
}

// GetTrack retrieves track metadata. The 163 key marker is attached to the
// download bag when the URL endpoint answers, so tagging can embed it.
func (m *Module) GetTrack(ctx context.Context, trackID string, _ service.Params) (*service.TrackMetadata, error) {
	musicID, err := strconv.Atoi(trackID)
	if err != nil {
		return nil, service.NewNotFoundError("netease", "track", trackID)
	}

	detail, err := m.client.SongDetails(ctx, []int{musicID})
	if err != nil {
		return nil, fmt.Errorf("netease: song detail: %w", err)
	}
	if detail == nil || len(detail.Songs) == 0 {
		return nil, service.NewNotFoundError("netease", "track", trackID)
	}

	song := detail.Songs[0]
	meta := m.trackMetadata(song)

	if urlData, err := m.client.SongURL(ctx, musicID, "standard"); err == nil && len(urlData.Data) > 0 && urlData.Data[0].Url != "" {
		meta.DownloadExtra = service.Params{
			markerExtraKey: marker.CreateMarker(song, urlData.Data[0]),
		}
	} else if err != nil {
		m.log.Debug("netease marker lookup failed", "track", trackID, "error", err)
	}

	return meta, nil
}

// GetAlbum retrieves album metadata with its track listing.
func (m *Module) GetAlbum(ctx context.Context, albumID string, _ service.Params) (*service.AlbumMetadata, error) {
	aid, err := strconv.Atoi(albumID)
	if err != nil {
		return nil, service.NewNotFoundError("netease", "album", albumID)
	}

	detail, err := m.client.AlbumDetail(ctx, aid)
	if err != nil {
		return nil, fmt.Errorf("netease: album detail: %w", err)
	}
	if detail == nil || detail.Album.ID == 0 {
		return nil, service.NewNotFoundError("netease", "album", albumID)
	}

	trackIDs := make([]string, 0, len(detail.Songs))
	for _, song := range detail.Songs {
		if song.Id > 0 {
			trackIDs = append(trackIDs, strconv.Itoa(song.Id))
		}
	}

	artist := strings.TrimSpace(detail.Album.Artist.Name)
	if artist == "" {
		names := make([]string, 0, len(detail.Album.Artists))
		for _, a := range detail.Album.Artists {
			if name := strings.TrimSpace(a.Name); name != "" {
				names = append(names, name)
			}
		}
		artist = strings.Join(names, "/")
	}

	description := strings.TrimSpace(detail.Album.Description)
	if description == "" {
		description = strings.TrimSpace(detail.Album.BriefDesc)
	}

	album := &service.AlbumMetadata{
		ID:          strconv.Itoa(detail.Album.ID),
		Name:        strings.TrimSpace(detail.Album.Name),
		Artist:      artist,
		ArtistID:    strconv.Itoa(detail.Album.Artist.ID),
		TrackIDs:    trackIDs,
		CoverURL:    strings.TrimSpace(detail.Album.PicURL),
		Description: description,
	}
	if detail.Album.PublishTime > 0 {
		album.ReleaseYear = yearOfMillis(detail.Album.PublishTime)
	}
	return album, nil
}

// GetPlaylist retrieves playlist metadata with its track ID listing.
func (m *Module) GetPlaylist(ctx context.Context, playlistID string, _ service.Params) (*service.PlaylistMetadata, error) {
	pid, err := strconv.Atoi(playlistID)
	if err != nil {
		return nil, service.NewNotFoundError("netease", "playlist", playlistID)
	}

	detail, err := m.client.PlaylistDetail(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("netease: playlist detail: %w", err)
	}
	if detail == nil || detail.Playlist.Id == 0 {
		return nil, service.NewNotFoundError("netease", "playlist", playlistID)
	}

	trackIDs := make([]string, 0, len(detail.Playlist.TrackIds))
	for _, item := range detail.Playlist.TrackIds {
		if item.Id > 0 {
			trackIDs = append(trackIDs, strconv.Itoa(item.Id))
		}
	}

	description := ""
	if detail.Playlist.Description != nil {
		switch v := detail.Playlist.Description.(type) {
		case string:
			description = strings.TrimSpace(v)
		default:
			description = strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}

	return &service.PlaylistMetadata{
		ID:          strconv.Itoa(detail.Playlist.Id),
		Name:        detail.Playlist.Name,
		Creator:     detail.Playlist.Creator.Nickname,
		TrackIDs:    trackIDs,
		CoverURL:    detail.Playlist.CoverImgUrl,
		Description: description,
	}, nil
}

// GetArtist is not available: the upstream API package exposes no artist
// discography endpoint.
func (m *Module) GetArtist(_ context.Context, req service.ArtistInfoRequest) (*service.ArtistMetadata, error) {
	return nil, service.NewUnsupportedError("netease", "artist")
}

// Download resolves the retrieval URL for a track at the requested quality.
func (m *Module) Download(ctx context.Context, req service.DownloadRequest) (*service.DownloadResult, error) {
	musicID, err := strconv.Atoi(req.TrackID)
	if err != nil {
		return nil, service.NewNotFoundError("netease", "track", req.TrackID)
	}

	urlData, err := m.client.SongURL(ctx, musicID, qualityLevel(req.Quality))
	if err != nil {
		return nil, fmt.Errorf("netease: song url: %w", err)
	}
	if len(urlData.Data) == 0 || urlData.Data[0].Url == "" {
		return nil, service.NewUnavailableError("netease", "track", req.TrackID)
	}

	data := urlData.Data[0]
	result := &service.DownloadResult{
		URL:  data.Url,
		Size: int64(data.Size),
		MD5:  data.Md5,
	}
	if codec := service.ParseCodec(data.Type); codec != service.CodecUnknown {
		result.ActualCodec = codec
	}
	return result, nil
}

// Search searches tracks by keyword.
func (m *Module) Search(ctx context.Context, mediaType service.MediaType, query string, limit int) ([]service.SearchResult, error) {
	if mediaType != service.MediaTrack {
		return nil, service.NewUnsupportedError("netease", mediaType.String()+" search")
	}
	if limit <= 0 {
		limit = 10
	}

	data, err := m.client.SearchSongs(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("netease: search: %w", err)
	}

	results := make([]service.SearchResult, 0, len(data.Result.Songs))
	for _, song := range data.Result.Songs {
		artists := make([]string, 0, len(song.Artists))
		for _, a := range song.Artists {
			if a.Name != "" {
				artists = append(artists, a.Name)
			}
		}
		results = append(results, service.SearchResult{
			ID:       strconv.Itoa(song.Id),
			Name:     song.Name,
			Artists:  artists,
			Duration: song.Duration / 1000,
		})
	}
	return results, nil
}

// GetLyrics retrieves lyrics; the raw LRC goes to the synced slot and a
// timestamp-stripped rendition to the embedded one.
func (m *Module) GetLyrics(ctx context.Context, trackID string, _ service.Params) (*service.LyricsInfo, error) {
	musicID, err := strconv.Atoi(trackID)
	if err != nil {
		return nil, service.NewNotFoundError("netease", "track", trackID)
	}

	data, err := m.client.Lyric(ctx, musicID)
	if err != nil {
		return nil, fmt.Errorf("netease: lyric: %w", err)
	}

	lrc := strings.TrimSpace(data.Lrc.Lyric)
	if lrc == "" {
		return nil, service.NewUnavailableError("netease", "lyrics", trackID)
	}

	return &service.LyricsInfo{
		Embedded: stripLRCTimestamps(lrc),
		Synced:   lrc,
	}, nil
}

// GetCover serves cover art, using the image host's resize parameter to
// honor the requested resolution.
func (m *Module) GetCover(ctx context.Context, trackID string, opts service.CoverOptions, extra service.Params) (*service.CoverInfo, error) {
	url, _ := extra.String(coverURLKey)
	if url == "" {
		musicID, err := strconv.Atoi(trackID)
		if err != nil {
			return nil, service.NewNotFoundError("netease", "track", trackID)
		}
		detail, err := m.client.SongDetails(ctx, []int{musicID})
		if err != nil {
			return nil, fmt.Errorf("netease: song detail: %w", err)
		}
		if detail == nil || len(detail.Songs) == 0 || detail.Songs[0].Al.PicUrl == "" {
			return nil, service.NewNotFoundError("netease", "cover", trackID)
		}
		url = detail.Songs[0].Al.PicUrl
	}

	if opts.Resolution > 0 {
		url = fmt.Sprintf("%s?param=%dy%d", url, opts.Resolution, opts.Resolution)
	}
	return &service.CoverInfo{URL: url, Ext: "jpg"}, nil
}

const (
	markerExtraKey = "netease_marker"
	coverURLKey    = "cover_url"
)

func (m *Module) trackMetadata(song types.SongDetailData) *service.TrackMetadata {
	artists := make([]string, 0, len(song.Ar))
	artistID := ""
	for _, ar := range song.Ar {
		if ar.Name != "" {
			artists = append(artists, ar.Name)
		}
		if artistID == "" && ar.Id > 0 {
			artistID = strconv.Itoa(ar.Id)
		}
	}

	meta := &service.TrackMetadata{
		ID:       strconv.Itoa(song.Id),
		Name:     song.Name,
		Artists:  artists,
		ArtistID: artistID,
		Album:    song.Al.Name,
		Duration: song.Dt / 1000,
		CoverURL: song.Al.PicUrl,

		// The delivered format depends on the quality tier resolved at
		// download time; the retrieval result corrects this prediction.
		Codec: service.CodecMP3,
	}
	if song.Al.Id != 0 {
		meta.AlbumID = strconv.Itoa(song.Al.Id)
	}
	if song.Al.PicUrl != "" {
		meta.CoverExtra = service.Params{coverURLKey: song.Al.PicUrl}
	}
	return meta
}

// qualityLevel maps the quality tier to NetEase level strings.
func qualityLevel(quality service.Quality) string {
	switch quality {
	case service.QualityStandard:
		return "standard"
	case service.QualityHigh:
		return "higher"
	case service.QualityLossless:
		return "lossless"
	case service.QualityHiRes:
		return "hires"
	default:
		return "standard"
	}
}

// yearOfMillis extracts the year from a millisecond Unix timestamp.
func yearOfMillis(millis int64) int {
	return timeOfMillis(millis).Year()
}
