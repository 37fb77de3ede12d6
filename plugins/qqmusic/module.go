package qqmusic

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/service"
)

// Module implements the service module interface for QQ Music.
type Module struct {
	client *Client
	log    grab.Logger
}

func NewModule(client *Client, log grab.Logger) *Module {
	return &Module{client: client, log: log}
}

func (m *Module) Name() string           { return "qqmusic" }
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

const (
	songMidKey  = "song_mid"
	albumMidKey = "album_mid"
)

// GetTrack retrieves track metadata. The song mid rides along in the
// download and lyrics bags since every follow-up endpoint keys on it.
func (m *Module) GetTrack(ctx context.Context, trackID string, _ service.Params) (*service.TrackMetadata, error) {
	detail, err := m.client.SongDetail(ctx, trackID)
	if err != nil {
		return nil, err
	}

	mid := strings.TrimSpace(detail.Mid)
	if mid == "" {
		return nil, service.NewNotFoundError("qqmusic", "track", trackID)
	}

	name := strings.TrimSpace(detail.Title)
	if name == "" {
		name = strings.TrimSpace(detail.Name)
	}

	artists := make([]string, 0, len(detail.Singer))
	artistID := ""
	for _, singer := range detail.Singer {
		if singer.Name != "" {
			artists = append(artists, singer.Name)
		}
		if artistID == "" && singer.Mid != "" {
			artistID = singer.Mid
		}
	}

	albumName := strings.TrimSpace(detail.Album.Title)
	if albumName == "" {
		albumName = strings.TrimSpace(detail.Album.Name)
	}
	albumMid := strings.TrimSpace(detail.Album.Mid)

	meta := &service.TrackMetadata{
		ID:          mid,
		Name:        name,
		Artists:     artists,
		ArtistID:    artistID,
		Album:       albumName,
		AlbumID:     albumMid,
		Duration:    detail.Interval,
		TrackNumber: detail.IndexAlbum,
		DiscNumber:  detail.IndexCD,
		ReleaseYear: parseYear(detail.TimePublic),
		CoverURL:    albumCoverURL(albumMid, 0),

		// The delivered format depends on the tier selected at download
		// time; the retrieval result corrects this prediction.
		Codec: service.CodecMP3,

		DownloadExtra: service.Params{songMidKey: mid},
		LyricsExtra:   service.Params{songMidKey: mid},
	}
	if albumMid != "" {
		meta.CoverExtra = service.Params{albumMidKey: albumMid}
	}
	return meta, nil
}

// GetAlbum retrieves album metadata with its track listing.
func (m *Module) GetAlbum(ctx context.Context, albumID string, _ service.Params) (*service.AlbumMetadata, error) {
	data, err := m.client.AlbumSongs(ctx, albumID)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, 0, len(data.Songs))
	for _, song := range data.Songs {
		if id := songID(song); id != "" {
			trackIDs = append(trackIDs, id)
		}
	}
	if len(trackIDs) == 0 {
		return nil, service.NewNotFoundError("qqmusic", "album", albumID)
	}

	first := data.Songs[0]
	name := strings.TrimSpace(first.AlbumName)
	if name == "" {
		name = strings.TrimSpace(first.Album.Name)
	}
	mid := data.Mid
	if mid == "" {
		mid = strings.TrimSpace(first.AlbumMID)
	}
	if mid == "" {
		mid = strings.TrimSpace(first.Album.Mid)
	}

	artistNames := make([]string, 0, len(first.Singer))
	artistID := ""
	for _, singer := range first.Singer {
		if singer.Name != "" {
			artistNames = append(artistNames, singer.Name)
		}
		if artistID == "" && singer.Mid != "" {
			artistID = singer.Mid
		}
	}

	return &service.AlbumMetadata{
		ID:       data.ID,
		Name:     name,
		Artist:   strings.Join(artistNames, "/"),
		ArtistID: artistID,
		TrackIDs: trackIDs,
		CoverURL: albumCoverURL(mid, 0),
	}, nil
}

// GetPlaylist retrieves playlist metadata with its track listing.
func (m *Module) GetPlaylist(ctx context.Context, playlistID string, _ service.Params) (*service.PlaylistMetadata, error) {
	data, err := m.client.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	trackIDs := make([]string, 0, len(data.Songs))
	for _, song := range data.Songs {
		if id := songID(song); id != "" {
			trackIDs = append(trackIDs, id)
		}
	}

	id := playlistID
	if data.ID != 0 {
		id = strconv.FormatInt(data.ID, 10)
	}

	return &service.PlaylistMetadata{
		ID:          id,
		Name:        data.Name,
		Creator:     data.Creator,
		TrackIDs:    trackIDs,
		CoverURL:    data.CoverURL,
		Description: data.Desc,
	}, nil
}

// GetArtist is not available: the gateways this client speaks expose no
// discography listing.
func (m *Module) GetArtist(_ context.Context, req service.ArtistInfoRequest) (*service.ArtistMetadata, error) {
	return nil, service.NewUnsupportedError("qqmusic", "artist")
}

// Download resolves the stream URL for a track: pick the best available
// quality tier at or below the requested one, then exchange it for a vkey
// stream path.
func (m *Module) Download(ctx context.Context, req service.DownloadRequest) (*service.DownloadResult, error) {
	songMid, _ := req.Extra.String(songMidKey)
	if songMid == "" {
		songMid = req.TrackID
	}

	info, err := m.client.FileInfo(ctx, songMid)
	if err != nil {
		return nil, err
	}
	mediaMid := strings.TrimSpace(info.MediaMid)
	if mediaMid == "" {
		mediaMid = songMid
	}

	profile := selectProfile(req.Quality, info)
	if profile == nil {
		return nil, service.NewUnavailableError("qqmusic", "track", req.TrackID)
	}

	purl, err := m.client.VKey(ctx, songMid, mediaMid, profile.code, profile.ext)
	if err != nil {
		return nil, err
	}

	return &service.DownloadResult{
		URL:         streamURL(purl),
		Size:        profile.size(info),
		ActualCodec: profile.codec,
	}, nil
}

// Search searches tracks by keyword.
func (m *Module) Search(ctx context.Context, mediaType service.MediaType, query string, limit int) ([]service.SearchResult, error) {
	if mediaType != service.MediaTrack {
		return nil, service.NewUnsupportedError("qqmusic", mediaType.String()+" search")
	}

	songs, err := m.client.SearchSongs(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	results := make([]service.SearchResult, 0, len(songs))
	for _, song := range songs {
		id := songID(song)
		if id == "" {
			continue
		}
		artists := make([]string, 0, len(song.Singer))
		for _, singer := range song.Singer {
			if singer.Name != "" {
				artists = append(artists, singer.Name)
			}
		}
		results = append(results, service.SearchResult{
			ID:       id,
			Name:     songName(song),
			Artists:  artists,
			Duration: song.Interval,
		})
	}
	return results, nil
}

// GetLyrics retrieves lyrics. The endpoint serves timestamped LRC; the
// embedded variant is the same text with timestamps stripped.
func (m *Module) GetLyrics(ctx context.Context, trackID string, extra service.Params) (*service.LyricsInfo, error) {
	songMid, _ := extra.String(songMidKey)
	if songMid == "" {
		detail, err := m.client.SongDetail(ctx, trackID)
		if err != nil {
			return nil, err
		}
		songMid = strings.TrimSpace(detail.Mid)
	}
	if songMid == "" {
		return nil, service.NewNotFoundError("qqmusic", "lyrics", trackID)
	}

	lyric, _, err := m.client.Lyrics(ctx, songMid)
	if err != nil {
		return nil, err
	}
	lyric = strings.TrimSpace(lyric)
	if lyric == "" {
		return nil, service.NewUnavailableError("qqmusic", "lyrics", trackID)
	}

	return &service.LyricsInfo{
		Embedded: stripTimestamps(lyric),
		Synced:   lyric,
	}, nil
}

// GetCover serves album art from the image host, which bakes the resolution
// into the path.
func (m *Module) GetCover(ctx context.Context, trackID string, opts service.CoverOptions, extra service.Params) (*service.CoverInfo, error) {
	albumMid, _ := extra.String(albumMidKey)
	if albumMid == "" {
		detail, err := m.client.SongDetail(ctx, trackID)
		if err != nil {
			return nil, err
		}
		albumMid = strings.TrimSpace(detail.Album.Mid)
	}
	if albumMid == "" {
		return nil, service.NewNotFoundError("qqmusic", "cover", trackID)
	}

	return &service.CoverInfo{
		URL: albumCoverURL(albumMid, opts.Resolution),
		Ext: "jpg",
	}, nil
}

// qualityProfile is one QQ Music quality tier: the file prefix code sent to
// the vkey endpoint and the size field reporting its availability.
type qualityProfile struct {
	quality service.Quality
	code    string
	ext     string
	codec   service.Codec
	size    func(*fileInfo) int64
}

// profiles are ordered best first; selection falls through to lower tiers
// when the requested one does not exist, then back up.
var profiles = []qualityProfile{
	{service.QualityHiRes, "RS01", "flac", service.CodecFLAC, func(i *fileInfo) int64 { return i.SizeHiRes }},
	{service.QualityLossless, "F000", "flac", service.CodecFLAC, func(i *fileInfo) int64 { return i.SizeFlac }},
	{service.QualityHigh, "M800", "mp3", service.CodecMP3, func(i *fileInfo) int64 { return i.Size320 }},
	{service.QualityStandard, "M500", "mp3", service.CodecMP3, func(i *fileInfo) int64 { return i.Size128 }},
}

func selectProfile(quality service.Quality, info *fileInfo) *qualityProfile {
	if info == nil {
		return nil
	}
	start := len(profiles) - 1
	for i, p := range profiles {
		if p.quality == quality {
			start = i
			break
		}
	}
	for i := start; i < len(profiles); i++ {
		if profiles[i].size(info) > 0 {
			return &profiles[i]
		}
	}
	for i := start - 1; i >= 0; i-- {
		if profiles[i].size(info) > 0 {
			return &profiles[i]
		}
	}
	return nil
}

func streamURL(purl string) string {
	trimmed := strings.TrimSpace(purl)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return "https://ws.stream.qqmusic.qq.com/" + trimmed
}

func albumCoverURL(albumMid string, resolution int) string {
	albumMid = strings.TrimSpace(albumMid)
	if albumMid == "" {
		return ""
	}
	if resolution > 0 {
		return fmt.Sprintf("https://y.gtimg.cn/music/photo_new/T002R%dx%dM000%s.jpg", resolution, resolution, albumMid)
	}
	return "https://y.gtimg.cn/music/photo_new/T002M000" + albumMid + ".jpg"
}

func songID(song listedSong) string {
	if mid := strings.TrimSpace(song.SongMID); mid != "" {
		return mid
	}
	if mid := strings.TrimSpace(song.Mid); mid != "" {
		return mid
	}
	if song.SongID != 0 {
		return strconv.FormatInt(song.SongID, 10)
	}
	if song.ID != 0 {
		return strconv.FormatInt(song.ID, 10)
	}
	return ""
}

func songName(song listedSong) string {
	for _, name := range []string{song.SongName, song.Title, song.Name} {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var timestampRe = regexp.MustCompile(`\[\d{1,2}:\d{1,2}(?:[.:]\d{1,3})?\]`)

func stripTimestamps(lrc string) string {
	lines := strings.Split(lrc, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(timestampRe.ReplaceAllString(line, ""))
		if stripped == "" && strings.TrimSpace(line) != "" {
			continue
		}
		if strings.HasPrefix(stripped, "[") && strings.HasSuffix(stripped, "]") {
			continue
		}
		out = append(out, stripped)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var yearRe = regexp.MustCompile(`\d{4}`)

func parseYear(s string) int {
	match := yearRe.FindString(s)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}
