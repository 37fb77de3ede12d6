package service

import "context"

// Module defines the interface every music service integration must satisfy.
// The design is capability-based: modules advertise optional features through
// Capabilities and the Supports* methods so the orchestration core can degrade
// gracefully when a feature is missing.
//
// Module implementations should be safe for concurrent use by multiple goroutines.
type Module interface {
	// Name returns the module identifier (e.g. "netease", "qobuz").
	// This name should be lowercase and URL-safe.
	Name() string

	// SupportsDownload indicates whether this module can retrieve audio files.
	SupportsDownload() bool

	// SupportsSearch indicates whether this module supports searching.
	SupportsSearch() bool

	// SupportsLyrics indicates whether this module supports fetching lyrics.
	SupportsLyrics() bool

	Capabilities() Capabilities

	// GetTrack retrieves track metadata by ID. The extra bag carries values a
	// parent album or playlist handed down.
	//
	// Returns ErrNotFound if the track doesn't exist.
	GetTrack(ctx context.Context, trackID string, extra Params) (*TrackMetadata, error)

	// GetAlbum retrieves album metadata by ID.
	//
	// Returns ErrNotFound if the album doesn't exist or ErrUnsupported if not supported.
	GetAlbum(ctx context.Context, albumID string, extra Params) (*AlbumMetadata, error)

	// GetPlaylist retrieves playlist metadata by ID.
	//
	// Returns ErrNotFound if the playlist doesn't exist or ErrUnsupported if not supported.
	GetPlaylist(ctx context.Context, playlistID string, extra Params) (*PlaylistMetadata, error)

	// GetArtist retrieves artist metadata. Whether credited album appearances
	// are included is part of the request; modules without that capability
	// ignore the flag.
	//
	// Returns ErrNotFound if the artist doesn't exist or ErrUnsupported if not supported.
	GetArtist(ctx context.Context, req ArtistInfoRequest) (*ArtistMetadata, error)

	// Download resolves the retrieval source for a track. The request is
	// built by BuildDownloadRequest according to the module's declared
	// calling convention.
	//
	// Returns ErrRateLimited when the service throttled the request,
	// ErrUnavailable when the track is permanently not retrievable, or
	// ErrUnsupported if download is not supported by this module.
	Download(ctx context.Context, req DownloadRequest) (*DownloadResult, error)

	// Search searches the given entity type for the query string.
	// The limit parameter controls the maximum number of results to return.
	//
	// Returns ErrUnsupported if search is not supported by this module.
	Search(ctx context.Context, mediaType MediaType, query string, limit int) ([]SearchResult, error)
}

// CoverProvider is implemented by modules that can serve cover art in
// requested variants beyond the URL embedded in track metadata.
type CoverProvider interface {
	// GetCover returns a cover matching the requested options.
	//
	// Returns ErrNotFound if no art exists for the track.
	GetCover(ctx context.Context, trackID string, opts CoverOptions, extra Params) (*CoverInfo, error)
}

// LyricsProvider is implemented by modules that can fetch lyrics.
type LyricsProvider interface {
	// GetLyrics retrieves lyrics for the given track ID.
	//
	// Returns ErrNotFound if the track doesn't exist or ErrUnavailable if
	// lyrics are not available for this track.
	GetLyrics(ctx context.Context, trackID string, extra Params) (*LyricsInfo, error)
}

// CreditsProvider is implemented by modules that expose per-track credits.
type CreditsProvider interface {
	GetCredits(ctx context.Context, trackID string, extra Params) ([]CreditsEntry, error)
}

// URLMatcher is implemented by modules that recognize their own share URLs.
//
// For example, a NetEase implementation might match:
//   - https://music.163.com/#/song?id=1234567
//   - https://music.163.com/#/album?id=1234567
type URLMatcher interface {
	// MatchURL attempts to extract a media reference from a service URL.
	// Returns the reference and true if the URL matches this module's format.
	MatchURL(url string) (MediaReference, bool)
}
