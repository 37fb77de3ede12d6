package service

// Params carries opaque module-specific values between metadata and
// follow-up calls. The orchestration core never inspects its contents.
type Params map[string]any

// Copy returns a shallow copy so callers can extend a Params bag without
// mutating the original.
func (p Params) Copy() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String returns the value for key as a string, with ok reporting presence.
func (p Params) String(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// MediaType identifies what kind of entity a reference points at.
type MediaType int

const (
	MediaTrack MediaType = iota
	MediaAlbum
	MediaPlaylist
	MediaArtist
)

// String returns the string representation of the MediaType enum.
func (t MediaType) String() string {
	switch t {
	case MediaTrack:
		return "track"
	case MediaAlbum:
		return "album"
	case MediaPlaylist:
		return "playlist"
	case MediaArtist:
		return "artist"
	default:
		return "unknown"
	}
}

// MediaReference points at a downloadable entity on a service.
type MediaReference struct {
	Type  MediaType `json:"type"`
	ID    string    `json:"id"`
	Extra Params    `json:"extra,omitempty"`
}

// TrackMetadata is the unified track representation returned by service
// modules. Err, when non-empty, marks a track the service reported as broken
// even though the metadata call itself succeeded; such tracks are treated as
// failed without any retrieval attempt.
type TrackMetadata struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ArtistID    string   `json:"artist_id,omitempty"`
	AlbumArtist string   `json:"album_artist,omitempty"`
	Album       string   `json:"album,omitempty"`
	AlbumID     string   `json:"album_id,omitempty"`

	// Duration is the track length in seconds.
	Duration     int  `json:"duration,omitempty"`
	Explicit     bool `json:"explicit,omitempty"`
	ReleaseYear  int  `json:"release_year,omitempty"`
	TrackNumber  int  `json:"track_number,omitempty"`
	TotalTracks  int  `json:"total_tracks,omitempty"`
	DiscNumber   int  `json:"disc_number,omitempty"`
	TotalDiscs   int  `json:"total_discs,omitempty"`

	Codec      Codec `json:"codec"`
	Bitrate    int   `json:"bitrate,omitempty"`
	BitDepth   int   `json:"bit_depth,omitempty"`
	SampleRate int   `json:"sample_rate,omitempty"`

	Genre string `json:"genre,omitempty"`
	ISRC  string `json:"isrc,omitempty"`
	UPC   string `json:"upc,omitempty"`

	CoverURL         string `json:"cover_url,omitempty"`
	AnimatedCoverURL string `json:"animated_cover_url,omitempty"`
	Description      string `json:"description,omitempty"`

	DownloadExtra Params `json:"download_extra,omitempty"`
	CoverExtra    Params `json:"cover_extra,omitempty"`
	LyricsExtra   Params `json:"lyrics_extra,omitempty"`
	CreditsExtra  Params `json:"credits_extra,omitempty"`

	// Err carries a service-reported availability problem for this track.
	Err string `json:"error,omitempty"`
}

// MainArtist returns the first credited artist, or an empty string.
func (t *TrackMetadata) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// AlbumMetadata is the unified album representation.
type AlbumMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	ArtistID    string `json:"artist_id,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`

	// Duration is the summed track length in seconds.
	Duration int  `json:"duration,omitempty"`
	Explicit bool `json:"explicit,omitempty"`

	// Quality is a service-reported quality descriptor used in album
	// folder templates (e.g. "24bit-96kHz").
	Quality string `json:"quality,omitempty"`

	TrackIDs []string `json:"track_ids"`

	BookletURL       string `json:"booklet_url,omitempty"`
	CoverURL         string `json:"cover_url,omitempty"`
	AnimatedCoverURL string `json:"animated_cover_url,omitempty"`

	// AllTrackCoverURL, when set, overrides per-track cover lookups for
	// every track in the album.
	AllTrackCoverURL string `json:"all_track_cover_url,omitempty"`

	// CoverExt overrides the configured extension for the saved album cover.
	CoverExt    string `json:"cover_ext,omitempty"`
	Description string `json:"description,omitempty"`

	// TrackExtra is forwarded into every track metadata call of this album.
	TrackExtra Params `json:"track_extra,omitempty"`
}

// PlaylistMetadata is the unified playlist representation.
type PlaylistMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Creator     string `json:"creator,omitempty"`
	CreatorID   string `json:"creator_id,omitempty"`
	ReleaseYear int    `json:"release_year,omitempty"`

	Duration int  `json:"duration,omitempty"`
	Explicit bool `json:"explicit,omitempty"`

	TrackIDs []string `json:"track_ids"`

	CoverURL         string `json:"cover_url,omitempty"`
	AnimatedCoverURL string `json:"animated_cover_url,omitempty"`
	CoverExt         string `json:"cover_ext,omitempty"`
	Description      string `json:"description,omitempty"`

	// TrackExtra is forwarded into every track metadata call of this playlist.
	TrackExtra Params `json:"track_extra,omitempty"`
}

// ArtistMetadata is the unified artist representation.
type ArtistMetadata struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	AlbumIDs []string `json:"album_ids"`

	// TrackIDs lists standalone tracks not belonging to the listed albums.
	TrackIDs []string `json:"track_ids,omitempty"`

	// AlbumExtra and TrackExtra are forwarded into follow-up metadata calls.
	AlbumExtra Params `json:"album_extra,omitempty"`
	TrackExtra Params `json:"track_extra,omitempty"`
}

// DownloadResult is what a module returns for a track retrieval request:
// either a URL (with optional headers) for the core to stream, or a
// TempPath the module already materialized on disk.
type DownloadResult struct {
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	TempPath string `json:"temp_path,omitempty"`

	// ActualCodec, when set, corrects the codec predicted by metadata.
	ActualCodec Codec `json:"actual_codec,omitempty"`

	Size int64  `json:"size,omitempty"`
	MD5  string `json:"md5,omitempty"`
}

// CoverInfo describes a retrievable cover image.
type CoverInfo struct {
	URL string `json:"url"`
	Ext string `json:"ext,omitempty"`
}

// CoverOptions selects the variant of cover art to request.
type CoverOptions struct {
	// Ext is the desired image format ("jpg" or "png").
	Ext string `json:"ext"`

	// Resolution is the desired square edge length in pixels.
	Resolution int `json:"resolution"`

	// Compressed requests a size-reduced variant where the service offers one.
	Compressed bool `json:"compressed,omitempty"`
}

// LyricsInfo carries the lyrics variants a module can supply.
type LyricsInfo struct {
	// Embedded is the unsynced text embedded into tags.
	Embedded string `json:"embedded,omitempty"`

	// Synced is LRC-format timestamped text written as a side file.
	Synced string `json:"synced,omitempty"`
}

// CreditsEntry is one role with its credited people.
type CreditsEntry struct {
	Role  string   `json:"role"`
	Names []string `json:"names"`
}

// SearchResult is one hit from a module search.
type SearchResult struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists,omitempty"`
	Explicit bool     `json:"explicit,omitempty"`
	Duration int      `json:"duration,omitempty"`
	Extra    Params   `json:"extra,omitempty"`
}

// Capabilities summarizes what a module supports beyond the required
// metadata surface.
type Capabilities struct {
	Download       bool `json:"download"`
	Search         bool `json:"search"`
	Lyrics         bool `json:"lyrics"`
	Covers         bool `json:"covers"`
	Credits        bool `json:"credits"`
	CreditedAlbums bool `json:"credited_albums"`
	HiRes          bool `json:"hi_res"`
}
