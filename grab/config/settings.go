package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/musegrab/musegrab/grab/service"
)

// Settings is the immutable snapshot of download behavior handed to the
// orchestration engine at construction. Engine code reads it by value and
// never consults live configuration, so a run is unaffected by reloads.
type Settings struct {
	DownloadPath string
	TempPath     string

	Quality      service.Quality
	CodecOptions service.CodecOptions

	// FetchMaxAttempts bounds retrieval attempts for transient errors.
	FetchMaxAttempts int

	// FetchRetryDelay is the fixed wait between retrieval attempts.
	FetchRetryDelay time.Duration

	// TrackPause spaces out track retrievals inside multi-track batches.
	TrackPause time.Duration

	DownloadTimeout time.Duration
	CheckMD5        bool

	Multipart MultipartSettings

	Formatting FormattingSettings
	Covers     CoverSettings
	Lyrics     LyricsSettings
	Credits    CreditsSettings
	Playlist   PlaylistSettings
	Conversion ConversionSettings

	SkipExisting                 bool
	SeparateTracksSkipDownloaded bool
	SaveDescription              bool
	SaveAnimatedCover            bool

	// ArtistIncludeCredited extends artist downloads to albums the artist
	// appears on without owning, where the service can list them.
	ArtistIncludeCredited bool

	// IgnoreDifferentArtists skips tracks during artist downloads whose
	// artist list does not include the traversed artist, so compilation
	// and feature appearances stay out of the artist's folder.
	IgnoreDifferentArtists bool
}

// MultipartSettings controls the ranged concurrent downloader.
type MultipartSettings struct {
	Enabled     bool
	Concurrency int
	MinSize     int64
}

// FormattingSettings holds the path templates and filename limits.
type FormattingSettings struct {
	AlbumTemplate       string
	PlaylistTemplate    string
	TrackTemplate       string
	SingleTrackTemplate string

	// ForceAlbumFormat routes single tracks and playlist entries through
	// the album folder layout.
	ForceAlbumFormat bool

	// ByteLimit caps the byte length of each generated path component.
	ByteLimit int

	// EnableZeroPad pads track numbers to the width of their totals in
	// album and playlist layouts. Ad-hoc single tracks are never padded.
	EnableZeroPad bool
}

// CoverSettings controls embedded and external cover art.
type CoverSettings struct {
	Embed        bool
	Main         service.CoverOptions
	SaveExternal bool
	External     service.CoverOptions

	// CompareModule, when set, names a second service whose catalog is
	// searched for a perceptually matching cover of higher quality.
	CompareModule string

	// CompareThreshold is the maximum RMS distance at which a candidate
	// cover counts as the same artwork.
	CompareThreshold float64

	// CompareResolution is the square edge length candidates are fetched
	// at for comparison.
	CompareResolution int
}

// LyricsSettings controls lyric embedding and side files.
type LyricsSettings struct {
	Embed      bool
	SaveSynced bool

	// Module, when set, names the service lyrics are fetched from instead
	// of the track's own service, located by tag search.
	Module string
}

// CreditsSettings controls credit tag embedding.
type CreditsSettings struct {
	Embed bool

	// Module, when set, names the service credits are fetched from instead
	// of the track's own service, located by tag search.
	Module string
}

// PlaylistSettings controls playlist side outputs and re-resolution.
type PlaylistSettings struct {
	SaveM3U       bool
	ExtendedM3U   bool
	AbsolutePaths bool

	// DownloadModule, when set, names the service playlist entries are
	// re-resolved against by tag search before downloading.
	DownloadModule string
}

// ConversionSettings is the codec conversion policy.
type ConversionSettings struct {
	// Targets maps source codecs to the codec they should be converted to.
	Targets map[service.Codec]service.Codec

	// Flags holds extra ffmpeg encoder arguments per target codec.
	Flags map[service.Codec][]string

	// AllowUndesirable permits lossy-to-lossless and lossy-to-lossy
	// conversions, which grow files without adding fidelity.
	AllowUndesirable bool

	// KeepOriginal retains the source file next to the converted one.
	KeepOriginal bool

	FFmpegPath string
}

// Settings builds the immutable snapshot from the loaded configuration.
func (c *Config) Settings() (Settings, error) {
	quality, err := service.ParseQuality(c.GetString("DefaultQuality"))
	if err != nil {
		return Settings{}, err
	}

	conversions, err := parseConversions(c.GetString("Conversions"))
	if err != nil {
		return Settings{}, err
	}

	conversionFlags, err := parseConversionFlags(c.GetString("ConversionFlags"))
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		DownloadPath: c.GetString("DownloadPath"),
		TempPath:     c.GetString("TempPath"),
		Quality:      quality,
		CodecOptions: service.CodecOptions{
			SpatialCodecs:     c.GetBool("SpatialCodecs"),
			ProprietaryCodecs: c.GetBool("ProprietaryCodecs"),
		},
		FetchMaxAttempts: c.GetInt("FetchMaxAttempts"),
		FetchRetryDelay:  time.Duration(c.GetInt("FetchRetryDelaySec")) * time.Second,
		TrackPause:       time.Duration(c.GetInt("TrackPauseSec")) * time.Second,
		DownloadTimeout:  time.Duration(c.GetInt("DownloadTimeout")) * time.Second,
		CheckMD5:         c.GetBool("CheckMD5"),
		Multipart: MultipartSettings{
			Enabled:     c.GetBool("EnableMultipartDownload"),
			Concurrency: c.GetInt("MultipartConcurrency"),
			MinSize:     int64(c.GetInt("MultipartMinSizeMB")) * 1024 * 1024,
		},
		Formatting: FormattingSettings{
			AlbumTemplate:       c.GetString("AlbumTemplate"),
			PlaylistTemplate:    c.GetString("PlaylistTemplate"),
			TrackTemplate:       c.GetString("TrackTemplate"),
			SingleTrackTemplate: c.GetString("SingleTrackTemplate"),
			ForceAlbumFormat:    c.GetBool("ForceAlbumFormat"),
			ByteLimit:           c.GetInt("PathByteLimit"),
			EnableZeroPad:       c.GetBool("EnableZeroPad"),
		},
		Covers: CoverSettings{
			Embed: c.GetBool("EmbedCover"),
			Main: service.CoverOptions{
				Ext:        c.GetString("CoverExt"),
				Resolution: c.GetInt("CoverResolution"),
				Compressed: c.GetBool("CoverCompression"),
			},
			SaveExternal: c.GetBool("SaveExternalCover"),
			External: service.CoverOptions{
				Ext:        c.GetString("ExternalCoverExt"),
				Resolution: c.GetInt("ExternalCoverResolution"),
			},
			CompareModule:     c.GetString("CoverCompareModule"),
			CompareThreshold:  c.GetFloat64("CoverCompareThreshold"),
			CompareResolution: c.GetInt("CoverCompareResolution"),
		},
		Lyrics: LyricsSettings{
			Embed:      c.GetBool("EmbedLyrics"),
			SaveSynced: c.GetBool("SaveSyncedLyrics"),
			Module:     c.GetString("LyricsModule"),
		},
		Credits: CreditsSettings{
			Embed:  c.GetBool("EmbedCredits"),
			Module: c.GetString("CreditsModule"),
		},
		Playlist: PlaylistSettings{
			SaveM3U:        c.GetBool("SaveM3U"),
			ExtendedM3U:    c.GetBool("ExtendedM3U"),
			AbsolutePaths:  c.GetBool("M3UAbsolutePaths"),
			DownloadModule: c.GetString("PlaylistDownloadModule"),
		},
		Conversion: ConversionSettings{
			Targets:          conversions,
			Flags:            conversionFlags,
			AllowUndesirable: c.GetBool("EnableUndesirableConversions"),
			KeepOriginal:     c.GetBool("ConversionKeepOriginal"),
			FFmpegPath:       c.GetString("FFmpegPath"),
		},
		SkipExisting:                 c.GetBool("SkipExisting"),
		SeparateTracksSkipDownloaded: c.GetBool("SeparateTracksSkipDownloaded"),
		SaveDescription:              c.GetBool("SaveDescription"),
		SaveAnimatedCover:            c.GetBool("SaveAnimatedCover"),
		ArtistIncludeCredited:        c.GetBool("ArtistDownloadCredited"),
		IgnoreDifferentArtists:       c.GetBool("IgnoreDifferentArtists"),
	}, nil
}

// parseConversions reads a "source:target" comma list like
// "mqa:flac, alac:flac" into the conversion target map.
func parseConversions(raw string) (map[service.Codec]service.Codec, error) {
	targets := make(map[service.Codec]service.Codec)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return targets, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid conversion entry %q", strings.TrimSpace(pair))
		}
		src := service.ParseCodec(parts[0])
		dst := service.ParseCodec(parts[1])
		if src == service.CodecUnknown || dst == service.CodecUnknown {
			return nil, fmt.Errorf("unknown codec in conversion entry %q", strings.TrimSpace(pair))
		}
		targets[src] = dst
	}

	return targets, nil
}

// parseConversionFlags reads a semicolon-separated "target codec: ffmpeg
// arguments" list like "flac: -compression_level 5; mp3: -q:a 0" into the
// per-target encoder flag map.
func parseConversionFlags(raw string) (map[service.Codec][]string, error) {
	flags := make(map[service.Codec][]string)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return flags, nil
	}

	for _, entry := range strings.Split(raw, ";") {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid conversion flags entry %q", strings.TrimSpace(entry))
		}
		target := service.ParseCodec(parts[0])
		if target == service.CodecUnknown {
			return nil, fmt.Errorf("unknown codec in conversion flags entry %q", strings.TrimSpace(entry))
		}
		args := strings.Fields(parts[1])
		if len(args) == 0 {
			return nil, fmt.Errorf("empty conversion flags entry %q", strings.TrimSpace(entry))
		}
		flags[target] = args
	}

	return flags, nil
}
