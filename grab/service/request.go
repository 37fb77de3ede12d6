package service

import (
	"fmt"
	"time"
)

// DownloadConvention names the shape of retrieval request a module expects.
// Services differ in what they need to resolve a stream: some hand out a
// presigned URL with the metadata, some issue short-lived tokens, some need
// an authorization header replayed. Each module declares one convention and
// BuildDownloadRequest assembles the matching request, so traversal and
// pipeline code never branch on module identity.
type DownloadConvention int

const (
	// ConventionDefault passes the track ID, quality tier, codec options and
	// the full extra bag.
	ConventionDefault DownloadConvention = iota

	// ConventionURLOnly passes just the presigned URL from the metadata.
	ConventionURLOnly

	// ConventionTokenized passes the track ID with a short-lived token, its
	// expiry, and the service format code.
	ConventionTokenized

	// ConventionStreamAuth passes resolved stream and download URLs plus the
	// authorization header value.
	ConventionStreamAuth

	// ConventionQualityOnly passes the track ID and quality tier, nothing else.
	ConventionQualityOnly
)

// String returns the string representation of the convention.
func (c DownloadConvention) String() string {
	switch c {
	case ConventionURLOnly:
		return "url-only"
	case ConventionTokenized:
		return "tokenized"
	case ConventionStreamAuth:
		return "stream-auth"
	case ConventionQualityOnly:
		return "quality-only"
	default:
		return "default"
	}
}

// ConventionDeclarer is implemented by modules whose retrieval calls deviate
// from ConventionDefault.
type ConventionDeclarer interface {
	DownloadConvention() DownloadConvention
}

// DownloadRequest is the uniform retrieval request handed to Module.Download.
// Only the fields of the module's declared convention are populated.
type DownloadRequest struct {
	TrackID string
	Quality Quality
	Codec   Codec
	Options CodecOptions

	// URL is set for ConventionURLOnly.
	URL string

	// Token, TokenExpiry and Format are set for ConventionTokenized.
	Token       string
	TokenExpiry time.Time
	Format      string

	// StreamURL, DownloadURL and Authorization are set for ConventionStreamAuth.
	StreamURL     string
	DownloadURL   string
	Authorization string

	// Extra is the track's full download bag, set for ConventionDefault.
	Extra Params
}

// ConventionOf returns the module's declared download convention.
func ConventionOf(m Module) DownloadConvention {
	if d, ok := m.(ConventionDeclarer); ok {
		return d.DownloadConvention()
	}
	return ConventionDefault
}

// BuildDownloadRequest assembles the retrieval request for a track according
// to the module's convention. Missing required metadata keys fail fast with
// an error naming the key, rather than surfacing later as a bad API call.
func BuildDownloadRequest(m Module, track *TrackMetadata, quality Quality, opts CodecOptions) (DownloadRequest, error) {
	req := DownloadRequest{
		TrackID: track.ID,
		Quality: quality,
		Codec:   track.Codec,
		Options: opts,
	}

	extra := track.DownloadExtra
	need := func(key string) (string, error) {
		v, ok := extra.String(key)
		if !ok || v == "" {
			return "", fmt.Errorf("%s: track %s: download metadata missing %q", m.Name(), track.ID, key)
		}
		return v, nil
	}

	switch ConventionOf(m) {
	case ConventionURLOnly:
		url, err := need("url")
		if err != nil {
			return DownloadRequest{}, err
		}
		req.URL = url

	case ConventionTokenized:
		token, err := need("token")
		if err != nil {
			return DownloadRequest{}, err
		}
		format, err := need("format")
		if err != nil {
			return DownloadRequest{}, err
		}
		req.Token = token
		req.Format = format
		if v, ok := extra["token_expiry"]; ok {
			if t, ok := v.(time.Time); ok {
				req.TokenExpiry = t
			}
		}

	case ConventionStreamAuth:
		streamURL, err := need("stream_url")
		if err != nil {
			return DownloadRequest{}, err
		}
		auth, err := need("authorization")
		if err != nil {
			return DownloadRequest{}, err
		}
		req.StreamURL = streamURL
		req.Authorization = auth
		// The direct download URL is optional; modules fall back to the
		// stream URL when absent.
		if v, ok := extra.String("download_url"); ok {
			req.DownloadURL = v
		}

	case ConventionQualityOnly:
		// Nothing beyond ID and quality.

	default:
		req.Extra = extra
	}

	return req, nil
}

// ArtistInfoRequest is the uniform artist metadata request. IncludeCredited
// asks for albums the artist appears on without owning; modules that lack
// the capability ignore it.
type ArtistInfoRequest struct {
	ArtistID        string
	IncludeCredited bool
	Extra           Params
}

// BuildArtistInfoRequest assembles the artist request, downgrading the
// credited-albums flag when the module does not support it.
func BuildArtistInfoRequest(m Module, artistID string, includeCredited bool, extra Params) ArtistInfoRequest {
	return ArtistInfoRequest{
		ArtistID:        artistID,
		IncludeCredited: includeCredited && m.Capabilities().CreditedAlbums,
		Extra:           extra,
	}
}
