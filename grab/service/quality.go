package service

import "fmt"

// Quality represents the requested audio quality tier for downloads.
// Different services map these tiers onto their own quality ladders.
type Quality int

const (
	// QualityStandard represents standard quality audio (typically 128-192 kbps).
	QualityStandard Quality = iota

	// QualityHigh represents high quality audio (typically 256-320 kbps).
	QualityHigh

	// QualityLossless represents lossless quality audio (typically FLAC).
	QualityLossless

	// QualityHiRes represents high-resolution audio (24-bit FLAC or higher).
	QualityHiRes
)

// String returns the string representation of the Quality enum.
func (q Quality) String() string {
	switch q {
	case QualityStandard:
		return "standard"
	case QualityHigh:
		return "high"
	case QualityLossless:
		return "lossless"
	case QualityHiRes:
		return "hires"
	default:
		return "unknown"
	}
}

// ParseQuality converts a string to Quality enum.
// Returns an error if the string does not match any known quality level.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "standard":
		return QualityStandard, nil
	case "high":
		return QualityHigh, nil
	case "lossless":
		return QualityLossless, nil
	case "hires":
		return QualityHiRes, nil
	default:
		return QualityStandard, fmt.Errorf("unknown quality level: %s", s)
	}
}

// CodecOptions tells a module which codec families the caller is willing to
// receive at the requested quality tier.
type CodecOptions struct {
	// SpatialCodecs permits immersive-audio formats (E-AC-3, AC-4, MPEG-H).
	SpatialCodecs bool `json:"spatial_codecs"`

	// ProprietaryCodecs permits formats requiring proprietary decoders (MQA, AC-4).
	ProprietaryCodecs bool `json:"proprietary_codecs"`
}
