package service

import "strings"

// Codec identifies the audio encoding of a track. The zero value means the
// service did not report one.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecFLAC
	CodecALAC
	CodecMQA
	CodecWAV
	CodecMP3
	CodecAAC
	CodecHEAAC
	CodecVorbis
	CodecOpus
	CodecAC3
	CodecEAC3
	CodecAC4
	CodecMHA1
	CodecMHM1
)

// CodecProps describes the static properties of a codec.
type CodecProps struct {
	// PrettyName is the human-readable codec name used in logs.
	PrettyName string

	// Container is the file extension (without dot) tracks of this codec
	// are stored in.
	Container string

	Lossless bool

	// Spatial marks immersive-audio codecs that must never be transcoded.
	Spatial bool
}

var codecProps = map[Codec]CodecProps{
	CodecFLAC:   {PrettyName: "FLAC", Container: "flac", Lossless: true},
	CodecALAC:   {PrettyName: "ALAC", Container: "m4a", Lossless: true},
	CodecMQA:    {PrettyName: "MQA", Container: "flac", Lossless: true},
	CodecWAV:    {PrettyName: "WAV", Container: "wav", Lossless: true},
	CodecMP3:    {PrettyName: "MP3", Container: "mp3"},
	CodecAAC:    {PrettyName: "AAC", Container: "m4a"},
	CodecHEAAC:  {PrettyName: "HE-AAC", Container: "m4a"},
	CodecVorbis: {PrettyName: "Vorbis", Container: "ogg"},
	CodecOpus:   {PrettyName: "Opus", Container: "ogg"},
	CodecAC3:    {PrettyName: "AC-3", Container: "m4a"},
	CodecEAC3:   {PrettyName: "E-AC-3", Container: "m4a", Spatial: true},
	CodecAC4:    {PrettyName: "AC-4", Container: "m4a", Spatial: true},
	CodecMHA1:   {PrettyName: "MPEG-H 3D (MHA1)", Container: "m4a", Spatial: true},
	CodecMHM1:   {PrettyName: "MPEG-H 3D (MHM1)", Container: "m4a", Spatial: true},
}

// Props returns the static descriptor for the codec. Unknown codecs report
// an empty descriptor so callers must handle them explicitly.
func (c Codec) Props() CodecProps {
	return codecProps[c]
}

// String returns the pretty name of the codec.
func (c Codec) String() string {
	if p, ok := codecProps[c]; ok {
		return p.PrettyName
	}
	return "unknown"
}

// ParseCodec maps a service-reported codec label to a Codec. Matching is
// case-insensitive and tolerant of common aliases.
func ParseCodec(s string) Codec {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flac":
		return CodecFLAC
	case "alac":
		return CodecALAC
	case "mqa":
		return CodecMQA
	case "wav", "pcm":
		return CodecWAV
	case "mp3":
		return CodecMP3
	case "aac", "aac-lc", "mp4a":
		return CodecAAC
	case "he-aac", "heaac", "aac+":
		return CodecHEAAC
	case "vorbis", "ogg":
		return CodecVorbis
	case "opus":
		return CodecOpus
	case "ac3", "ac-3":
		return CodecAC3
	case "eac3", "e-ac-3", "eac-3":
		return CodecEAC3
	case "ac4", "ac-4":
		return CodecAC4
	case "mha1":
		return CodecMHA1
	case "mhm1":
		return CodecMHM1
	default:
		return CodecUnknown
	}
}

// encoderNames maps codecs to the ffmpeg encoder selected when converting
// into that codec.
var encoderNames = map[Codec]string{
	CodecFLAC:   "flac",
	CodecALAC:   "alac",
	CodecWAV:    "pcm_s16le",
	CodecMP3:    "libmp3lame",
	CodecAAC:    "aac",
	CodecHEAAC:  "aac",
	CodecVorbis: "libvorbis",
	CodecOpus:   "libopus",
}

// EncoderName returns the ffmpeg encoder for the codec, or an empty string
// when no conversion target exists for it.
func (c Codec) EncoderName() string {
	return encoderNames[c]
}
