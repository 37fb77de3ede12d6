package pathing

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultByteLimit is the maximum byte length of a single path component on
// common filesystems, minus headroom for suffixes added later.
const DefaultByteLimit = 250

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	illegalChars = regexp.MustCompile(`[\\/*?"<>|$]`)
)

// SanitizeName makes a metadata string safe to use as a path component.
// Control characters and filesystem-reserved characters are removed, and a
// colon becomes " - " so titles like "Live: Tokyo" stay readable. The
// function is idempotent: sanitizing an already-sanitized string returns it
// unchanged.
func SanitizeName(name string) string {
	s := controlChars.ReplaceAllString(name, "")
	s = illegalChars.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ":", " - ")
	return strings.TrimSpace(s)
}

// FixByteLimit truncates the final component of path so its byte length does
// not exceed limit, preserving the extension and trimming any rune left
// incomplete by the cut. Passing limit <= 0 applies DefaultByteLimit.
func FixByteLimit(path string, limit int) string {
	if limit <= 0 {
		limit = DefaultByteLimit
	}

	dir, base := filepath.Split(path)
	if len(base) <= limit {
		return path
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	keep := limit - len(ext)
	if keep < 1 {
		keep = 1
	}
	if keep > len(stem) {
		keep = len(stem)
	}

	cut := stem[:keep]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}

	return dir + cut + ext
}

// ArtistInitials returns the uppercase first letter of the artist name, used
// by library layouts that shard artist folders alphabetically. Names that do
// not start with a letter map to "#".
func ArtistInitials(artist string) string {
	trimmed := strings.TrimSpace(artist)
	if trimmed == "" {
		return "#"
	}
	r := []rune(trimmed)[0]
	upper := strings.ToUpper(string(r))
	if upper >= "A" && upper <= "Z" {
		return upper
	}
	return "#"
}

// ZeroPad renders number padded with zeros to the decimal width of total, so
// track 2 of 120 becomes "002". A total below 10 still pads to two digits,
// keeping lexicographic file order stable for small albums.
func ZeroPad(number, total int) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%0*d", width, number)
}

// TemplateValues holds the substitutions available to path templates.
type TemplateValues struct {
	Name           string
	Artist         string
	Album          string
	ID             string
	TrackNumber    int
	TotalTracks    int
	DiscNumber     int
	TotalDiscs     int
	ReleaseYear    int
	Quality        string
	Explicit       bool
	ArtistInitials string

	// PadNumbers zero-pads the track number to the width of the total.
	// Multi-track layouts enable it; ad-hoc single tracks keep the plain
	// number.
	PadNumbers bool
}

// Format expands a {placeholder} path template with sanitized values. Unknown
// placeholders are left as-is so template typos stay visible in the output
// rather than silently vanishing.
func Format(template string, v TemplateValues) string {
	explicit := ""
	if v.Explicit {
		explicit = " [E]"
	}

	initials := v.ArtistInitials
	if initials == "" {
		initials = ArtistInitials(v.Artist)
	}

	quality := v.Quality
	if quality != "" {
		quality = " [" + quality + "]"
	}

	trackNumber := strconv.Itoa(v.TrackNumber)
	if v.PadNumbers {
		trackNumber = ZeroPad(v.TrackNumber, v.TotalTracks)
	}

	replacer := strings.NewReplacer(
		"{name}", SanitizeName(v.Name),
		"{artist}", SanitizeName(v.Artist),
		"{album}", SanitizeName(v.Album),
		"{id}", SanitizeName(v.ID),
		"{track_number}", trackNumber,
		"{total_tracks}", strconv.Itoa(v.TotalTracks),
		"{disc_number}", strconv.Itoa(v.DiscNumber),
		"{total_discs}", strconv.Itoa(v.TotalDiscs),
		"{release_year}", strconv.Itoa(v.ReleaseYear),
		"{quality}", quality,
		"{explicit}", explicit,
		"{artist_initials}", initials,
	)

	return strings.TrimSpace(replacer.Replace(template))
}
