package netease

import (
	"regexp"
	"strings"
	"time"
)

var lrcTimestampRe = regexp.MustCompile(`\[\d{1,2}:\d{1,2}(?:[.:]\d{1,3})?\]`)

// stripLRCTimestamps turns timestamped LRC text into plain lyrics for tag
// embedding. Metadata header lines like [ti:...] are dropped entirely.
func stripLRCTimestamps(lrc string) string {
	lines := strings.Split(lrc, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(lrcTimestampRe.ReplaceAllString(line, ""))
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

func timeOfMillis(millis int64) time.Time {
	return time.UnixMilli(millis)
}
