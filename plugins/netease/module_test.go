package netease

import (
	"testing"

	"github.com/musegrab/musegrab/grab/service"
)

func TestQualityLevel(t *testing.T) {
	tests := []struct {
		quality service.Quality
		want    string
	}{
		{service.QualityStandard, "standard"},
		{service.QualityHigh, "higher"},
		{service.QualityLossless, "lossless"},
		{service.QualityHiRes, "hires"},
	}
	for _, tt := range tests {
		if got := qualityLevel(tt.quality); got != tt.want {
			t.Errorf("qualityLevel(%s) = %q, want %q", tt.quality, got, tt.want)
		}
	}
}

func TestStripLRCTimestamps(t *testing.T) {
	lrc := "[ti:Test Song]\n[00:01.00]First line\n[00:05.50][00:42.00]Repeated line\n[00:10.00]\n[01:02:30]Old style stamp"
	got := stripLRCTimestamps(lrc)
	want := "First line\nRepeated line\nOld style stamp"
	if got != want {
		t.Errorf("stripLRCTimestamps() = %q, want %q", got, want)
	}
}

func TestStripLRCTimestampsKeepsBlankSeparators(t *testing.T) {
	lrc := "[00:01.00]Verse one\n\n[00:10.00]Verse two"
	got := stripLRCTimestamps(lrc)
	want := "Verse one\n\nVerse two"
	if got != want {
		t.Errorf("stripLRCTimestamps() = %q, want %q", got, want)
	}
}
