package pathing

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "Plain Title", "Plain Title"},
		{"illegal chars", `What/If*They?"All<Show>Up|Here$`, "WhatIfTheyAllShowUpHere"},
		{"colon", "Live: Tokyo", "Live -  Tokyo"},
		{"control chars", "bad\x00name\x1f", "badname"},
		{"whitespace", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			if got != tt.want {
				t.Fatalf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeNameIdempotent(t *testing.T) {
	inputs := []string{
		`A/B:C?D`,
		"Live: Tokyo",
		"already clean",
		`"quoted" <tagged>`,
	}

	for _, input := range inputs {
		once := SanitizeName(input)
		twice := SanitizeName(once)
		if once != twice {
			t.Fatalf("SanitizeName not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestFixByteLimit(t *testing.T) {
	long := strings.Repeat("a", 300) + ".flac"
	got := FixByteLimit("/music/"+long, 250)

	base := got[len("/music/"):]
	if len(base) > 250 {
		t.Fatalf("component length = %d, want <= 250", len(base))
	}
	if !strings.HasSuffix(base, ".flac") {
		t.Fatalf("extension lost: %q", base)
	}
}

func TestFixByteLimitShortUnchanged(t *testing.T) {
	path := "/music/short.mp3"
	if got := FixByteLimit(path, 250); got != path {
		t.Fatalf("short path modified: %q", got)
	}
}

func TestFixByteLimitMultibyte(t *testing.T) {
	long := strings.Repeat("日", 120) + ".flac"
	got := FixByteLimit(long, 100)

	if len(got) > 100 {
		t.Fatalf("length = %d, want <= 100", len(got))
	}
	stem := strings.TrimSuffix(got, ".flac")
	for _, r := range stem {
		if r == '�' {
			t.Fatal("truncation left an invalid rune")
		}
	}
}

func TestFixByteLimitStable(t *testing.T) {
	long := strings.Repeat("b", 400) + ".ogg"
	once := FixByteLimit(long, 250)
	twice := FixByteLimit(once, 250)
	if once != twice {
		t.Fatalf("FixByteLimit not stable: first %q, second %q", once, twice)
	}
}

func TestArtistInitials(t *testing.T) {
	tests := []struct {
		artist string
		want   string
	}{
		{"Miles Davis", "M"},
		{"deadmau5", "D"},
		{"65daysofstatic", "#"},
		{"", "#"},
		{"  Autechre", "A"},
	}

	for _, tt := range tests {
		if got := ArtistInitials(tt.artist); got != tt.want {
			t.Fatalf("ArtistInitials(%q) = %q, want %q", tt.artist, got, tt.want)
		}
	}
}

func TestZeroPad(t *testing.T) {
	tests := []struct {
		number, total int
		want          string
	}{
		{1, 8, "01"},
		{2, 120, "002"},
		{45, 120, "045"},
		{7, 10, "07"},
	}

	for _, tt := range tests {
		if got := ZeroPad(tt.number, tt.total); got != tt.want {
			t.Fatalf("ZeroPad(%d, %d) = %q, want %q", tt.number, tt.total, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	v := TemplateValues{
		Name:        "Blue: in Green",
		Artist:      "Miles Davis",
		Album:       "Kind of Blue",
		TrackNumber: 3,
		TotalTracks: 5,
		DiscNumber:  1,
		TotalDiscs:  1,
		ReleaseYear: 1959,
		PadNumbers:  true,
	}

	got := Format("{track_number}. {artist} - {name}", v)
	want := "03. Miles Davis - Blue -  in Green"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatUnpaddedTrackNumber(t *testing.T) {
	v := TemplateValues{
		Name:        "Song",
		TrackNumber: 3,
		TotalTracks: 12,
	}

	if got := Format("{track_number}. {name}", v); got != "3. Song" {
		t.Fatalf("Format = %q, want unpadded number for single-track mode", got)
	}
}

func TestFormatExplicitAndInitials(t *testing.T) {
	v := TemplateValues{
		Name:     "Song",
		Artist:   "banks",
		Explicit: true,
	}

	got := Format("{artist_initials}/{artist}/{name}{explicit}", v)
	want := "B/banks/Song [E]"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatUnknownPlaceholderKept(t *testing.T) {
	got := Format("{artist}/{bogus}", TemplateValues{Artist: "X"})
	if !strings.Contains(got, "{bogus}") {
		t.Fatalf("unknown placeholder rewritten: %q", got)
	}
}
