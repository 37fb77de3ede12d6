package qqmusic

import (
	"strings"
	"testing"

	"github.com/musegrab/musegrab/grab/service"
)

func TestSelectProfileExactMatch(t *testing.T) {
	info := &fileInfo{SizeHiRes: 100, SizeFlac: 80, Size320: 60, Size128: 40}
	p := selectProfile(service.QualityLossless, info)
	if p == nil || p.code != "F000" {
		t.Fatalf("selectProfile(lossless) = %+v, want F000", p)
	}
}

func TestSelectProfileFallsDown(t *testing.T) {
	info := &fileInfo{Size320: 60, Size128: 40}
	p := selectProfile(service.QualityHiRes, info)
	if p == nil || p.code != "M800" {
		t.Fatalf("selectProfile(hires) = %+v, want fallback to M800", p)
	}
}

func TestSelectProfileFallsUp(t *testing.T) {
	info := &fileInfo{SizeFlac: 80}
	p := selectProfile(service.QualityStandard, info)
	if p == nil || p.code != "F000" {
		t.Fatalf("selectProfile(standard) = %+v, want upgrade to F000", p)
	}
}

func TestSelectProfileNothingAvailable(t *testing.T) {
	if p := selectProfile(service.QualityHiRes, &fileInfo{}); p != nil {
		t.Fatalf("selectProfile() = %+v, want nil for empty file info", p)
	}
}

func TestStreamURL(t *testing.T) {
	if got := streamURL("RS01abc.flac?vkey=xyz"); !strings.HasPrefix(got, "https://ws.stream.qqmusic.qq.com/") {
		t.Errorf("streamURL() = %q, want host prefix added", got)
	}
	full := "https://other.host/file.mp3"
	if got := streamURL(full); got != full {
		t.Errorf("streamURL() = %q, want absolute URL untouched", got)
	}
	if got := streamURL("  "); got != "" {
		t.Errorf("streamURL() = %q, want empty for blank input", got)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2019-04-12", 2019},
		{"1997", 1997},
		{"unknown", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseYear(tt.in); got != tt.want {
			t.Errorf("parseYear(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTencentSign(t *testing.T) {
	payload := `{"req":{"module":"music.vkey.GetVkey"}}`

	got := tencentSign(payload, true)
	if !strings.HasPrefix(got, "zzc") {
		t.Fatalf("tencentSign() = %q, want zzc prefix", got)
	}
	if again := tencentSign(payload, true); again != got {
		t.Fatalf("tencentSign() not deterministic: %q vs %q", got, again)
	}
	if withPart1 := tencentSign(payload, false); len(withPart1) <= len(got) {
		t.Fatalf("tencentSign() with part1 = %q, want longer than %q", withPart1, got)
	}
	if tencentSign("", true) != "" {
		t.Fatal("tencentSign(\"\") should be empty")
	}
}
