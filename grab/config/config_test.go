package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/musegrab/musegrab/grab/service"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetString("DefaultQuality"); got != "hires" {
		t.Errorf("DefaultQuality = %q, want %q", got, "hires")
	}
	if got := cfg.GetInt("FetchMaxAttempts"); got != 3 {
		t.Errorf("FetchMaxAttempts = %d, want 3", got)
	}
	if !cfg.GetBool("SkipExisting") {
		t.Error("SkipExisting default should be true")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
DefaultQuality = lossless
FetchMaxAttempts = 5
SaveM3U = false
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetString("DefaultQuality"); got != "lossless" {
		t.Errorf("DefaultQuality = %q, want %q", got, "lossless")
	}
	if got := cfg.GetInt("FetchMaxAttempts"); got != 5 {
		t.Errorf("FetchMaxAttempts = %d, want 5", got)
	}
	if cfg.GetBool("SaveM3U") {
		t.Error("SaveM3U should be overridden to false")
	}
}

func TestPluginSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[plugins.netease]
Cookie = MUSIC_U=abc
SearchLimit = 10
Enabled = true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	names := cfg.PluginNames()
	if len(names) != 1 || names[0] != "netease" {
		t.Fatalf("PluginNames = %v, want [netease]", names)
	}
	if got := cfg.GetPluginString("netease", "Cookie"); got != "MUSIC_U=abc" {
		t.Errorf("Cookie = %q", got)
	}
	if got := cfg.GetPluginInt("netease", "SearchLimit"); got != 10 {
		t.Errorf("SearchLimit = %d, want 10", got)
	}
	if !cfg.GetPluginBool("netease", "Enabled") {
		t.Error("Enabled should be true")
	}
}

func TestSettingsSnapshot(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
DefaultQuality = lossless
Conversions = mqa:flac, alac:flac
FetchRetryDelaySec = 4
ConversionKeepOriginal = true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}

	if s.Quality != service.QualityLossless {
		t.Errorf("Quality = %v, want lossless", s.Quality)
	}
	if s.FetchRetryDelay != 4*time.Second {
		t.Errorf("FetchRetryDelay = %v, want 4s", s.FetchRetryDelay)
	}
	if !s.Conversion.KeepOriginal {
		t.Error("KeepOriginal should be true")
	}
	if got := s.Conversion.Targets[service.CodecMQA]; got != service.CodecFLAC {
		t.Errorf("MQA target = %v, want FLAC", got)
	}
	if got := s.Conversion.Targets[service.CodecALAC]; got != service.CodecFLAC {
		t.Errorf("ALAC target = %v, want FLAC", got)
	}
}

func TestSettingsParsesConversionFlags(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ConversionFlags = flac: -compression_level 5; mp3: -q:a 0
LyricsModule = musixmatch
IgnoreDifferentArtists = true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, err := cfg.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}

	got := s.Conversion.Flags[service.CodecFLAC]
	if len(got) != 2 || got[0] != "-compression_level" || got[1] != "5" {
		t.Errorf("FLAC flags = %v", got)
	}
	got = s.Conversion.Flags[service.CodecMP3]
	if len(got) != 2 || got[0] != "-q:a" || got[1] != "0" {
		t.Errorf("MP3 flags = %v", got)
	}
	if s.Lyrics.Module != "musixmatch" {
		t.Errorf("Lyrics.Module = %q", s.Lyrics.Module)
	}
	if !s.IgnoreDifferentArtists {
		t.Error("IgnoreDifferentArtists should be true")
	}
}

func TestSettingsRejectsBadConversionFlags(t *testing.T) {
	cfg, err := Load(writeConfig(t, `ConversionFlags = notacodec: -q:a 0`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := cfg.Settings(); err == nil {
		t.Fatal("expected error for unknown codec in conversion flags")
	}
}

func TestSettingsRejectsBadConversion(t *testing.T) {
	cfg, err := Load(writeConfig(t, `Conversions = mqa-flac`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := cfg.Settings(); err == nil {
		t.Fatal("expected error for malformed conversion entry")
	}
}
