package transcode

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
)

func TestFfmpegArgsAppendsTargetFlags(t *testing.T) {
	args := ffmpegArgs("in.flac", "out.mp3", "libmp3lame", []string{"-q:a", "0"})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:a libmp3lame -q:a 0 out.mp3") {
		t.Fatalf("flags not placed between encoder and output: %q", joined)
	}
	if args[len(args)-1] != "out.mp3" {
		t.Fatalf("output path not last: %q", args)
	}
}

func TestFfmpegArgsWithoutFlags(t *testing.T) {
	args := ffmpegArgs("in.flac", "out.flac", "flac", nil)
	if args[len(args)-2] != "flac" || args[len(args)-1] != "out.flac" {
		t.Fatalf("unexpected tail: %q", args)
	}
}

// stubFFmpeg installs a shell script that copies the input file to the
// output path, standing in for a real encode.
func stubFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}

	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := "#!/bin/sh\nfor last; do :; done\ncp \"$6\" \"$last\"\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	return script
}

func newTestTranscoder(t *testing.T, policy config.ConversionSettings) *Transcoder {
	t.Helper()
	policy.FFmpegPath = stubFFmpeg(t)
	return New(policy, logger.NewWithWriter(io.Discard, "error"))
}

func TestConvertKeepsOriginalAcrossContainers(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.m4a")
	if err := os.WriteFile(src, []byte("delivered audio"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := newTestTranscoder(t, config.ConversionSettings{KeepOriginal: true})
	converted, original, err := tr.Convert(context.Background(), src, service.CodecFLAC)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if converted != filepath.Join(dir, "track.flac") {
		t.Fatalf("converted = %q", converted)
	}
	if original != src {
		t.Fatalf("original = %q, want source path %q", original, src)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source not retained: %v", err)
	}
}

func TestConvertKeepsOriginalSameContainer(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.flac")
	if err := os.WriteFile(src, []byte("pre-conversion payload"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := newTestTranscoder(t, config.ConversionSettings{KeepOriginal: true})
	converted, original, err := tr.Convert(context.Background(), src, service.CodecFLAC)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if converted != src {
		t.Fatalf("converted = %q, want in-place path %q", converted, src)
	}
	if original == "" || original == src {
		t.Fatalf("original = %q, want a distinct set-aside path", original)
	}

	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatalf("set-aside original missing: %v", err)
	}
	if string(data) != "pre-conversion payload" {
		t.Fatalf("original content = %q, pre-conversion file was lost", data)
	}
	if _, err := os.Stat(converted); err != nil {
		t.Fatalf("converted file missing: %v", err)
	}
}

func TestConvertRemovesSourceWithoutKeepOriginal(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.m4a")
	if err := os.WriteFile(src, []byte("delivered audio"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := newTestTranscoder(t, config.ConversionSettings{})
	converted, original, err := tr.Convert(context.Background(), src, service.CodecFLAC)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if original != "" {
		t.Fatalf("original = %q, want empty without keep-original", original)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
	if _, err := os.Stat(converted); err != nil {
		t.Fatalf("converted file missing: %v", err)
	}
}
