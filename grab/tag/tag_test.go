package tag

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"

	"github.com/musegrab/musegrab/grab/logger"
)

func TestEmbedMP3(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(audioPath, []byte("\xff\xfbfake mp3 frames"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	tagger := New(logger.NewWithWriter(&bytes.Buffer{}, "error"))
	err := tagger.Embed(audioPath, &Data{
		Title:       "So What",
		Artist:      "Miles Davis",
		Album:       "Kind of Blue",
		Year:        "1959",
		TrackNumber: 1,
		TotalTracks: 5,
		Lyrics:      "[00:01.00]instrumental",
	}, "")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	meta, err := id3v2.Open(audioPath, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer meta.Close()

	if got := meta.Title(); got != "So What" {
		t.Errorf("Title = %q", got)
	}
	if got := meta.Artist(); got != "Miles Davis" {
		t.Errorf("Artist = %q", got)
	}
	if got := meta.GetTextFrame("TRCK").Text; got != "1/5" {
		t.Errorf("TRCK = %q, want 1/5", got)
	}
}

func TestEmbedRejectsUnknownContainer(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "track.xyz")
	if err := os.WriteFile(audioPath, []byte("data"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	tagger := New(logger.NewWithWriter(&bytes.Buffer{}, "error"))
	if err := tagger.Embed(audioPath, &Data{Title: "x"}, ""); err == nil {
		t.Fatal("expected unsupported container error")
	}
}

func TestNumberOf(t *testing.T) {
	if got := numberOf(3, 12); got != "3/12" {
		t.Fatalf("numberOf = %q", got)
	}
	if got := numberOf(3, 0); got != "3" {
		t.Fatalf("numberOf = %q", got)
	}
}
