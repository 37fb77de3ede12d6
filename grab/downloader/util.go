package downloader

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/tag"
)

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// moveFile renames src to dst, copying across filesystems when rename fails.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

func writeTextFile(path, content string) error {
	if content == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// writeTagSidecar dumps the tag set next to a track that could not be
// tagged in place, so the metadata survives for a later manual pass.
func (d *Downloader) writeTagSidecar(audioPath string, data *tag.Data) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	return os.WriteFile(base+"_tags.json", payload, 0644)
}

// hasArtist reports whether the track's artist list contains name,
// case-insensitively.
func hasArtist(meta *service.TrackMetadata, name string) bool {
	for _, artist := range meta.Artists {
		if strings.EqualFold(artist, name) {
			return true
		}
	}
	return false
}

// containerFor returns the file extension for a codec, defaulting unknown
// codecs to mp3 so a missing codec report never breaks placement.
func containerFor(codec service.Codec) string {
	if ext := codec.Props().Container; ext != "" {
		return ext
	}
	return "mp3"
}
