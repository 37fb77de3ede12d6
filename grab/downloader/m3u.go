package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/musegrab/musegrab/grab/pathing"
	"github.com/musegrab/musegrab/grab/service"
)

// writeM3U writes the playlist file into folder, listing tracks in playlist
// order. Entries whose download did not produce a file are left out. Paths
// are relative to the playlist folder unless absolute paths are configured.
func (d *Downloader) writeM3U(playlist *service.PlaylistMetadata, folder string, paths []string, metas []*service.TrackMetadata) error {
	var b strings.Builder

	if d.settings.Playlist.ExtendedM3U {
		b.WriteString("#EXTM3U\n")
	}

	for i, path := range paths {
		if path == "" {
			continue
		}

		if d.settings.Playlist.ExtendedM3U && metas[i] != nil {
			meta := metas[i]
			b.WriteString(fmt.Sprintf("#EXTINF:%d,%s - %s\n", meta.Duration, meta.MainArtist(), meta.Name))
		}

		entry := path
		if !d.settings.Playlist.AbsolutePaths {
			rel, err := filepath.Rel(folder, path)
			if err == nil {
				entry = rel
			}
		}
		b.WriteString(entry)
		b.WriteByte('\n')
	}

	name := pathing.SanitizeName(playlist.Name)
	if name == "" {
		name = playlist.ID
	}
	dest := filepath.Join(folder, name+".m3u")
	if err := os.MkdirAll(folder, os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(b.String()), 0644)
}
