package downloader

import (
	"context"
	"path/filepath"

	"github.com/musegrab/musegrab/grab/pathing"
	"github.com/musegrab/musegrab/grab/service"
)

// DownloadAlbum downloads every track of an album into its rendered folder.
// Individual track failures do not abort the remaining tracks; the summary
// reports per-track outcomes.
func (d *Downloader) DownloadAlbum(ctx context.Context, mod service.Module, albumID string, extra service.Params) (*Summary, error) {
	album, err := mod.GetAlbum(ctx, albumID, extra)
	if err != nil {
		return nil, &service.ModuleError{Module: mod.Name(), Resource: "album", ID: albumID, Err: err}
	}
	return d.downloadAlbumTracks(ctx, mod, album, d.settings.DownloadPath, extra, ""), nil
}

// downloadAlbumTracks places an album under parentDir. Artist traversal
// reuses it with the artist folder as parent and the artist name as
// expectArtist when the ignore-different-artists policy is on.
func (d *Downloader) downloadAlbumTracks(ctx context.Context, mod service.Module, album *service.AlbumMetadata, parentDir string, extra service.Params, expectArtist string) *Summary {
	d.log.Info("downloading album",
		"module", mod.Name(),
		"album", album.ID,
		"name", album.Name,
		"artist", album.Artist,
		"tracks", len(album.TrackIDs))

	trackExtra := mergeParams(extra, album.TrackExtra)
	summary := &Summary{}

	// A one-track release is a single: it goes straight into the parent
	// folder unless the album layout is forced.
	if len(album.TrackIDs) == 1 && !d.settings.Formatting.ForceAlbumFormat {
		res := d.runTrack(ctx, trackRun{
			module:       mod,
			trackID:      album.TrackIDs[0],
			extra:        trackExtra,
			album:        album,
			folder:       parentDir,
			template:     d.settings.Formatting.SingleTrackTemplate,
			sideFiles:    true,
			expectArtist: expectArtist,
		})
		summary.add(demoteDeferred(res))
		return summary
	}

	folder := d.albumFolder(parentDir, album)
	d.writeAlbumSideFiles(ctx, album, folder)

	coverPath := d.sharedCoverPath(ctx, album)

	for _, trackID := range album.TrackIDs {
		res := d.runTrack(ctx, trackRun{
			module:       mod,
			trackID:      trackID,
			extra:        trackExtra,
			album:        album,
			folder:       folder,
			template:     d.settings.Formatting.TrackTemplate,
			batch:        true,
			coverPath:    coverPath,
			expectArtist: expectArtist,
		})
		if res.Outcome == OutcomeDeferred {
			d.log.Warn("rate limited during album download, track marked failed", "album", album.ID, "track", trackID)
		}
		summary.add(demoteDeferred(res))
	}

	d.log.Info("album finished",
		"album", album.ID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary
}

// albumFolder renders the album's folder path under parent.
func (d *Downloader) albumFolder(parent string, album *service.AlbumMetadata) string {
	name := pathing.Format(d.settings.Formatting.AlbumTemplate, pathing.TemplateValues{
		Name:        album.Name,
		Artist:      album.Artist,
		Album:       album.Name,
		ID:          album.ID,
		ReleaseYear: album.ReleaseYear,
		Quality:     album.Quality,
		Explicit:    album.Explicit,
	})
	return pathing.FixByteLimit(filepath.Join(parent, name), d.settings.Formatting.ByteLimit)
}

// sharedCoverPath materializes an album-wide cover when the service supplies
// one URL for all tracks, so sibling tracks skip per-track resolution.
func (d *Downloader) sharedCoverPath(ctx context.Context, album *service.AlbumMetadata) string {
	if !d.settings.Covers.Embed || album.AllTrackCoverURL == "" {
		return ""
	}
	path := filepath.Join(d.settings.TempPath, album.ID+"_cover.jpg")
	if err := d.covers.ResolveURL(ctx, album.AllTrackCoverURL, path); err != nil {
		d.log.Warn("album cover fetch failed, falling back to per-track covers", "album", album.ID, "error", err)
		return ""
	}
	return path
}

func (d *Downloader) writeAlbumSideFiles(ctx context.Context, album *service.AlbumMetadata, folder string) {
	if d.settings.SaveDescription && album.Description != "" {
		if err := writeTextFile(filepath.Join(folder, "description.txt"), album.Description); err != nil {
			d.log.Warn("cannot write album description", "album", album.ID, "error", err)
		}
	}

	if album.BookletURL != "" {
		if err := d.fetcher.FetchURL(ctx, album.BookletURL, filepath.Join(folder, "booklet.pdf")); err != nil {
			d.log.Warn("cannot save album booklet", "album", album.ID, "error", err)
		}
	}

	if d.settings.Covers.SaveExternal && album.CoverURL != "" {
		ext := album.CoverExt
		if ext == "" {
			ext = d.settings.Covers.External.Ext
		}
		if err := d.covers.ResolveURL(ctx, album.CoverURL, filepath.Join(folder, "cover."+ext)); err != nil {
			d.log.Warn("cannot save album cover", "album", album.ID, "error", err)
		}
	}

	if d.settings.SaveAnimatedCover && album.AnimatedCoverURL != "" {
		if err := d.fetcher.FetchURL(ctx, album.AnimatedCoverURL, filepath.Join(folder, "cover.mp4")); err != nil {
			d.log.Warn("cannot save animated album cover", "album", album.ID, "error", err)
		}
	}
}

// demoteDeferred converts a rate-limit deferral into a failure for contexts
// without a retry pass. Only playlists run a second pass over deferred tracks.
func demoteDeferred(res TrackResult) TrackResult {
	if res.Outcome == OutcomeDeferred {
		res.Outcome = OutcomeFailed
	}
	return res
}

// mergeParams overlays over onto base without mutating either.
func mergeParams(base, over service.Params) service.Params {
	if len(over) == 0 {
		return base
	}
	if len(base) == 0 {
		return over
	}
	out := base.Copy()
	for k, v := range over {
		out[k] = v
	}
	return out
}
