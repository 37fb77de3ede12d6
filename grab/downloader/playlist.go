package downloader

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/musegrab/musegrab/grab/pathing"
	"github.com/musegrab/musegrab/grab/service"
)

// playlistEntry is one playlist position being downloaded. The original
// index survives deferral so the M3U keeps the playlist's order no matter
// when each track completed.
type playlistEntry struct {
	index int
	run   trackRun
	meta  *service.TrackMetadata
}

// DownloadPlaylist downloads every entry of a playlist into its rendered
// folder. Tracks deferred by a service rate limit are retried in a second
// pass after the rest of the playlist has gone through; a deferral in the
// second pass counts as failed.
func (d *Downloader) DownloadPlaylist(ctx context.Context, mod service.Module, playlistID string, extra service.Params) (*Summary, error) {
	playlist, err := mod.GetPlaylist(ctx, playlistID, extra)
	if err != nil {
		return nil, &service.ModuleError{Module: mod.Name(), Resource: "playlist", ID: playlistID, Err: err}
	}

	d.log.Info("downloading playlist",
		"module", mod.Name(),
		"playlist", playlist.ID,
		"name", playlist.Name,
		"tracks", len(playlist.TrackIDs))

	folder := d.playlistFolder(playlist)
	d.writePlaylistSideFiles(ctx, playlist, folder)

	trackExtra := mergeParams(extra, playlist.TrackExtra)
	total := len(playlist.TrackIDs)
	summary := &Summary{}
	paths := make([]string, total)
	metas := make([]*service.TrackMetadata, total)

	var deferred []playlistEntry
	for i, trackID := range playlist.TrackIDs {
		entry, err := d.playlistEntry(ctx, mod, trackID, trackExtra, folder, i, total)
		if err != nil {
			d.log.Error("playlist entry metadata fetch failed", "playlist", playlist.ID, "track", trackID, "error", err)
			summary.add(TrackResult{Outcome: OutcomeFailed, Err: err})
			continue
		}
		metas[i] = entry.meta

		res := d.runTrack(ctx, entry.run)
		if res.Outcome == OutcomeDeferred {
			deferred = append(deferred, entry)
			continue
		}
		paths[i] = res.Path
		summary.add(res)
	}

	if len(deferred) > 0 {
		d.log.Info("retrying rate limited playlist tracks", "playlist", playlist.ID, "count", len(deferred))
		for _, entry := range deferred {
			res := demoteDeferred(d.runTrack(ctx, entry.run))
			paths[entry.index] = res.Path
			summary.add(res)
		}
	}

	if d.settings.Playlist.SaveM3U {
		if err := d.writeM3U(playlist, folder, paths, metas); err != nil {
			d.log.Warn("cannot write playlist file", "playlist", playlist.ID, "error", err)
		}
	}

	d.log.Info("playlist finished",
		"playlist", playlist.ID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// playlistEntry builds the run for one playlist position. The entry's
// metadata always comes from the playlist's own service; when a separate
// download module is configured the entry is re-resolved against it by tag
// search, falling back to the origin service when no hit comes back.
func (d *Downloader) playlistEntry(ctx context.Context, mod service.Module, trackID string, extra service.Params, folder string, index, total int) (playlistEntry, error) {
	meta, err := mod.GetTrack(ctx, trackID, extra)
	if err != nil {
		return playlistEntry{}, err
	}

	run := trackRun{
		module:   mod,
		trackID:  trackID,
		extra:    extra,
		meta:     meta,
		folder:   folder,
		template: d.settings.Formatting.TrackTemplate,
		position: index + 1,
		total:    total,
		batch:    true,
	}

	name := d.settings.Playlist.DownloadModule
	if name != "" && name != mod.Name() {
		if resolved, ok := d.resolveTrackOn(ctx, name, meta); ok {
			run.module = resolved.module
			run.trackID = resolved.trackID
			run.extra = resolved.extra
			run.meta = nil
		}
	}

	return playlistEntry{index: index, run: run, meta: meta}, nil
}

type resolvedEntry struct {
	module  service.Module
	trackID string
	extra   service.Params
}

// resolveTrackOn searches another registered service for the same track by
// name and artist, taking the first hit. A miss is not an error; the caller
// keeps the track's origin service. Playlist re-resolution and the secondary
// lyrics/credits modules all locate tracks this way.
func (d *Downloader) resolveTrackOn(ctx context.Context, moduleName string, meta *service.TrackMetadata) (resolvedEntry, bool) {
	target, ok := d.registry.Get(moduleName)
	if !ok {
		d.log.Warn("configured module not registered", "module", moduleName)
		return resolvedEntry{}, false
	}
	if !target.SupportsSearch() {
		d.log.Warn("configured module cannot search", "module", moduleName)
		return resolvedEntry{}, false
	}

	query := strings.TrimSpace(meta.Name + " " + meta.MainArtist())
	results, err := target.Search(ctx, service.MediaTrack, query, 1)
	if err != nil || len(results) == 0 {
		d.log.Warn("track not found on module, using origin service",
			"module", moduleName, "track", meta.ID, "query", query)
		return resolvedEntry{}, false
	}

	return resolvedEntry{module: target, trackID: results[0].ID, extra: results[0].Extra}, true
}

func (d *Downloader) playlistFolder(playlist *service.PlaylistMetadata) string {
	name := pathing.Format(d.settings.Formatting.PlaylistTemplate, pathing.TemplateValues{
		Name:        playlist.Name,
		Artist:      playlist.Creator,
		ID:          playlist.ID,
		ReleaseYear: playlist.ReleaseYear,
		Explicit:    playlist.Explicit,
	})
	return pathing.FixByteLimit(filepath.Join(d.settings.DownloadPath, name), d.settings.Formatting.ByteLimit)
}

func (d *Downloader) writePlaylistSideFiles(ctx context.Context, playlist *service.PlaylistMetadata, folder string) {
	if d.settings.SaveDescription && playlist.Description != "" {
		if err := writeTextFile(filepath.Join(folder, "description.txt"), playlist.Description); err != nil {
			d.log.Warn("cannot write playlist description", "playlist", playlist.ID, "error", err)
		}
	}

	if d.settings.Covers.SaveExternal && playlist.CoverURL != "" {
		ext := playlist.CoverExt
		if ext == "" {
			ext = d.settings.Covers.External.Ext
		}
		if err := d.covers.ResolveURL(ctx, playlist.CoverURL, filepath.Join(folder, "cover."+ext)); err != nil {
			d.log.Warn("cannot save playlist cover", "playlist", playlist.ID, "error", err)
		}
	}

	if d.settings.SaveAnimatedCover && playlist.AnimatedCoverURL != "" {
		if err := d.fetcher.FetchURL(ctx, playlist.AnimatedCoverURL, filepath.Join(folder, "cover.mp4")); err != nil {
			d.log.Warn("cannot save animated playlist cover", "playlist", playlist.ID, "error", err)
		}
	}
}
