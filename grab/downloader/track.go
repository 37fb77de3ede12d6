package downloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/musegrab/musegrab/grab/pathing"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/tag"
	"github.com/musegrab/musegrab/grab/transcode"
)

// DownloadTrack downloads a single track by ID into the library root.
// With force-album-format enabled the track is routed through its album's
// folder layout instead of the flat single-track naming.
func (d *Downloader) DownloadTrack(ctx context.Context, mod service.Module, trackID string, extra service.Params) TrackResult {
	meta, err := mod.GetTrack(ctx, trackID, extra)
	if err != nil {
		d.log.Error("track metadata fetch failed", "module", mod.Name(), "track", trackID, "error", err)
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}

	if d.settings.Formatting.ForceAlbumFormat && meta.AlbumID != "" {
		album, err := mod.GetAlbum(ctx, meta.AlbumID, extra)
		if err == nil {
			run := trackRun{
				module:    mod,
				trackID:   trackID,
				extra:     extra,
				meta:      meta,
				album:     album,
				folder:    d.albumFolder(d.settings.DownloadPath, album),
				template:  d.settings.Formatting.TrackTemplate,
				sideFiles: true,
			}
			return d.runTrack(ctx, run)
		}
		d.log.Warn("album lookup for album-format placement failed", "album", meta.AlbumID, "error", err)
	}

	return d.runTrack(ctx, trackRun{
		module:    mod,
		trackID:   trackID,
		extra:     extra,
		meta:      meta,
		folder:    d.settings.DownloadPath,
		template:  d.settings.Formatting.SingleTrackTemplate,
		sideFiles: true,
	})
}

// runTrack executes the per-track pipeline and returns its single terminal
// outcome, stamped with the track's service identity.
func (d *Downloader) runTrack(ctx context.Context, run trackRun) TrackResult {
	res := d.execTrack(ctx, run)
	res.Module = run.module.Name()
	res.TrackID = run.trackID
	return res
}

// execTrack is the pipeline body. Failures never propagate as panics or
// partial files: every error path removes what it wrote and reports
// OutcomeFailed, except tagging, which degrades to a sidecar.
func (d *Downloader) execTrack(ctx context.Context, run trackRun) TrackResult {
	meta := run.meta
	if meta == nil {
		var err error
		meta, err = run.module.GetTrack(ctx, run.trackID, run.extra)
		if err != nil {
			d.log.Error("track metadata fetch failed", "module", run.module.Name(), "track", run.trackID, "error", err)
			return TrackResult{Outcome: OutcomeFailed, Err: err}
		}
	}

	if meta.Err != "" {
		err := fmt.Errorf("track reported broken by service: %s", meta.Err)
		d.log.Warn("skipping broken track", "track", meta.ID, "reason", meta.Err)
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}

	if run.expectArtist != "" && !hasArtist(meta, run.expectArtist) {
		d.log.Info("track is not by the downloaded artist, skipping",
			"track", meta.ID, "artist", run.expectArtist, "track_artists", strings.Join(meta.Artists, ", "))
		return TrackResult{Outcome: OutcomeSkipped}
	}

	d.log.Info("downloading track",
		"module", run.module.Name(),
		"track", meta.ID,
		"name", meta.Name,
		"artist", meta.MainArtist(),
		"codec", meta.Codec.String())

	folder := run.folder
	if run.album != nil && meta.TotalDiscs > 1 {
		folder = filepath.Join(folder, "CD "+strconv.Itoa(meta.DiscNumber))
	}

	codec := meta.Codec
	finalPath := d.trackPath(folder, run, meta, containerFor(codec))

	if d.settings.SkipExisting && fileExists(finalPath) {
		d.log.Info("track already downloaded", "path", finalPath)
		return TrackResult{Outcome: OutcomeSkipped, Path: finalPath}
	}

	d.pause(ctx, run.batch)

	req, err := service.BuildDownloadRequest(run.module, meta, d.settings.Quality, d.settings.CodecOptions)
	if err != nil {
		d.log.Error("cannot build download request", "track", meta.ID, "error", err)
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}

	result, outcome, err := d.fetchWithRetry(ctx, run.module, req)
	switch outcome {
	case fetchDeferred:
		return TrackResult{Outcome: OutcomeDeferred, Err: err}
	case fetchFailed:
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}

	// The service may deliver a different codec than metadata predicted.
	if result.ActualCodec != service.CodecUnknown && result.ActualCodec != codec {
		d.log.Info("delivered codec differs from metadata",
			"expected", codec.String(), "actual", result.ActualCodec.String())
		codec = result.ActualCodec
		finalPath = d.trackPath(folder, run, meta, containerFor(codec))
		if d.settings.SkipExisting && fileExists(finalPath) {
			return TrackResult{Outcome: OutcomeSkipped, Path: finalPath}
		}
	}

	tempPath := filepath.Join(d.settings.TempPath, meta.ID+"."+containerFor(codec))
	if _, err := d.fetcher.Fetch(ctx, result, tempPath, nil); err != nil {
		d.log.Error("track download failed", "track", meta.ID, "error", err)
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}

	coverPath := run.coverPath
	if coverPath == "" && d.settings.Covers.Embed {
		resolved, err := d.covers.Resolve(ctx, run.module, meta, d.settings.TempPath)
		if err != nil {
			d.log.Warn("cover resolution failed, continuing without artwork", "track", meta.ID, "error", err)
		} else {
			coverPath = resolved
		}
	}

	tempPath, codec, keptOriginal := d.convert(ctx, tempPath, codec)
	finalPath = d.trackPath(folder, run, meta, containerFor(codec))

	if err := moveFile(tempPath, finalPath); err != nil {
		d.log.Error("cannot move track into library", "track", meta.ID, "error", err)
		return TrackResult{Outcome: OutcomeFailed, Err: err}
	}
	if keptOriginal != "" {
		base := strings.TrimSuffix(finalPath, filepath.Ext(finalPath))
		originalDest := base + filepath.Ext(keptOriginal)
		if originalDest == finalPath {
			// Same container on both sides; keep the original distinguishable.
			originalDest = base + "_original" + filepath.Ext(keptOriginal)
		}
		if err := moveFile(keptOriginal, originalDest); err != nil {
			d.log.Warn("cannot keep original file", "track", meta.ID, "error", err)
		}
	}

	lyrics := d.fetchLyrics(ctx, run.module, meta)
	credits := d.fetchCredits(ctx, run.module, meta)

	data := d.tagData(meta, run, lyrics, credits)
	if err := d.tagger.Embed(finalPath, data, coverPath); err != nil {
		d.log.Warn("tagging failed, writing tag sidecar", "track", meta.ID, "error", err)
		if serr := d.writeTagSidecar(finalPath, data); serr != nil {
			d.log.Error("tag sidecar write failed", "track", meta.ID, "error", serr)
		}
	}

	d.writeTrackSideFiles(ctx, run, meta, finalPath, lyrics)

	d.log.Info("track finished", "track", meta.ID, "path", finalPath)
	return TrackResult{Outcome: OutcomeDownloaded, Path: finalPath}
}

// convert applies the codec conversion policy to the downloaded temp file.
// It returns the current file path, its codec, and the path of the retained
// original when keep-original is active. Conversion problems keep the
// delivered file; they never fail the track.
func (d *Downloader) convert(ctx context.Context, tempPath string, codec service.Codec) (string, service.Codec, string) {
	decision := transcode.Plan(codec, d.settings.Conversion)
	switch decision.Action {
	case transcode.ActionNone:
		return tempPath, codec, ""
	case transcode.ActionRefuseSpatial:
		d.log.Info("not converting spatial audio", "codec", codec.String())
		return tempPath, codec, ""
	case transcode.ActionRefuseUndesirable:
		d.log.Info("not converting lossy source, enable undesirable conversions to override",
			"codec", codec.String(), "target", decision.Target.String())
		return tempPath, codec, ""
	}

	d.log.Info("converting track", "from", codec.String(), "to", decision.Target.String())
	converted, kept, err := d.transcoder.Convert(ctx, tempPath, decision.Target)
	if err != nil {
		d.log.Error("conversion failed, keeping delivered format", "error", err)
		return tempPath, codec, ""
	}
	return converted, decision.Target, kept
}

// fetchLyrics retrieves lyrics from the configured lyrics module when one is
// set, locating the track there by name and artist search; the track's own
// service serves as the fallback.
func (d *Downloader) fetchLyrics(ctx context.Context, mod service.Module, meta *service.TrackMetadata) *service.LyricsInfo {
	if !d.settings.Lyrics.Embed && !d.settings.Lyrics.SaveSynced {
		return nil
	}

	if name := d.settings.Lyrics.Module; name != "" && name != mod.Name() {
		if lyrics := d.lyricsFromModule(ctx, name, meta); lyrics != nil {
			return lyrics
		}
	}

	provider, ok := mod.(service.LyricsProvider)
	if !ok || !mod.SupportsLyrics() {
		return nil
	}
	lyrics, err := provider.GetLyrics(ctx, meta.ID, meta.LyricsExtra)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrUnavailable) {
			d.log.Warn("lyrics fetch failed", "track", meta.ID, "error", err)
		}
		return nil
	}
	return lyrics
}

func (d *Downloader) lyricsFromModule(ctx context.Context, moduleName string, meta *service.TrackMetadata) *service.LyricsInfo {
	entry, ok := d.resolveTrackOn(ctx, moduleName, meta)
	if !ok {
		return nil
	}
	provider, ok := entry.module.(service.LyricsProvider)
	if !ok || !entry.module.SupportsLyrics() {
		d.log.Warn("lyrics module cannot serve lyrics", "module", moduleName)
		return nil
	}
	lyrics, err := provider.GetLyrics(ctx, entry.trackID, entry.extra)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrUnavailable) {
			d.log.Warn("lyrics module fetch failed", "module", moduleName, "track", entry.trackID, "error", err)
		}
		return nil
	}
	return lyrics
}

// fetchCredits mirrors fetchLyrics for per-track credits: the configured
// credits module first, then the track's own service.
func (d *Downloader) fetchCredits(ctx context.Context, mod service.Module, meta *service.TrackMetadata) []service.CreditsEntry {
	if !d.settings.Credits.Embed {
		return nil
	}

	if name := d.settings.Credits.Module; name != "" && name != mod.Name() {
		if credits := d.creditsFromModule(ctx, name, meta); credits != nil {
			return credits
		}
	}

	provider, ok := mod.(service.CreditsProvider)
	if !ok {
		return nil
	}
	credits, err := provider.GetCredits(ctx, meta.ID, meta.CreditsExtra)
	if err != nil {
		d.log.Warn("credits fetch failed", "track", meta.ID, "error", err)
		return nil
	}
	return credits
}

func (d *Downloader) creditsFromModule(ctx context.Context, moduleName string, meta *service.TrackMetadata) []service.CreditsEntry {
	entry, ok := d.resolveTrackOn(ctx, moduleName, meta)
	if !ok {
		return nil
	}
	provider, ok := entry.module.(service.CreditsProvider)
	if !ok {
		d.log.Warn("credits module cannot serve credits", "module", moduleName)
		return nil
	}
	credits, err := provider.GetCredits(ctx, entry.trackID, entry.extra)
	if err != nil {
		d.log.Warn("credits module fetch failed", "module", moduleName, "track", entry.trackID, "error", err)
		return nil
	}
	return credits
}

func (d *Downloader) tagData(meta *service.TrackMetadata, run trackRun, lyrics *service.LyricsInfo, credits []service.CreditsEntry) *tag.Data {
	data := &tag.Data{
		Title:       meta.Name,
		Artist:      strings.Join(meta.Artists, ", "),
		Album:       meta.Album,
		AlbumArtist: meta.AlbumArtist,
		Genre:       meta.Genre,
		ISRC:        meta.ISRC,
		UPC:         meta.UPC,
		TrackNumber: meta.TrackNumber,
		TotalTracks: meta.TotalTracks,
		DiscNumber:  meta.DiscNumber,
		TotalDiscs:  meta.TotalDiscs,
		Credits:     credits,
		Extra:       meta.DownloadExtra,
	}
	if meta.ReleaseYear > 0 {
		data.Year = strconv.Itoa(meta.ReleaseYear)
	}
	if run.album != nil {
		if data.Album == "" {
			data.Album = run.album.Name
		}
		if data.AlbumArtist == "" {
			data.AlbumArtist = run.album.Artist
		}
	}
	if lyrics != nil && d.settings.Lyrics.Embed {
		data.Lyrics = lyrics.Embedded
		if data.Lyrics == "" {
			data.Lyrics = lyrics.Synced
		}
	}
	return data
}

func (d *Downloader) writeTrackSideFiles(ctx context.Context, run trackRun, meta *service.TrackMetadata, finalPath string, lyrics *service.LyricsInfo) {
	base := strings.TrimSuffix(finalPath, filepath.Ext(finalPath))

	if lyrics != nil && d.settings.Lyrics.SaveSynced && lyrics.Synced != "" {
		if err := writeTextFile(base+".lrc", lyrics.Synced); err != nil {
			d.log.Warn("cannot write synced lyrics", "track", meta.ID, "error", err)
		}
	}

	if !run.sideFiles {
		return
	}

	if d.settings.SaveDescription && meta.Description != "" {
		if err := writeTextFile(base+".txt", meta.Description); err != nil {
			d.log.Warn("cannot write track description", "track", meta.ID, "error", err)
		}
	}

	if d.settings.SaveAnimatedCover && meta.AnimatedCoverURL != "" {
		if err := d.fetcher.FetchURL(ctx, meta.AnimatedCoverURL, base+"_cover.mp4"); err != nil {
			d.log.Warn("cannot save animated cover", "track", meta.ID, "error", err)
		}
	}

	if d.settings.Covers.SaveExternal {
		if _, err := d.covers.SaveExternal(ctx, run.module, meta, filepath.Dir(finalPath)); err != nil {
			d.log.Warn("cannot save external cover", "track", meta.ID, "error", err)
		}
	}
}

// trackPath renders the final file path for a track, applying the filename
// byte limit to the generated component.
func (d *Downloader) trackPath(folder string, run trackRun, meta *service.TrackMetadata, ext string) string {
	number := meta.TrackNumber
	total := meta.TotalTracks
	if run.position > 0 {
		number = run.position
		total = run.total
	}

	album := meta.Album
	if album == "" && run.album != nil {
		album = run.album.Name
	}

	base := pathing.Format(run.template, pathing.TemplateValues{
		Name:        meta.Name,
		Artist:      meta.MainArtist(),
		Album:       album,
		ID:          meta.ID,
		TrackNumber: number,
		TotalTracks: total,
		DiscNumber:  meta.DiscNumber,
		TotalDiscs:  meta.TotalDiscs,
		ReleaseYear: meta.ReleaseYear,
		Explicit:    meta.Explicit,
		PadNumbers:  d.settings.Formatting.EnableZeroPad && run.batch,
	})

	path := filepath.Join(folder, base+"."+ext)
	return pathing.FixByteLimit(path, d.settings.Formatting.ByteLimit)
}
