package downloader

import (
	"context"
	"path/filepath"

	"github.com/musegrab/musegrab/grab/pathing"
	"github.com/musegrab/musegrab/grab/service"
)

// DownloadArtist downloads an artist's discography: every album under the
// artist folder, then the standalone tracks not belonging to any of them.
// A failing album never aborts the rest of the discography.
func (d *Downloader) DownloadArtist(ctx context.Context, mod service.Module, artistID string, extra service.Params) (*Summary, error) {
	req := service.BuildArtistInfoRequest(mod, artistID, d.settings.ArtistIncludeCredited, extra)
	artist, err := mod.GetArtist(ctx, req)
	if err != nil {
		return nil, &service.ModuleError{Module: mod.Name(), Resource: "artist", ID: artistID, Err: err}
	}

	d.log.Info("downloading artist",
		"module", mod.Name(),
		"artist", artist.ID,
		"name", artist.Name,
		"albums", len(artist.AlbumIDs),
		"tracks", len(artist.TrackIDs))

	artistDir := filepath.Join(d.settings.DownloadPath, pathing.SanitizeName(artist.Name))
	summary := &Summary{}

	expectArtist := ""
	if d.settings.IgnoreDifferentArtists {
		expectArtist = artist.Name
	}

	albumExtra := mergeParams(extra, artist.AlbumExtra)
	covered := make(map[string]struct{})

	for _, albumID := range artist.AlbumIDs {
		album, err := mod.GetAlbum(ctx, albumID, albumExtra)
		if err != nil {
			d.log.Error("artist album fetch failed", "artist", artist.ID, "album", albumID, "error", err)
			summary.add(TrackResult{Outcome: OutcomeFailed, Err: err})
			continue
		}
		for _, trackID := range album.TrackIDs {
			covered[trackID] = struct{}{}
		}
		summary.merge(d.downloadAlbumTracks(ctx, mod, album, artistDir, albumExtra, expectArtist))
	}

	trackExtra := mergeParams(extra, artist.TrackExtra)
	for _, trackID := range artist.TrackIDs {
		if d.settings.SeparateTracksSkipDownloaded {
			if _, seen := covered[trackID]; seen {
				d.log.Debug("skipping track already covered by an album", "artist", artist.ID, "track", trackID)
				continue
			}
		}
		res := d.runTrack(ctx, trackRun{
			module:       mod,
			trackID:      trackID,
			extra:        trackExtra,
			folder:       artistDir,
			template:     d.settings.Formatting.SingleTrackTemplate,
			batch:        true,
			sideFiles:    true,
			expectArtist: expectArtist,
		})
		summary.add(demoteDeferred(res))
	}

	d.log.Info("artist finished",
		"artist", artist.ID,
		"downloaded", summary.Downloaded,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}
