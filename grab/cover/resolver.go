package cover

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/download"
	"github.com/musegrab/musegrab/grab/service"
)

// ModuleLookup resolves a module by name, used to reach the configured
// comparison service.
type ModuleLookup func(name string) (service.Module, bool)

// Resolver picks the cover to embed for a track. The primary module's art is
// the baseline; when a comparison module is configured, its catalog is
// searched for the same artwork in better quality, verified perceptually so
// a wrong search hit can never replace the real cover.
type Resolver struct {
	fetcher *download.Fetcher
	lookup  ModuleLookup
	opts    config.CoverSettings
	log     grab.Logger
}

func NewResolver(fetcher *download.Fetcher, lookup ModuleLookup, opts config.CoverSettings, log grab.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		lookup:  lookup,
		opts:    opts,
		log:     log,
	}
}

// Resolve fetches the cover for the track into tempDir and returns its path.
// An empty path with nil error means the track has no cover art at all.
func (r *Resolver) Resolve(ctx context.Context, mod service.Module, track *service.TrackMetadata, tempDir string) (string, error) {
	baselineURL := r.baselineURL(ctx, mod, track)
	if baselineURL == "" {
		return "", nil
	}

	baselinePath := filepath.Join(tempDir, track.ID+"_cover."+coverExt(r.opts.Main.Ext))
	if err := r.fetcher.FetchURL(ctx, baselineURL, baselinePath); err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}

	if r.opts.CompareModule == "" || r.opts.CompareModule == mod.Name() || r.lookup == nil {
		return baselinePath, nil
	}

	better := r.findBetterCover(ctx, track, baselineURL, baselinePath, tempDir)
	if better != "" {
		return better, nil
	}
	return baselinePath, nil
}

// ResolveURL fetches a known cover URL (album or playlist art) into destPath.
func (r *Resolver) ResolveURL(ctx context.Context, url, destPath string) error {
	return r.fetcher.FetchURL(ctx, url, destPath)
}

// SaveExternal writes the separate full-size cover copy next to a track.
// The external variant is requested independently of the embedded one, so a
// png library copy can coexist with jpg tags.
func (r *Resolver) SaveExternal(ctx context.Context, mod service.Module, track *service.TrackMetadata, destDir string) (string, error) {
	url := track.CoverURL
	if provider, ok := mod.(service.CoverProvider); ok && mod.Capabilities().Covers {
		if info, err := provider.GetCover(ctx, track.ID, r.opts.External, track.CoverExtra); err == nil && info.URL != "" {
			url = info.URL
		}
	}
	if url == "" {
		return "", nil
	}

	destPath := filepath.Join(destDir, "cover."+coverExt(r.opts.External.Ext))
	if err := r.fetcher.FetchURL(ctx, url, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

func (r *Resolver) baselineURL(ctx context.Context, mod service.Module, track *service.TrackMetadata) string {
	if provider, ok := mod.(service.CoverProvider); ok && mod.Capabilities().Covers {
		info, err := provider.GetCover(ctx, track.ID, r.opts.Main, track.CoverExtra)
		if err == nil && info.URL != "" {
			return info.URL
		}
		if err != nil {
			r.log.Warn("cover lookup failed, using metadata url", "module", mod.Name(), "track", track.ID, "error", err)
		}
	}
	return track.CoverURL
}

// findBetterCover searches the comparison module for the same artwork and
// returns the path of a verified higher-quality cover, or "" when none of
// the candidates match. Already-tried URLs are skipped so a service that
// returns the same asset under several IDs is only fetched once.
func (r *Resolver) findBetterCover(ctx context.Context, track *service.TrackMetadata, baselineURL, baselinePath, tempDir string) string {
	secondary, ok := r.lookup(r.opts.CompareModule)
	if !ok {
		r.log.Warn("cover comparison module not registered", "module", r.opts.CompareModule)
		return ""
	}
	provider, ok := secondary.(service.CoverProvider)
	if !ok || !secondary.SupportsSearch() {
		r.log.Warn("cover comparison module lacks search or covers", "module", r.opts.CompareModule)
		return ""
	}

	query := strings.TrimSpace(track.Name + " " + strings.Join(track.Artists, " "))
	results, err := secondary.Search(ctx, service.MediaTrack, query, 5)
	if err != nil {
		r.log.Warn("cover comparison search failed", "module", secondary.Name(), "error", err)
		return ""
	}

	attempted := map[string]struct{}{baselineURL: {}}
	testOpts := service.CoverOptions{Ext: r.opts.Main.Ext, Resolution: r.opts.CompareResolution}

	for _, candidate := range results {
		info, err := provider.GetCover(ctx, candidate.ID, testOpts, candidate.Extra)
		if err != nil || info.URL == "" {
			continue
		}
		if _, seen := attempted[info.URL]; seen {
			continue
		}
		attempted[info.URL] = struct{}{}

		candidatePath := filepath.Join(tempDir, track.ID+"_cand_"+candidate.ID+"."+coverExt(info.Ext))
		if err := r.fetcher.FetchURL(ctx, info.URL, candidatePath); err != nil {
			continue
		}

		distance, err := DiffFiles(baselinePath, candidatePath, r.opts.CompareResolution)
		if err != nil {
			r.log.Warn("cover comparison failed", "candidate", candidate.ID, "error", err)
			continue
		}
		if distance > r.opts.CompareThreshold {
			r.log.Debug("cover candidate rejected", "candidate", candidate.ID, "distance", distance)
			continue
		}

		full, err := provider.GetCover(ctx, candidate.ID, r.opts.Main, candidate.Extra)
		if err != nil || full.URL == "" {
			continue
		}
		fullPath := filepath.Join(tempDir, track.ID+"_cover_hq."+coverExt(full.Ext))
		if err := r.fetcher.FetchURL(ctx, full.URL, fullPath); err != nil {
			continue
		}

		r.log.Info("using cover from comparison module", "module", secondary.Name(), "candidate", candidate.ID, "distance", distance)
		return fullPath
	}

	return ""
}

func coverExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return "jpg"
	}
	return ext
}
