package downloader

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/cover"
	"github.com/musegrab/musegrab/grab/download"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/service/registry"
	"github.com/musegrab/musegrab/grab/tag"
	"github.com/musegrab/musegrab/grab/transcode"
)

// Downloader is the orchestration engine: it walks media references down to
// individual tracks and runs each through the retrieval pipeline. All
// behavior is fixed by the Settings snapshot taken at construction.
type Downloader struct {
	settings   config.Settings
	registry   *registry.Registry
	fetcher    *download.Fetcher
	covers     *cover.Resolver
	transcoder *transcode.Transcoder
	tagger     *tag.Tagger
	log        grab.Logger

	// pace spaces track retrievals inside multi-track batches.
	pace *rate.Limiter
}

func New(settings config.Settings, reg *registry.Registry, log grab.Logger) *Downloader {
	fetcher := download.NewFetcher(download.FetcherOptions{
		Timeout:  settings.DownloadTimeout,
		CheckMD5: settings.CheckMD5,
		Multipart: download.MultipartOptions{
			Enabled:     settings.Multipart.Enabled,
			Concurrency: settings.Multipart.Concurrency,
			MinSize:     settings.Multipart.MinSize,
		},
	})

	lookup := func(name string) (service.Module, bool) {
		return reg.Get(name)
	}

	var pace *rate.Limiter
	if settings.TrackPause > 0 {
		pace = rate.NewLimiter(rate.Every(settings.TrackPause), 1)
	}

	return &Downloader{
		settings:   settings,
		registry:   reg,
		fetcher:    fetcher,
		covers:     cover.NewResolver(fetcher, lookup, settings.Covers, log),
		transcoder: transcode.New(settings.Conversion, log),
		tagger:     tag.New(log),
		log:        log,
		pace:       pace,
	}
}

// Download walks a media reference with the named module. It is the single
// entry point used by job execution; the typed methods below serve direct
// library callers.
func (d *Downloader) Download(ctx context.Context, moduleName string, ref service.MediaReference) (*Summary, error) {
	mod, ok := d.registry.Get(moduleName)
	if !ok {
		return nil, fmt.Errorf("module not registered: %s", moduleName)
	}

	if err := os.MkdirAll(d.settings.TempPath, os.ModePerm); err != nil {
		return nil, err
	}

	switch ref.Type {
	case service.MediaTrack:
		// A standalone track has no later pass to pick up a deferral.
		res := demoteDeferred(d.DownloadTrack(ctx, mod, ref.ID, ref.Extra))
		sum := &Summary{}
		sum.add(res)
		if res.Outcome == OutcomeFailed {
			return sum, res.Err
		}
		return sum, nil
	case service.MediaAlbum:
		return d.DownloadAlbum(ctx, mod, ref.ID, ref.Extra)
	case service.MediaPlaylist:
		return d.DownloadPlaylist(ctx, mod, ref.ID, ref.Extra)
	case service.MediaArtist:
		return d.DownloadArtist(ctx, mod, ref.ID, ref.Extra)
	default:
		return nil, fmt.Errorf("unknown media type %v", ref.Type)
	}
}

// pause waits out the inter-track interval inside multi-track batches.
func (d *Downloader) pause(ctx context.Context, batch bool) {
	if !batch || d.pace == nil {
		return
	}
	_ = d.pace.Wait(ctx)
}
