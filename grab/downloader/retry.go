package downloader

import (
	"context"
	"time"

	"github.com/musegrab/musegrab/grab/service"
)

// fetchOutcome is the retrieval verdict for one track.
type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchFailed
	fetchDeferred
)

// fetchWithRetry resolves a track's download source under the retrieval
// policy: transient errors consume attempts with a fixed delay between
// them, a rate limit stops immediately so the track can be deferred to a
// later pass, and unavailable content fails without burning attempts.
func (d *Downloader) fetchWithRetry(ctx context.Context, mod service.Module, req service.DownloadRequest) (*service.DownloadResult, fetchOutcome, error) {
	maxAttempts := d.settings.FetchMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := mod.Download(ctx, req)
		if err == nil {
			return result, fetchOK, nil
		}
		lastErr = err

		switch service.Classify(err) {
		case service.KindRateLimit:
			d.log.Warn("service rate limited, deferring track", "module", mod.Name(), "track", req.TrackID)
			return nil, fetchDeferred, err
		case service.KindUnavailable:
			d.log.Warn("track unavailable", "module", mod.Name(), "track", req.TrackID, "error", err)
			return nil, fetchFailed, err
		}

		d.log.Warn("track retrieval failed",
			"module", mod.Name(),
			"track", req.TrackID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, fetchFailed, ctx.Err()
			case <-time.After(d.settings.FetchRetryDelay):
			}
		}
	}

	d.log.Error("track retrieval exhausted attempts", "module", mod.Name(), "track", req.TrackID, "error", lastErr)
	return nil, fetchFailed, lastErr
}
