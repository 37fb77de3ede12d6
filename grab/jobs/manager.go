package jobs

import (
	"bytes"
	"context"
	"sync"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/downloader"
	"github.com/musegrab/musegrab/grab/logger"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/service/registry"
	"github.com/musegrab/musegrab/grab/worker"
)

// runner executes one download job; satisfied by downloader.Downloader.
type runner interface {
	Download(ctx context.Context, moduleName string, ref service.MediaReference) (*downloader.Summary, error)
}

// Manager queues download jobs onto the worker pool and persists their
// lifecycle. Each job runs with its own logger so its output can be stored
// alongside the result.
type Manager struct {
	repo     *Repository
	pool     *worker.Pool
	log      grab.Logger
	logLevel string
	quality  string

	// newRunner builds the engine for one job with its captured logger.
	newRunner func(log grab.Logger) runner
}

func NewManager(repo *Repository, settings config.Settings, reg *registry.Registry, pool *worker.Pool, log grab.Logger, logLevel string) *Manager {
	return &Manager{
		repo:     repo,
		pool:     pool,
		log:      log,
		logLevel: logLevel,
		quality:  settings.Quality.String(),
		newRunner: func(jobLog grab.Logger) runner {
			return downloader.New(settings, reg, jobLog)
		},
	}
}

// Enqueue persists a queued job and submits it to the pool. The returned job
// carries its assigned ID; progress is observed through the repository.
func (m *Manager) Enqueue(ctx context.Context, moduleName string, ref service.MediaReference, sourceURL string) (*grab.Job, error) {
	job := &grab.Job{
		Status:    grab.JobQueued,
		Module:    moduleName,
		MediaType: ref.Type.String(),
		MediaID:   ref.ID,
		SourceURL: sourceURL,
	}
	if err := m.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := m.pool.Submit(func() { m.run(job, ref) }); err != nil {
		job.Status = grab.JobFailed
		job.Error = err.Error()
		_ = m.repo.UpdateJob(ctx, job)
		return nil, err
	}

	m.log.Info("job queued", "job", job.ID, "module", moduleName, "type", job.MediaType, "id", ref.ID)
	return job, nil
}

// RunSync executes a job on the calling goroutine and returns its final
// state. Used by the one-shot CLI path, where there is nothing else to do
// while the job runs.
func (m *Manager) RunSync(ctx context.Context, moduleName string, ref service.MediaReference, sourceURL string) (*grab.Job, error) {
	job := &grab.Job{
		Status:    grab.JobQueued,
		Module:    moduleName,
		MediaType: ref.Type.String(),
		MediaID:   ref.ID,
		SourceURL: sourceURL,
	}
	if err := m.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	m.run(job, ref)
	return job, nil
}

func (m *Manager) run(job *grab.Job, ref service.MediaReference) {
	ctx := context.Background()

	job.Status = grab.JobRunning
	if err := m.repo.UpdateJob(ctx, job); err != nil {
		m.log.Error("cannot mark job running", "job", job.ID, "error", err)
	}

	var buf lockedBuffer
	jobLog := logger.NewWithWriter(&buf, m.logLevel)

	sum, err := m.newRunner(jobLog).Download(ctx, job.Module, ref)

	if sum != nil {
		job.Downloaded = sum.Downloaded
		job.Skipped = sum.Skipped
		job.Failed = sum.Failed
		job.Paths = sum.Paths
		m.archive(ctx, job, sum)
	}
	job.Logs = buf.String()

	if err != nil {
		job.Status = grab.JobFailed
		job.Error = err.Error()
		m.log.Error("job failed", "job", job.ID, "error", err)
	} else {
		job.Status = grab.JobCompleted
		m.log.Info("job completed", "job", job.ID,
			"downloaded", job.Downloaded, "skipped", job.Skipped, "failed", job.Failed)
	}

	if err := m.repo.UpdateJob(ctx, job); err != nil {
		m.log.Error("cannot persist job result", "job", job.ID, "error", err)
	}
}

func (m *Manager) archive(ctx context.Context, job *grab.Job, sum *downloader.Summary) {
	for _, res := range sum.Results {
		if res.Outcome != downloader.OutcomeDownloaded || res.TrackID == "" {
			continue
		}
		record := &TrackRecord{
			Module:  res.Module,
			TrackID: res.TrackID,
			Quality: m.quality,
			Path:    res.Path,
			JobID:   job.ID,
		}
		if err := m.repo.RecordTrack(ctx, record); err != nil {
			m.log.Warn("cannot archive track", "job", job.ID, "track", res.TrackID, "error", err)
		}
	}
}

// Shutdown drains the pool and waits for running jobs.
func (m *Manager) Shutdown(ctx context.Context) error {
	return m.pool.Shutdown(ctx)
}

// lockedBuffer guards the log buffer; the job goroutine writes while the
// final read happens after the download returns, but slog handlers may be
// shared by child loggers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
