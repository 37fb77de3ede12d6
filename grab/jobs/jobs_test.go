package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/musegrab/musegrab/grab"
	"github.com/musegrab/musegrab/grab/config"
	"github.com/musegrab/musegrab/grab/downloader"
	"github.com/musegrab/musegrab/grab/service"
	"github.com/musegrab/musegrab/grab/service/registry"
	"github.com/musegrab/musegrab/grab/worker"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "jobs.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestJobLifecycle(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job := &grab.Job{
		Status:    grab.JobQueued,
		Module:    "netease",
		MediaType: "album",
		MediaID:   "a1",
	}
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("CreateJob() did not assign an ID")
	}

	job.Status = grab.JobCompleted
	job.Downloaded = 12
	job.Paths = []string{"/music/a.flac", "/music/b.flac"}
	if err := repo.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob() error: %v", err)
	}

	got, err := repo.FindJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("FindJob() error: %v", err)
	}
	if got.Status != grab.JobCompleted || got.Downloaded != 12 {
		t.Fatalf("FindJob() = %+v, want completed with 12 downloads", got)
	}
	if len(got.Paths) != 2 || got.Paths[0] != "/music/a.flac" {
		t.Fatalf("FindJob() paths = %v", got.Paths)
	}

	jobs, err := repo.ListJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ListJobs() error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("ListJobs() returned %d jobs, want 1", len(jobs))
	}

	counts, err := repo.CountJobsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountJobsByStatus() error: %v", err)
	}
	if counts[grab.JobCompleted] != 1 {
		t.Fatalf("CountJobsByStatus() = %v", counts)
	}
}

func TestResetStaleJobs(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	job := &grab.Job{Status: grab.JobRunning, Module: "netease", MediaType: "track", MediaID: "t1"}
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	n, err := repo.ResetStaleJobs(ctx)
	if err != nil {
		t.Fatalf("ResetStaleJobs() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("ResetStaleJobs() reset %d jobs, want 1", n)
	}

	got, err := repo.FindJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != grab.JobFailed {
		t.Fatalf("stale job status = %s, want failed", got.Status)
	}
}

func TestTrackArchiveUpsert(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	first := &TrackRecord{Module: "netease", TrackID: "t1", Quality: "lossless", Path: "/music/old.flac", JobID: 1}
	if err := repo.RecordTrack(ctx, first); err != nil {
		t.Fatalf("RecordTrack() error: %v", err)
	}

	second := &TrackRecord{Module: "netease", TrackID: "t1", Quality: "hires", Path: "/music/new.flac", JobID: 2}
	if err := repo.RecordTrack(ctx, second); err != nil {
		t.Fatalf("RecordTrack() upsert error: %v", err)
	}

	got, err := repo.FindTrackRecord(ctx, "netease", "t1")
	if err != nil {
		t.Fatalf("FindTrackRecord() error: %v", err)
	}
	if got == nil || got.Path != "/music/new.flac" || got.Quality != "hires" {
		t.Fatalf("FindTrackRecord() = %+v, want updated record", got)
	}

	count, err := repo.CountTracks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("CountTracks() = %d, want 1 after upsert", count)
	}

	missing, err := repo.FindTrackRecord(ctx, "netease", "absent")
	if err != nil {
		t.Fatalf("FindTrackRecord() for missing track: %v", err)
	}
	if missing != nil {
		t.Fatalf("FindTrackRecord() = %+v, want nil for missing track", missing)
	}
}

// fakeRunner scripts the engine behavior for manager tests.
type fakeRunner struct {
	log grab.Logger
	sum *downloader.Summary
	err error
}

func (f *fakeRunner) Download(_ context.Context, _ string, _ service.MediaReference) (*downloader.Summary, error) {
	f.log.Info("pretending to download")
	return f.sum, f.err
}

func newTestManager(t *testing.T, sum *downloader.Summary, runErr error) (*Manager, *Repository) {
	t.Helper()
	repo := testRepo(t)
	pool := worker.New(1)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	m := NewManager(repo, config.Settings{}, registry.New(), pool, discardLogger{}, "info")
	m.newRunner = func(jobLog grab.Logger) runner {
		return &fakeRunner{log: jobLog, sum: sum, err: runErr}
	}
	return m, repo
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any)    {}
func (discardLogger) Info(string, ...any)     {}
func (discardLogger) Warn(string, ...any)     {}
func (discardLogger) Error(string, ...any)    {}
func (discardLogger) With(...any) grab.Logger { return discardLogger{} }

func waitForJob(t *testing.T, repo *Repository, id uint) *grab.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.FindJob(context.Background(), id)
		if err != nil {
			t.Fatalf("FindJob() error: %v", err)
		}
		if job.Status == grab.JobCompleted || job.Status == grab.JobFailed {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestManagerRunsQueuedJob(t *testing.T) {
	sum := &downloader.Summary{
		Downloaded: 2,
		Paths:      []string{"/music/a.flac", "/music/b.flac"},
		Results: []downloader.TrackResult{
			{Outcome: downloader.OutcomeDownloaded, Module: "fake", TrackID: "t1", Path: "/music/a.flac"},
			{Outcome: downloader.OutcomeDownloaded, Module: "fake", TrackID: "t2", Path: "/music/b.flac"},
		},
	}
	m, repo := newTestManager(t, sum, nil)

	ref := service.MediaReference{Type: service.MediaAlbum, ID: "a1"}
	job, err := m.Enqueue(context.Background(), "fake", ref, "https://example.com/album/a1")
	if err != nil {
		t.Fatalf("Enqueue() error: %v", err)
	}

	final := waitForJob(t, repo, job.ID)
	if final.Status != grab.JobCompleted {
		t.Fatalf("job status = %s, want completed (error: %s)", final.Status, final.Error)
	}
	if final.Downloaded != 2 || len(final.Paths) != 2 {
		t.Fatalf("job result = %+v", final)
	}
	if final.Logs == "" {
		t.Fatal("job logs were not captured")
	}

	record, err := repo.FindTrackRecord(context.Background(), "fake", "t1")
	if err != nil {
		t.Fatal(err)
	}
	if record == nil || record.JobID != job.ID {
		t.Fatalf("track archive record = %+v, want entry for job %d", record, job.ID)
	}
}

func TestManagerMarksFailedJob(t *testing.T) {
	m, repo := newTestManager(t, nil, errors.New("module exploded"))

	job, err := m.RunSync(context.Background(), "fake", service.MediaReference{Type: service.MediaTrack, ID: "t1"}, "")
	if err != nil {
		t.Fatalf("RunSync() error: %v", err)
	}
	if job.Status != grab.JobFailed {
		t.Fatalf("job status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Fatal("job error not recorded")
	}

	got, err := repo.FindJob(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != grab.JobFailed {
		t.Fatalf("persisted status = %s, want failed", got.Status)
	}
}
