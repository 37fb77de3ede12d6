package grab

import "time"

// Job status values.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is one queued download request and its outcome.
type Job struct {
	ID        uint
	CreatedAt time.Time
	UpdatedAt time.Time

	Status string

	// Module is the service module handling the job.
	Module string

	// MediaType and MediaID identify the requested entity; SourceURL is the
	// share link the request came from, when it came from one.
	MediaType string
	MediaID   string
	SourceURL string

	Downloaded int
	Skipped    int
	Failed     int

	// Paths lists the files the job produced.
	Paths []string

	// Logs is the captured per-job log output.
	Logs string

	// Error holds the failure cause for failed jobs.
	Error string
}
