package jobs

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/musegrab/musegrab/grab"
)

// JobModel mirrors the jobs schema.
type JobModel struct {
	gorm.Model
	Status    string `gorm:"not null;default:'queued';index"`
	ModuleRef string `gorm:"column:module;not null;default:''"`
	MediaType string `gorm:"not null;default:''"`
	MediaID   string `gorm:"not null;default:''"`
	SourceURL string

	Downloaded int
	Skipped    int
	Failed     int

	// Paths is a JSON array of produced file paths.
	Paths string

	Logs  string
	Error string
}

func (JobModel) TableName() string {
	return "jobs"
}

func toInternal(model JobModel) *grab.Job {
	var paths []string
	if model.Paths != "" {
		_ = json.Unmarshal([]byte(model.Paths), &paths)
	}
	return &grab.Job{
		ID:         model.ID,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
		Status:     model.Status,
		Module:     model.ModuleRef,
		MediaType:  model.MediaType,
		MediaID:    model.MediaID,
		SourceURL:  model.SourceURL,
		Downloaded: model.Downloaded,
		Skipped:    model.Skipped,
		Failed:     model.Failed,
		Paths:      paths,
		Logs:       model.Logs,
		Error:      model.Error,
	}
}

func toModel(job *grab.Job) *JobModel {
	if job == nil {
		return &JobModel{}
	}

	var paths string
	if len(job.Paths) > 0 {
		if raw, err := json.Marshal(job.Paths); err == nil {
			paths = string(raw)
		}
	}

	model := &JobModel{
		Status:     job.Status,
		ModuleRef:  job.Module,
		MediaType:  job.MediaType,
		MediaID:    job.MediaID,
		SourceURL:  job.SourceURL,
		Downloaded: job.Downloaded,
		Skipped:    job.Skipped,
		Failed:     job.Failed,
		Paths:      paths,
		Logs:       job.Logs,
		Error:      job.Error,
	}

	if job.ID != 0 {
		model.ID = job.ID
	}
	if !job.CreatedAt.IsZero() {
		model.CreatedAt = job.CreatedAt
	}
	if !job.UpdatedAt.IsZero() {
		model.UpdatedAt = job.UpdatedAt
	}

	return model
}

// TrackRecordModel archives tracks a job downloaded, so later runs can tell
// what the library already holds without scanning the filesystem.
type TrackRecordModel struct {
	gorm.Model
	ModuleRef string `gorm:"column:module;not null;default:'';index:idx_module_track,unique"`
	TrackID   string `gorm:"not null;default:'';index:idx_module_track,unique"`
	Quality   string `gorm:"not null;default:''"`
	Path      string
	JobID     uint `gorm:"index"`
}

func (TrackRecordModel) TableName() string {
	return "track_records"
}

// TrackRecord is the internal view of an archived track.
type TrackRecord struct {
	ID        uint
	CreatedAt time.Time
	Module    string
	TrackID   string
	Quality   string
	Path      string
	JobID     uint
}

func recordToInternal(model TrackRecordModel) *TrackRecord {
	return &TrackRecord{
		ID:        model.ID,
		CreatedAt: model.CreatedAt,
		Module:    model.ModuleRef,
		TrackID:   model.TrackID,
		Quality:   model.Quality,
		Path:      model.Path,
		JobID:     model.JobID,
	}
}
