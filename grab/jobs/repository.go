package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/musegrab/musegrab/grab"
)

// Repository provides access to the job and track archive database.
type Repository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a repository backed by SQLite.
func NewSQLiteRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&JobModel{}, &TrackRecordModel{}); err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Repository{db: db}, nil
}

// ConfigurePool updates the database connection pool settings.
func (r *Repository) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	if r == nil || r.db == nil {
		return errors.New("repository not configured")
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	if maxOpen >= 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime >= 0 {
		sqlDB.SetConnMaxLifetime(maxLifetime)
	}
	return nil
}

// CreateJob inserts a new job record and fills in its assigned ID.
func (r *Repository) CreateJob(ctx context.Context, job *grab.Job) error {
	model := toModel(job)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	job.ID = model.ID
	job.CreatedAt = model.CreatedAt
	job.UpdatedAt = model.UpdatedAt
	return nil
}

// UpdateJob saves the current state of a job.
func (r *Repository) UpdateJob(ctx context.Context, job *grab.Job) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(toModel(job)).Error
	})
}

// FindJob returns a job by ID.
func (r *Repository) FindJob(ctx context.Context, id uint) (*grab.Job, error) {
	var model JobModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, err
	}
	return toInternal(model), nil
}

// ListJobs returns the most recent jobs, newest first.
func (r *Repository) ListJobs(ctx context.Context, limit int) ([]*grab.Job, error) {
	if limit <= 0 {
		limit = 20
	}

	var models []JobModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*grab.Job, 0, len(models))
	for _, model := range models {
		jobs = append(jobs, toInternal(model))
	}
	return jobs, nil
}

// CountJobsByStatus returns job counts grouped by status.
func (r *Repository) CountJobsByStatus(ctx context.Context) (map[string]int64, error) {
	rows := make([]struct {
		Status string
		Count  int64
	}, 0)
	err := r.db.WithContext(ctx).Model(&JobModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

// ResetStaleJobs marks jobs left running by a previous process as failed.
// Called once at startup before the pool starts taking work.
func (r *Repository) ResetStaleJobs(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&JobModel{}).
		Where("status = ?", grab.JobRunning).
		Updates(map[string]any{
			"status": grab.JobFailed,
			"error":  "interrupted by shutdown",
		})
	return res.RowsAffected, res.Error
}

// RecordTrack archives a downloaded track, replacing any previous record for
// the same module and track.
func (r *Repository) RecordTrack(ctx context.Context, record *TrackRecord) error {
	model := &TrackRecordModel{
		ModuleRef: record.Module,
		TrackID:   record.TrackID,
		Quality:   record.Quality,
		Path:      record.Path,
		JobID:     record.JobID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "module"},
			{Name: "track_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at", "quality", "path", "job_id"}),
	}).Create(model).Error
}

// FindTrackRecord returns the archive entry for a track, or nil when the
// track was never downloaded.
func (r *Repository) FindTrackRecord(ctx context.Context, module, trackID string) (*TrackRecord, error) {
	var model TrackRecordModel
	err := r.db.WithContext(ctx).
		Where("module = ? AND track_id = ?", module, trackID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return recordToInternal(model), nil
}

// CountTracks returns the number of archived tracks.
func (r *Repository) CountTracks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TrackRecordModel{}).Count(&count).Error
	return count, err
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-64000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
