package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/transcription"
)

// Resolution is the outcome of audio resolution persisted on a job.
type Resolution struct {
	ProcessedURL string
	IdentityKey  string
	Title        string
	DurationSec  float64
}

// Completion is the finalization record of an ingested transcript.
type Completion struct {
	DurationSec int
	CostMinutes float64
	Language    string
	// Title replaces the stored title when non-empty.
	Title string
	// Outputs are upserted only when the job could be completed.
	Outputs []transcription.Output
}

// Store persists jobs and their results.
type Store struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewStore creates a Store on db.
func NewStore(db *database.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log.WithComponent("jobs"), now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new job. Unset status defaults to pending.
func (s *Store) Create(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = StatusPending
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return database.FromDatabase(err, "job")
	}
	return nil
}

// Ensure inserts job unless a row with its id already exists, and returns
// the stored row.
func (s *Store) Ensure(ctx context.Context, job *Job) (*Job, error) {
	if job.Status == "" {
		job.Status = StatusPending
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(job).Error
	if err != nil {
		return nil, database.FromDatabase(err, "job")
	}
	return s.Get(ctx, job.ID)
}

// Get loads a job by id.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, database.FromDatabase(err, "job").WithDetail("job_id", id)
		}
		return nil, database.FromDatabase(err, "job")
	}
	return &job, nil
}

// Status re-reads only the status column.
func (s *Store) Status(ctx context.Context, id string) (Status, error) {
	var job Job
	err := s.db.WithContext(ctx).Select("status").First(&job, "id = ?", id).Error
	if err != nil {
		return "", database.FromDatabase(err, "job")
	}
	return job.Status, nil
}

// SetResolved records the resolved audio. A blank URL never clears a stored
// one; title and duration are only filled in when provided.
func (s *Store) SetResolved(ctx context.Context, id string, r Resolution) error {
	updates := map[string]any{}
	if r.ProcessedURL != "" {
		updates["processed_url"] = r.ProcessedURL
	}
	if r.IdentityKey != "" {
		updates["source_identity_key"] = r.IdentityKey
	}
	if r.DurationSec > 0 {
		updates["original_duration_sec"] = r.DurationSec
	}
	if len(updates) == 0 && r.Title == "" {
		return nil
	}

	return s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&Job{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return database.FromDatabase(err, "job")
			}
		}
		if r.Title == "" {
			return nil
		}
		var job Job
		if err := tx.Select("title").First(&job, "id = ?", id).Error; err != nil {
			return database.FromDatabase(err, "job")
		}
		if !transcription.IsPlaceholderTitle(job.Title) {
			return nil
		}
		return tx.Model(&Job{}).Where("id = ?", id).Update("title", r.Title).Error
	})
}

// MarkProcessing moves a pending job to processing after a submission was
// accepted by supplier. It returns false when the job had already moved on.
func (s *Store) MarkProcessing(ctx context.Context, id, supplier, ref string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":       StatusProcessing,
			"supplier":     supplier,
			"supplier_ref": ref,
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "job")
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed fails a non-terminal job with reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Updates(map[string]any{
			"status":            StatusFailed,
			"failure_reason":    reason,
			"completed_at":      now,
			"ingest_started_at": nil,
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "job")
	}
	if res.RowsAffected == 1 {
		s.log.Warn("Job failed", logger.Fields(logger.FieldJobID, id, "reason", reason))
	}
	return res.RowsAffected == 1, nil
}

// Cancel moves a non-terminal job to cancelled.
func (s *Store) Cancel(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Update("status", StatusCancelled)
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "job")
	}
	return res.RowsAffected == 1, nil
}

// ClaimForIngest takes the ingestion lease: the job moves to processing and
// records when ingestion started. A lease younger than lease blocks the
// claim, so a concurrent duplicate delivery gets false and backs off.
func (s *Store) ClaimForIngest(ctx context.Context, id string, lease time.Duration) (bool, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status IN ?", id, activeStatuses).
		Where("ingest_started_at IS NULL OR ingest_started_at < ?", now.Add(-lease)).
		Updates(map[string]any{
			"status":            StatusProcessing,
			"ingest_started_at": now,
		})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "job")
	}
	return res.RowsAffected == 1, nil
}

// ReleaseIngest drops the ingestion lease so a redelivery can retry.
func (s *Store) ReleaseIngest(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusProcessing).
		Update("ingest_started_at", nil).Error
	if err != nil {
		return database.FromDatabase(err, "job")
	}
	return nil
}

// saveResults upserts every output under (job_id, format).
func saveResults(tx *gorm.DB, id string, outputs []transcription.Output) error {
	if len(outputs) == 0 {
		return nil
	}
	rows := make([]Result, len(outputs))
	for i, o := range outputs {
		rows[i] = Result{JobID: id, Format: string(o.Format), Content: o.Content, SizeBytes: len(o.Content)}
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "format"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "size_bytes", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return database.FromDatabase(err, "job result")
	}
	return nil
}

// Results returns the stored outputs of a job ordered by format.
func (s *Store) Results(ctx context.Context, id string) ([]Result, error) {
	var rows []Result
	if err := s.db.WithContext(ctx).Where("job_id = ?", id).Order("format").Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err, "job result")
	}
	return rows, nil
}

// Finalize completes a non-terminal job and stores its outputs in the same
// transaction. It returns false, writing nothing, when the job was already
// terminal, e.g. cancelled while the transcript was being processed.
func (s *Store) Finalize(ctx context.Context, id string, c Completion) (bool, error) {
	updates := map[string]any{
		"status":            StatusCompleted,
		"duration_sec":      c.DurationSec,
		"cost_minutes":      c.CostMinutes,
		"completed_at":      s.now(),
		"ingest_started_at": nil,
	}
	if c.Language != "" {
		updates["language"] = c.Language
	}
	if c.Title != "" {
		updates["title"] = c.Title
	}
	completed := false
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&Job{}).
			Where("id = ? AND status IN ?", id, activeStatuses).
			Updates(updates)
		if res.Error != nil {
			return database.FromDatabase(res.Error, "job")
		}
		if res.RowsAffected != 1 {
			return nil
		}
		completed = true
		return saveResults(tx, id, c.Outputs)
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

// FindReusable returns the most recent completed job with a processed URL
// for identityKey, or nil when there is none.
func (s *Store) FindReusable(ctx context.Context, identityKey string) (*Job, error) {
	if identityKey == "" {
		return nil, nil
	}
	var job Job
	err := s.db.WithContext(ctx).
		Where("source_identity_key = ? AND status = ? AND processed_url <> ''", identityKey, StatusCompleted).
		Order("completed_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reusable job %q: %w", identityKey, err)
	}
	return &job, nil
}
