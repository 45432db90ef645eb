package jobs

import (
	"time"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// activeStatuses are the states a job may still leave.
var activeStatuses = []Status{StatusPending, StatusProcessing}

// SourceType describes where the job's media came from.
type SourceType string

const (
	SourceUpload      SourceType = "upload"
	SourceLinkedVideo SourceType = "linked_video"
	SourceDirectURL   SourceType = "direct_url"
)

// Tier is the user's plan family.
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// Failure reasons recorded on failed jobs.
const (
	ReasonManualUploadRequired = "manual_upload_required"
	ReasonDispatchFailed       = "dispatch_failed"
	ReasonNoSupplier           = "no_supplier"
	ReasonSupplierFailed       = "supplier_failed"
)

// Job is one transcription request.
type Job struct {
	ID                  string     `gorm:"primaryKey;type:varchar(64)" json:"job_id"`
	UserID              string     `gorm:"type:varchar(64);not null;index" json:"user_id"`
	SourceType          SourceType `gorm:"type:varchar(32);not null" json:"source_type"`
	SourceURL           string     `gorm:"type:text;not null" json:"source_url"`
	ProcessedURL        string     `gorm:"type:text" json:"processed_url,omitempty"`
	SourceIdentityKey   string     `gorm:"type:varchar(255);index" json:"source_identity_key,omitempty"`
	Status              Status     `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Tier                Tier       `gorm:"type:varchar(16);not null;default:free" json:"tier"`
	HighAccuracy        bool       `gorm:"not null;default:false" json:"high_accuracy"`
	Diarization         bool       `gorm:"not null;default:false" json:"diarization"`
	Language            string     `gorm:"type:varchar(16)" json:"language,omitempty"`
	DurationSec         int        `json:"duration_sec"`
	OriginalDurationSec float64    `json:"original_duration_sec"`
	CostMinutes         float64    `json:"cost_minutes"`
	Title               string     `gorm:"type:varchar(255)" json:"title"`
	Supplier            string     `gorm:"type:varchar(32)" json:"supplier,omitempty"`
	SupplierRef         string     `gorm:"type:varchar(255)" json:"supplier_ref,omitempty"`
	FailureReason       string     `gorm:"type:varchar(64)" json:"failure_reason,omitempty"`
	IngestStartedAt     *time.Time `json:"-"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// TableName implements the GORM tabler interface.
func (Job) TableName() string { return "jobs" }

// Result is one rendered output format of a completed job.
type Result struct {
	ID        uint      `gorm:"primaryKey"`
	JobID     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_job_results_job_format,priority:1"`
	Format    string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_job_results_job_format,priority:2"`
	Content   string    `gorm:"type:text;not null"`
	SizeBytes int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (Result) TableName() string { return "job_results" }

// Models lists the models owned by this package, for auto-migration.
func Models() []any {
	return []any{&Job{}, &Result{}}
}
