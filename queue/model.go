package queue

import "time"

// Entry is one pending pull for a submitted job.
type Entry struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	JobID     string     `gorm:"type:varchar(64);not null;index" json:"job_id"`
	UserID    string     `gorm:"type:varchar(64);not null;index:idx_queue_entries_claim" json:"user_id"`
	Tier      string     `gorm:"type:varchar(16);not null" json:"tier"`
	Supplier  string     `gorm:"type:varchar(32);not null" json:"supplier"`
	Ref       string     `gorm:"type:varchar(128);not null" json:"ref"`
	Done      bool       `gorm:"not null;default:false;index:idx_queue_entries_claim" json:"done"`
	PickedAt  *time.Time `json:"picked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Entry) TableName() string { return "queue_entries" }

// Models lists the queue tables for migration.
func Models() []any {
	return []any{&Entry{}}
}
