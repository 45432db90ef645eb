package ledger

import (
	"math"
	"time"
)

// PackType is the kind of minutes a pack grants.
type PackType string

const (
	PackStandard     PackType = "standard"
	PackHighAccuracy PackType = "high_accuracy"
)

// ModelType labels the funding source of a usage record.
type ModelType string

const (
	ModelStandard         ModelType = "standard"
	ModelHighAccuracy     ModelType = "high_accuracy"
	ModelPackStandard     ModelType = "pack_standard"
	ModelPackHighAccuracy ModelType = "pack_high_accuracy"
)

// subscriptionModels are the model types charged to a plan rather than
// to packs.
var subscriptionModels = []ModelType{ModelStandard, ModelHighAccuracy}

// SubscriptionFallback marks records written when layered settlement failed.
const SubscriptionFallback = "fallback"

// MinutePack is a purchased allotment of minutes.
type MinutePack struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"type:varchar(64);not null;index:idx_minute_packs_user_type,priority:1" json:"user_id"`
	PackType     PackType   `gorm:"type:varchar(16);not null;index:idx_minute_packs_user_type,priority:2" json:"pack_type"`
	MinutesTotal float64    `gorm:"not null" json:"minutes_total"`
	MinutesLeft  float64    `gorm:"not null" json:"minutes_left"`
	OrderNo      string     `gorm:"type:varchar(128);not null;uniqueIndex" json:"order_no"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// TableName implements the GORM tabler interface.
func (MinutePack) TableName() string { return "minute_packs" }

// UsageRecord is an immutable charge.
type UsageRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"type:varchar(64);not null;index:idx_usage_records_user_date,priority:1" json:"user_id"`
	Date             time.Time `gorm:"not null;index:idx_usage_records_user_date,priority:2" json:"date"`
	Minutes          float64   `gorm:"not null" json:"minutes"`
	ModelType        ModelType `gorm:"type:varchar(32);not null" json:"model_type"`
	SubscriptionType string    `gorm:"type:varchar(32);not null" json:"subscription_type"`
	JobID            string    `gorm:"type:varchar(64);index" json:"job_id,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName implements the GORM tabler interface.
func (UsageRecord) TableName() string { return "usage_records" }

// Models lists the models owned by this package, for auto-migration.
func Models() []any {
	return []any{&MinutePack{}, &UsageRecord{}}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
