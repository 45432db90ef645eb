package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
)

// maxDecrementAttempts bounds re-reads of one pack after lost races.
const maxDecrementAttempts = 5

// balanceSlack is half of the smallest amount the ledger records.
const balanceSlack = 0.005

// Charge is one settlement request.
type Charge struct {
	UserID       string
	JobID        string
	Tier         string
	Minutes      float64
	HighAccuracy bool
}

// Deduction is the amount taken from one pack.
type Deduction struct {
	PackID  uint
	Minutes float64
}

// Ledger settles usage and answers usage queries.
type Ledger struct {
	db      *database.DB
	plans   PlanSource
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// New creates a Ledger. metrics may be nil.
func New(db *database.DB, plans PlanSource, log *logger.Logger, metrics *observability.Metrics) *Ledger {
	return &Ledger{
		db:      db,
		plans:   plans,
		log:     log.WithComponent("ledger"),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Settle charges c against the user's funding sources and returns the
// records written. It never fails: when layered settlement errors, the
// whole charge is rolled back and a single fallback record is written
// instead so the minutes are not lost.
func (l *Ledger) Settle(ctx context.Context, c Charge) []UsageRecord {
	minutes := round2(c.Minutes)
	if minutes <= 0 {
		return nil
	}
	fields := logger.Fields(logger.FieldUserID, c.UserID, logger.FieldJobID, c.JobID, "minutes", minutes)

	var records []UsageRecord
	err := l.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		plan, err := l.plans.PlanFor(ctx, c.UserID, c.Tier)
		if err != nil {
			return fmt.Errorf("resolve plan: %w", err)
		}
		records, err = l.settle(ctx, tx, c, plan, minutes)
		return err
	})
	if err == nil {
		for _, r := range records {
			l.metrics.RecordUsage(ctx, string(r.ModelType), r.Minutes)
		}
		l.log.Info("Usage settled", fields)
		return records
	}

	l.log.Error("Layered settlement failed, writing fallback record", logger.Fields(
		logger.FieldUserID, c.UserID, logger.FieldJobID, c.JobID, logger.FieldError, err.Error()))
	fallback := l.record(c, minutes, accuracyModel(c.HighAccuracy), SubscriptionFallback)
	if err := l.db.WithContext(ctx).Create(&fallback).Error; err != nil {
		l.log.Error("Fallback usage record failed", logger.Fields(
			logger.FieldUserID, c.UserID, logger.FieldJobID, c.JobID, logger.FieldError, err.Error()))
		return nil
	}
	l.metrics.RecordUsage(ctx, string(fallback.ModelType), fallback.Minutes)
	return []UsageRecord{fallback}
}

func (l *Ledger) settle(ctx context.Context, tx *gorm.DB, c Charge, plan Plan, minutes float64) ([]UsageRecord, error) {
	var records []UsageRecord
	add := func(m float64, model ModelType) {
		if m = round2(m); m > 0 {
			records = append(records, l.record(c, m, model, plan.SubscriptionType))
		}
	}
	remaining := minutes

	packType, packModel := PackStandard, ModelPackStandard
	overageModel := ModelStandard
	if plan.Paid {
		allowance, err := l.allowanceLeft(ctx, tx, c.UserID, plan, c.HighAccuracy)
		if err != nil {
			return nil, err
		}
		fromPlan := round2(math.Min(remaining, allowance))
		add(fromPlan, accuracyModel(c.HighAccuracy))
		remaining = round2(remaining - fromPlan)

		overageModel = accuracyModel(c.HighAccuracy)
		if c.HighAccuracy {
			packType, packModel = PackHighAccuracy, ModelPackHighAccuracy
		}
	}

	if remaining > 0 {
		left, _, err := l.deduct(ctx, tx, c.UserID, remaining, packType)
		if err != nil {
			return nil, err
		}
		add(remaining-left, packModel)
		remaining = left
	}
	add(remaining, overageModel)

	if len(records) > 0 {
		if err := tx.WithContext(ctx).Create(&records).Error; err != nil {
			return nil, fmt.Errorf("write usage records: %w", err)
		}
	}
	return records, nil
}

// allowanceLeft is what remains of the plan's monthly minutes, further
// bounded by the high-accuracy sub-allowance for high-accuracy usage.
func (l *Ledger) allowanceLeft(ctx context.Context, tx *gorm.DB, userID string, plan Plan, highAccuracy bool) (float64, error) {
	if plan.Unlimited {
		return math.Inf(1), nil
	}
	start, end := period(l.now())
	used, err := sumUsage(ctx, tx, userID, start, end, subscriptionModels...)
	if err != nil {
		return 0, err
	}
	left := math.Max(0, plan.MonthlyMinutes-used)
	if highAccuracy {
		haUsed, err := sumUsage(ctx, tx, userID, start, end, ModelHighAccuracy)
		if err != nil {
			return 0, err
		}
		left = math.Min(left, math.Max(0, plan.HighAccuracyMinutes-haUsed))
	}
	return left, nil
}

func (l *Ledger) record(c Charge, minutes float64, model ModelType, subscription string) UsageRecord {
	now := l.now()
	return UsageRecord{
		UserID:           c.UserID,
		Date:             time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Minutes:          round2(minutes),
		ModelType:        model,
		SubscriptionType: subscription,
		JobID:            c.JobID,
	}
}

func accuracyModel(highAccuracy bool) ModelType {
	if highAccuracy {
		return ModelHighAccuracy
	}
	return ModelStandard
}

func sumUsage(ctx context.Context, tx *gorm.DB, userID string, start, end time.Time, models ...ModelType) (float64, error) {
	var total float64
	err := tx.WithContext(ctx).Model(&UsageRecord{}).
		Where("user_id = ? AND date >= ? AND date < ? AND model_type IN ?", userID, start, end, models).
		Select("COALESCE(SUM(minutes), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum usage: %w", err)
	}
	return total, nil
}
