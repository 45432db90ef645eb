package ledger

import (
	"context"
	"math"
)

// Usage is the aggregate quota view of one user for the current month.
type Usage struct {
	SubscriptionTotal float64 `json:"subscriptionTotal"`
	PackMinutes       float64 `json:"packMinutes"`
	TotalAvailable    float64 `json:"totalAvailable"`
	TotalUsed         float64 `json:"totalUsed"`
	Remaining         float64 `json:"remaining"`
	IsUnlimited       bool    `json:"isUnlimited"`
	PercentageUsed    float64 `json:"percentageUsed"`
}

// Usage reports the user's quota. Used minutes count plan-funded records
// only; pack consumption is already reflected in PackMinutes.
func (l *Ledger) Usage(ctx context.Context, userID, tier string) (Usage, error) {
	plan, err := l.plans.PlanFor(ctx, userID, tier)
	if err != nil {
		return Usage{}, err
	}
	packs, err := l.PackBalance(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	start, end := period(l.now())
	used, err := sumUsage(ctx, l.db.GormDB, userID, start, end, subscriptionModels...)
	if err != nil {
		return Usage{}, err
	}

	u := Usage{
		SubscriptionTotal: plan.MonthlyMinutes,
		PackMinutes:       round2(packs),
		TotalUsed:         round2(used),
		IsUnlimited:       plan.Unlimited,
	}
	u.TotalAvailable = round2(u.SubscriptionTotal + u.PackMinutes)
	u.Remaining = round2(math.Max(0, u.TotalAvailable-u.TotalUsed))
	if !u.IsUnlimited && u.TotalAvailable > 0 {
		u.PercentageUsed = round2(math.Min(100, u.TotalUsed/u.TotalAvailable*100))
	}
	return u, nil
}
