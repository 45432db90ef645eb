package ledger

import (
	"context"
	"time"
)

// Plan is the subscription a user is charged against.
type Plan struct {
	Tier                string  `yaml:"tier" mapstructure:"tier"`
	Paid                bool    `yaml:"paid" mapstructure:"paid"`
	SubscriptionType    string  `yaml:"subscription_type" mapstructure:"subscription_type"`
	MonthlyMinutes      float64 `yaml:"monthly_minutes" mapstructure:"monthly_minutes"`
	HighAccuracyMinutes float64 `yaml:"high_accuracy_minutes" mapstructure:"high_accuracy_minutes"`
	Unlimited           bool    `yaml:"unlimited" mapstructure:"unlimited"`
}

// PlanSource resolves the plan a user is on.
type PlanSource interface {
	PlanFor(ctx context.Context, userID, tier string) (Plan, error)
}

// FreePlan applies to unknown tiers.
var FreePlan = Plan{Tier: "free", SubscriptionType: "free"}

// StaticPlans maps tier names to plans, usually loaded from config.
type StaticPlans map[string]Plan

// PlanFor returns the plan of tier, or FreePlan.
func (p StaticPlans) PlanFor(_ context.Context, _ string, tier string) (Plan, error) {
	plan, ok := p[tier]
	if !ok {
		return FreePlan, nil
	}
	if plan.Tier == "" {
		plan.Tier = tier
	}
	if plan.SubscriptionType == "" {
		plan.SubscriptionType = plan.Tier
	}
	return plan, nil
}

// period returns the UTC calendar month containing t.
func period(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
