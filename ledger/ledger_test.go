package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/database/testutil"
	"github.com/kbukum/scribe/kafka"
	"github.com/kbukum/scribe/logger"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

var testPlans = StaticPlans{
	"free": {SubscriptionType: "free"},
	"pro":  {Paid: true, SubscriptionType: "pro", MonthlyMinutes: 100, HighAccuracyMinutes: 10},
	"max":  {Paid: true, SubscriptionType: "max", Unlimited: true},
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	db := testutil.NewDB(t, Models()...)
	l := New(db, testPlans, logger.NewNop(), nil)
	l.now = func() time.Time { return testNow }
	return l
}

func addPack(t *testing.T, l *Ledger, order string, typ PackType, minutes float64, expires *time.Time) *MinutePack {
	t.Helper()
	p := &MinutePack{UserID: "u1", PackType: typ, MinutesTotal: minutes, OrderNo: order, ExpiresAt: expires}
	created, err := l.Grant(context.Background(), p)
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func packLeft(t *testing.T, l *Ledger, id uint) float64 {
	t.Helper()
	var p MinutePack
	require.NoError(t, l.db.GormDB.First(&p, id).Error)
	return p.MinutesLeft
}

func records(t *testing.T, l *Ledger) []UsageRecord {
	t.Helper()
	var rs []UsageRecord
	require.NoError(t, l.db.GormDB.Order("id").Find(&rs).Error)
	return rs
}

func at(d time.Duration) *time.Time {
	t := testNow.Add(d)
	return &t
}

func TestDeductFromPacks_OldestExpiryFirst(t *testing.T) {
	l := newLedger(t)
	late := addPack(t, l, "o2", PackStandard, 10, at(5*24*time.Hour))
	early := addPack(t, l, "o1", PackStandard, 10, at(24*time.Hour))

	rest, deductions, err := l.DeductFromPacks(context.Background(), "u1", 15, PackStandard)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rest)
	assert.Equal(t, []Deduction{{PackID: early.ID, Minutes: 10}, {PackID: late.ID, Minutes: 5}}, deductions)
	assert.Equal(t, 0.0, packLeft(t, l, early.ID))
	assert.Equal(t, 5.0, packLeft(t, l, late.ID))
}

func TestDeductFromPacks_NoExpiryLastAndExpiredSkipped(t *testing.T) {
	l := newLedger(t)
	forever := addPack(t, l, "o1", PackStandard, 10, nil)
	expired := addPack(t, l, "o2", PackStandard, 10, at(-time.Hour))
	soon := addPack(t, l, "o3", PackStandard, 3, at(time.Hour))
	other := addPack(t, l, "o4", PackHighAccuracy, 10, at(time.Hour))

	rest, _, err := l.DeductFromPacks(context.Background(), "u1", 5, PackStandard)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rest)
	assert.Equal(t, 0.0, packLeft(t, l, soon.ID))
	assert.Equal(t, 8.0, packLeft(t, l, forever.ID))
	assert.Equal(t, 10.0, packLeft(t, l, expired.ID))
	assert.Equal(t, 10.0, packLeft(t, l, other.ID))
}

func TestDeductFromPacks_Conservation(t *testing.T) {
	for _, want := range []float64{0.5, 7.25, 12, 30} {
		t.Run(fmt.Sprint(want), func(t *testing.T) {
			l := newLedger(t)
			addPack(t, l, "o1", PackStandard, 4.5, at(time.Hour))
			addPack(t, l, "o2", PackStandard, 7.75, nil)
			before, err := l.PackBalance(context.Background(), "u1")
			require.NoError(t, err)

			rest, _, err := l.DeductFromPacks(context.Background(), "u1", want, PackStandard)
			require.NoError(t, err)
			after, err := l.PackBalance(context.Background(), "u1")
			require.NoError(t, err)

			assert.InDelta(t, want, before-after+rest, 1e-9)
			assert.GreaterOrEqual(t, after, 0.0)
		})
	}
}

func TestSettle_RepeatedFractionsDrainPack(t *testing.T) {
	l := newLedger(t)
	p := addPack(t, l, "o1", PackStandard, 0.3, nil)

	for i := range 3 {
		rs := l.Settle(context.Background(), Charge{UserID: "u1", JobID: fmt.Sprint("j", i), Tier: "free", Minutes: 0.1})
		require.Len(t, rs, 1, "charge %d", i)
		assert.Equal(t, ModelPackStandard, rs[0].ModelType, "charge %d", i)
		assert.Equal(t, 0.1, rs[0].Minutes)
	}
	assert.InDelta(t, 0.0, packLeft(t, l, p.ID), 1e-9)

	rs := l.Settle(context.Background(), Charge{UserID: "u1", JobID: "j3", Tier: "free", Minutes: 0.1})
	require.Len(t, rs, 1)
	assert.Equal(t, ModelStandard, rs[0].ModelType)
	assert.Equal(t, "free", rs[0].SubscriptionType)
}

func TestDeductFromPacks_DriftedBalance(t *testing.T) {
	l := newLedger(t)
	p := addPack(t, l, "o1", PackStandard, 1, nil)
	require.NoError(t, l.db.GormDB.Model(&MinutePack{}).Where("id = ?", p.ID).
		Update("minutes_left", 0.09999999999999998).Error)

	rest, deductions, err := l.DeductFromPacks(context.Background(), "u1", 0.1, PackStandard)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rest)
	assert.Equal(t, []Deduction{{PackID: p.ID, Minutes: 0.1}}, deductions)
	assert.InDelta(t, 0.0, packLeft(t, l, p.ID), 1e-9)
}

func TestSettle_FreeTier(t *testing.T) {
	l := newLedger(t)
	addPack(t, l, "o1", PackStandard, 2, nil)

	rs := l.Settle(context.Background(), Charge{UserID: "u1", JobID: "j1", Tier: "free", Minutes: 3.456})
	require.Len(t, rs, 2)
	assert.Equal(t, ModelPackStandard, rs[0].ModelType)
	assert.Equal(t, 2.0, rs[0].Minutes)
	assert.Equal(t, ModelStandard, rs[1].ModelType)
	assert.Equal(t, 1.46, rs[1].Minutes)
	assert.Equal(t, "free", rs[1].SubscriptionType)
	assert.Len(t, records(t, l), 2)
}

func TestSettle_TinyChargeRoundsToNothing(t *testing.T) {
	l := newLedger(t)
	assert.Empty(t, l.Settle(context.Background(), Charge{UserID: "u1", Tier: "free", Minutes: 0.004}))
	assert.Empty(t, records(t, l))
}

func TestSettle_EndToEndMinute(t *testing.T) {
	l := newLedger(t)
	rs := l.Settle(context.Background(), Charge{UserID: "u1", JobID: "j1", Tier: "free", Minutes: 0.017})
	require.Len(t, rs, 1)
	assert.Equal(t, ModelStandard, rs[0].ModelType)
	assert.InDelta(t, 0.0167, rs[0].Minutes, 0.005)
}

func TestSettle_PaidAllowanceThenPacksThenOverage(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.db.GormDB.Create(&UsageRecord{
		UserID: "u1", Date: testNow, Minutes: 95, ModelType: ModelStandard, SubscriptionType: "pro",
	}).Error)
	addPack(t, l, "o1", PackStandard, 3, nil)

	rs := l.Settle(ctx, Charge{UserID: "u1", Tier: "pro", Minutes: 10})
	require.Len(t, rs, 3)
	assert.Equal(t, UsageRecord{Minutes: 5, ModelType: ModelStandard}, UsageRecord{Minutes: rs[0].Minutes, ModelType: rs[0].ModelType})
	assert.Equal(t, UsageRecord{Minutes: 3, ModelType: ModelPackStandard}, UsageRecord{Minutes: rs[1].Minutes, ModelType: rs[1].ModelType})
	assert.Equal(t, UsageRecord{Minutes: 2, ModelType: ModelStandard}, UsageRecord{Minutes: rs[2].Minutes, ModelType: rs[2].ModelType})
}

func TestSettle_PaidHighAccuracySubAllowance(t *testing.T) {
	l := newLedger(t)
	addPack(t, l, "o1", PackHighAccuracy, 20, nil)
	addPack(t, l, "o2", PackStandard, 20, nil)

	rs := l.Settle(context.Background(), Charge{UserID: "u1", Tier: "pro", Minutes: 15, HighAccuracy: true})
	require.Len(t, rs, 2)
	assert.Equal(t, ModelHighAccuracy, rs[0].ModelType)
	assert.Equal(t, 10.0, rs[0].Minutes)
	assert.Equal(t, ModelPackHighAccuracy, rs[1].ModelType)
	assert.Equal(t, 5.0, rs[1].Minutes)
}

func TestSettle_Unlimited(t *testing.T) {
	l := newLedger(t)
	addPack(t, l, "o1", PackStandard, 20, nil)
	rs := l.Settle(context.Background(), Charge{UserID: "u1", Tier: "max", Minutes: 500})
	require.Len(t, rs, 1)
	assert.Equal(t, ModelStandard, rs[0].ModelType)
	assert.Equal(t, "max", rs[0].SubscriptionType)
}

type failingPlans struct{}

func (failingPlans) PlanFor(context.Context, string, string) (Plan, error) {
	return Plan{}, assert.AnError
}

func TestSettle_FallbackRecord(t *testing.T) {
	l := newLedger(t)
	l.plans = failingPlans{}

	rs := l.Settle(context.Background(), Charge{UserID: "u1", JobID: "j1", Tier: "pro", Minutes: 2, HighAccuracy: true})
	require.Len(t, rs, 1)
	assert.Equal(t, SubscriptionFallback, rs[0].SubscriptionType)
	assert.Equal(t, ModelHighAccuracy, rs[0].ModelType)
	assert.Equal(t, 2.0, rs[0].Minutes)
	assert.Len(t, records(t, l), 1)
}

func TestUsage(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	addPack(t, l, "o1", PackStandard, 50, nil)
	l.Settle(ctx, Charge{UserID: "u1", Tier: "pro", Minutes: 30})
	require.NoError(t, l.db.GormDB.Create(&UsageRecord{
		UserID: "u1", Date: testNow.AddDate(0, -1, 0), Minutes: 99, ModelType: ModelStandard, SubscriptionType: "pro",
	}).Error)

	u, err := l.Usage(ctx, "u1", "pro")
	require.NoError(t, err)
	assert.Equal(t, Usage{
		SubscriptionTotal: 100, PackMinutes: 50, TotalAvailable: 150,
		TotalUsed: 30, Remaining: 120, PercentageUsed: 20,
	}, u)
}

func grantMessage(t *testing.T, grant PackGrant) kafkago.Message {
	t.Helper()
	data, err := json.Marshal(grant)
	require.NoError(t, err)
	value, err := kafka.Event{ID: "e1", Type: EventPackPurchased, Data: data}.ToJSON()
	require.NoError(t, err)
	return kafkago.Message{Value: value}
}

func TestGrantConsumer_Dedup(t *testing.T) {
	l := newLedger(t)
	g := NewGrantConsumer(l, logger.NewNop())
	ctx := context.Background()
	msg := grantMessage(t, PackGrant{OrderNo: "ord-1", UserID: "u1", PackType: PackStandard, Minutes: 60})

	require.NoError(t, g.Handle(ctx, msg))
	require.NoError(t, g.Handle(ctx, msg))

	balance, err := l.PackBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, balance)
}

func TestGrantConsumer_SkipsInvalid(t *testing.T) {
	l := newLedger(t)
	g := NewGrantConsumer(l, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, g.Handle(ctx, kafkago.Message{Value: []byte("not json")}))
	require.NoError(t, g.Handle(ctx, grantMessage(t, PackGrant{OrderNo: "o", UserID: "u1", PackType: "gold", Minutes: 5})))

	balance, err := l.PackBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestStaticPlans(t *testing.T) {
	p, err := testPlans.PlanFor(context.Background(), "u1", "unknown")
	require.NoError(t, err)
	assert.Equal(t, FreePlan, p)

	p, err = testPlans.PlanFor(context.Background(), "u1", "pro")
	require.NoError(t, err)
	assert.Equal(t, "pro", p.Tier)
}
