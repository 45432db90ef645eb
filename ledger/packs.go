package ledger

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/scribe/database"
)

// DeductFromPacks takes up to minutes from the user's unexpired packs of
// packType and returns what could not be covered.
func (l *Ledger) DeductFromPacks(ctx context.Context, userID string, minutes float64, packType PackType) (float64, []Deduction, error) {
	return l.deduct(ctx, l.db.GormDB, userID, round2(minutes), packType)
}

// deduct consumes packs oldest expiry first; packs without expiry go last.
func (l *Ledger) deduct(ctx context.Context, tx *gorm.DB, userID string, minutes float64, packType PackType) (float64, []Deduction, error) {
	var packs []MinutePack
	err := tx.WithContext(ctx).
		Where("user_id = ? AND pack_type = ? AND minutes_left > 0", userID, packType).
		Where("expires_at IS NULL OR expires_at > ?", l.now()).
		Order("expires_at IS NULL").Order("expires_at ASC").Order("created_at ASC").Order("id ASC").
		Find(&packs).Error
	if err != nil {
		return minutes, nil, fmt.Errorf("load packs: %w", err)
	}

	remaining := minutes
	var deductions []Deduction
	for _, p := range packs {
		if remaining <= 0 {
			break
		}
		taken, err := l.decrement(ctx, tx, p, remaining)
		if err != nil {
			return remaining, deductions, err
		}
		if taken > 0 {
			deductions = append(deductions, Deduction{PackID: p.ID, Minutes: taken})
			remaining = round2(remaining - taken)
		}
	}
	return remaining, deductions, nil
}

// decrement takes min(left, want) from one pack with a conditional update,
// re-reading the balance when a concurrent settlement got there first.
// Balances are kept at two decimals: the new value is rounded in SQL and
// the guard allows half a hundredth of slack so a float column that drifted
// below its rounded value can still be drained.
func (l *Ledger) decrement(ctx context.Context, tx *gorm.DB, p MinutePack, want float64) (float64, error) {
	left := p.MinutesLeft
	for range maxDecrementAttempts {
		d := round2(math.Min(round2(left), want))
		if d <= 0 {
			return 0, nil
		}
		res := tx.WithContext(ctx).Model(&MinutePack{}).
			Where("id = ? AND minutes_left >= ?", p.ID, d-balanceSlack).
			Update("minutes_left", gorm.Expr("ROUND(CAST(minutes_left - ? AS NUMERIC), 2)", d))
		if res.Error != nil {
			return 0, fmt.Errorf("decrement pack %d: %w", p.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			return d, nil
		}

		var fresh MinutePack
		if err := tx.WithContext(ctx).Select("minutes_left").First(&fresh, p.ID).Error; err != nil {
			return 0, fmt.Errorf("reload pack %d: %w", p.ID, err)
		}
		left = fresh.MinutesLeft
	}
	return 0, fmt.Errorf("decrement pack %d: contended", p.ID)
}

// Grant inserts a pack. A repeated order number is ignored and reported
// with created=false.
func (l *Ledger) Grant(ctx context.Context, p *MinutePack) (bool, error) {
	p.MinutesTotal = round2(p.MinutesTotal)
	if p.MinutesLeft == 0 {
		p.MinutesLeft = p.MinutesTotal
	}
	p.MinutesLeft = round2(p.MinutesLeft)
	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_no"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, database.FromDatabase(res.Error, "minute pack")
	}
	return res.RowsAffected == 1, nil
}

// PackBalance sums minutes left on the user's unexpired packs.
func (l *Ledger) PackBalance(ctx context.Context, userID string) (float64, error) {
	var total float64
	err := l.db.WithContext(ctx).Model(&MinutePack{}).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, l.now()).
		Select("COALESCE(SUM(minutes_left), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("pack balance: %w", err)
	}
	return total, nil
}
