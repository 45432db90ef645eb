package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
)

// maxClaimAttempts bounds how often Claim retries after losing a race.
const maxClaimAttempts = 3

// Store persists queue entries.
type Store struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewStore creates a Store.
func NewStore(db *database.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log.WithComponent("queue-store"), now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue adds e. ID and CreatedAt are filled when empty.
func (s *Store) Enqueue(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return database.FromDatabase(err, "queue entry")
	}
	return nil
}

// Claim takes the oldest unclaimed, undone entry owned by userID. It
// returns nil when there is nothing to claim.
func (s *Store) Claim(ctx context.Context, userID string) (*Entry, error) {
	for range maxClaimAttempts {
		var e Entry
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND done = ? AND picked_at IS NULL", userID, false).
			Order("created_at ASC, id ASC").
			First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, database.FromDatabase(err, "queue entry")
		}

		now := s.now()
		res := s.db.WithContext(ctx).Model(&Entry{}).
			Where("id = ? AND done = ? AND picked_at IS NULL", e.ID, false).
			Update("picked_at", now)
		if res.Error != nil {
			return nil, database.FromDatabase(res.Error, "queue entry")
		}
		if res.RowsAffected == 1 {
			e.PickedAt = &now
			return &e, nil
		}
	}
	return nil, nil
}

// Release returns a claimed entry to the pool.
func (s *Store) Release(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ? AND done = ?", id, false).
		Update("picked_at", nil).Error
	if err != nil {
		return database.FromDatabase(err, "queue entry")
	}
	return nil
}

// MarkDone retires an entry.
func (s *Store) MarkDone(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ?", id).
		Update("done", true).Error
	if err != nil {
		return database.FromDatabase(err, "queue entry")
	}
	return nil
}

// ReleaseStale releases claims picked before now-staleAfter and reports how
// many were released.
func (s *Store) ReleaseStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Entry{}).
		Where("done = ? AND picked_at IS NOT NULL AND picked_at < ?", false, s.now().Add(-staleAfter)).
		Update("picked_at", nil)
	if res.Error != nil {
		return 0, database.FromDatabase(res.Error, "queue entry")
	}
	return res.RowsAffected, nil
}
