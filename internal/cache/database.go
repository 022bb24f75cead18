package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/tenancy/internal/models"
)

// DatabaseStore implements Counter using the primary SQL database so that
// every instance behind a load balancer sees the same counts.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Counter.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL atomically increments the counter for key. A counter whose
// window has elapsed restarts at one with a fresh window.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now().UTC()

	var entry models.RateCounter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Acquire row-level lock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "bucket = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry = models.RateCounter{
				Key:       key,
				Count:     1,
				ExpiresAt: now.Add(window),
			}
			return tx.Create(&entry).Error
		}
		if err != nil {
			return err
		}

		if !entry.ExpiresAt.After(now) {
			entry.Count = 1
			entry.ExpiresAt = now.Add(window)
		} else {
			entry.Count++
		}

		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, fmt.Errorf("cache: increment %s: %w", key, err)
	}

	return entry.Count, entry.ExpiresAt.Sub(now), nil
}

// PurgeExpired deletes counters whose window has elapsed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errors.New("cache: database store not initialised")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&models.RateCounter{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache: purge expired counters: %w", result.Error)
	}
	return result.RowsAffected, nil
}
