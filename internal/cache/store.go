package cache

import (
	"context"
	"time"
)

// Counter represents a shared fixed-window counter store.
type Counter interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
