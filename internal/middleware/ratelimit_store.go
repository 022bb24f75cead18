package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charlesng35/tenancy/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore provides process-local rate limiting. It is concurrency-safe.
// Expired counters are swept lazily on every call.
type memoryRateStore struct {
	mu        sync.Mutex
	data      map[string]*memoryCounter
	clock     func() time.Time
	nextSweep time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store.
func NewMemoryRateStore() RateStore {
	return newMemoryRateStore(time.Now)
}

func newMemoryRateStore(clock func() time.Time) *memoryRateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: clock,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.nextSweep) {
		for k, counter := range s.data {
			if now.After(counter.windowEnd) {
				delete(s.data, k)
			}
		}
		s.nextSweep = now.Add(window)
	}

	counter, ok := s.data[key]
	if !ok || now.After(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}

	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

// counterRateStore adapts a shared cache.Counter, such as the database store,
// to the RateStore interface.
type counterRateStore struct {
	counter cache.Counter
}

// NewDatabaseRateStore constructs a rate store backed by a shared counter.
func NewDatabaseRateStore(counter cache.Counter) RateStore {
	return &counterRateStore{counter: counter}
}

func (s *counterRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if s.counter == nil {
		return 0, 0, errors.New("rate store: counter not configured")
	}
	count, ttl, err := s.counter.IncrementWithTTL(ctx, key, window)
	if err != nil {
		return 0, 0, err
	}
	return int(count), ttl, nil
}
