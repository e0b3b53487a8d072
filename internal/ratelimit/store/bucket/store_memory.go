package bucket

import (
	"context"
	"sync"
	"time"

	"waypoint/internal/ratelimit/models"
)

// InMemoryBucketStore keeps fixed-window counters in process. Counts are not
// shared between replicas; use RedisStore when running more than one.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*fixedWindow
	now     func() time.Time
}

type fixedWindow struct {
	count int
	start time.Time
	ends  time.Time
}

type Option func(*InMemoryBucketStore)

// WithClock replaces time.Now, for tests that step across window boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryBucketStore) { s.now = now }
}

func New(opts ...Option) *InMemoryBucketStore {
	s := &InMemoryBucketStore{
		buckets: make(map[string]*fixedWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment counts one hit against key. A window opens on the first hit and
// the count starts over once it has elapsed.
func (s *InMemoryBucketStore) Increment(_ context.Context, key string, window time.Duration) (models.Window, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.buckets[key]
	if w == nil || !now.Before(w.ends) {
		w = &fixedWindow{start: now, ends: now.Add(window)}
		s.buckets[key] = w
	}
	w.count++
	return models.Window{Count: w.count, ResetAt: w.ends}, nil
}

// Reset forgets the counter for key.
func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// Cleanup drops windows that have ended and returns how many were removed.
func (s *InMemoryBucketStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, w := range s.buckets {
		if !now.Before(w.ends) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *InMemoryBucketStore) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

func (s *InMemoryBucketStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
