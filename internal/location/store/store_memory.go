package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"waypoint/internal/location/models"
	id "waypoint/pkg/domain"
)

// InMemoryLocationStore keeps check-ins in process.
type InMemoryLocationStore struct {
	mu        sync.RWMutex
	locations map[id.LocationID]models.Location
}

func New() *InMemoryLocationStore {
	return &InMemoryLocationStore{locations: make(map[id.LocationID]models.Location)}
}

func (s *InMemoryLocationStore) Create(_ context.Context, loc *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.ID] = *loc
	return nil
}

func (s *InMemoryLocationStore) ListByUser(_ context.Context, userID id.UserID, q models.Query) ([]models.Location, error) {
	return s.page(q, func(l models.Location) bool { return l.UserID == userID }), nil
}

func (s *InMemoryLocationStore) ListRecent(_ context.Context, q models.Query) ([]models.Location, error) {
	return s.page(q, nil), nil
}

func (s *InMemoryLocationStore) CountByUser(_ context.Context, userID id.UserID, since time.Time) (int, error) {
	return s.count(since, func(l models.Location) bool { return l.UserID == userID }), nil
}

func (s *InMemoryLocationStore) CountRecent(_ context.Context, since time.Time) (int, error) {
	return s.count(since, nil), nil
}

// DeleteOlderThan removes records created strictly before cutoff.
func (s *InMemoryLocationStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, l := range s.locations {
		if l.CreatedAt.Before(cutoff) {
			delete(s.locations, key)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryLocationStore) DeleteByUser(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, l := range s.locations {
		if l.UserID == userID {
			delete(s.locations, key)
			n++
		}
	}
	return n, nil
}

// Len counts stored records including expired ones not yet swept.
func (s *InMemoryLocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.locations)
}

func (s *InMemoryLocationStore) page(q models.Query, keep func(models.Location) bool) []models.Location {
	s.mu.RLock()
	matched := make([]models.Location, 0, len(s.locations))
	for _, l := range s.locations {
		if l.CreatedAt.Before(q.Since) || (keep != nil && !keep(l)) {
			continue
		}
		matched = append(matched, l)
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b models.Location) int {
		c := compareLocations(a, b)
		if q.Page.Desc {
			return -c
		}
		return c
	})

	offset := min(q.Page.Offset(), len(matched))
	end := min(offset+q.Page.Limit, len(matched))
	return matched[offset:end]
}

func (s *InMemoryLocationStore) count(since time.Time, keep func(models.Location) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.locations {
		if !l.CreatedAt.Before(since) && (keep == nil || keep(l)) {
			n++
		}
	}
	return n
}
