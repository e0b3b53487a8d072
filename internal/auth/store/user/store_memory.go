package user

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"waypoint/internal/auth/models"
	id "waypoint/pkg/domain"
)

// InMemoryUserStore keeps users in memory for tests and local runs. Records
// are copied on the way in and out so callers never share state with the map.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
	}
	s.users[user.ID] = clone(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return clone(u), nil
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[email]; ok {
		return clone(s.users[userID]), nil
	}
	return nil, fmt.Errorf("user with email: %w", ErrNotFound)
}

// Update writes the profile fields (name, email, password hash, updated at).
// The refresh token is only changed through the dedicated methods.
func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	if owner, taken := s.byEmail[user.Email]; taken && owner != user.ID {
		return fmt.Errorf("email %q: %w", user.Email, ErrConflict)
	}
	delete(s.byEmail, current.Email)
	current.Name = user.Name
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	current.UpdatedAt = user.UpdatedAt
	s.byEmail[current.Email] = current.ID
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	delete(s.byEmail, u.Email)
	delete(s.users, userID)
	return nil
}

func (s *InMemoryUserStore) List(_ context.Context, q models.ListUsersQuery) ([]*models.User, error) {
	s.mu.RLock()
	matched := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if matches(u, q) {
			matched = append(matched, clone(u))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *models.User) int {
		c := compareUsers(a, b, q.Page.Sort)
		if q.Page.Desc {
			return -c
		}
		return c
	})

	offset := min(q.Page.Offset(), len(matched))
	end := min(offset+q.Page.Limit, len(matched))
	return matched[offset:end], nil
}

func (s *InMemoryUserStore) Count(_ context.Context, q models.ListUsersQuery) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if matches(u, q) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryUserStore) SetRefreshToken(_ context.Context, userID id.UserID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.RefreshToken = &token
	return nil
}

// SwapRefreshToken replaces old with next only if old is still the stored
// token. Check and write happen under one lock.
func (s *InMemoryUserStore) SwapRefreshToken(_ context.Context, userID id.UserID, old, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if !u.HasRefreshToken(old) {
		return fmt.Errorf("refresh token for user %s: %w", userID, ErrStale)
	}
	u.RefreshToken = &next
	return nil
}

func (s *InMemoryUserStore) ClearRefreshToken(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.RefreshToken = nil
	return nil
}

func clone(u *models.User) *models.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}
