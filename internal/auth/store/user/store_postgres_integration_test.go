//go:build integration

package user_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"waypoint/internal/auth/models"
	"waypoint/internal/auth/store/user"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/pagination"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresUserStoreSuite) newUser(email string) *models.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &models.User{
		ID:           id.NewUserID(),
		Name:         "Jane Doe",
		Email:        email,
		PasswordHash: "hash",
		Role:         models.RoleRegular,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.store.Create(context.Background(), u))
	return u
}

func (s *PostgresUserStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	u := s.newUser("find@example.com")

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, byID.Email)
	s.Equal(models.RoleRegular, byID.Role)
	s.Nil(byID.RefreshToken)

	byEmail, err := s.store.FindByEmail(ctx, "find@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	_, err = s.store.FindByID(ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestDuplicateEmailConflicts() {
	s.newUser("dup@example.com")

	now := time.Now().UTC()
	err := s.store.Create(context.Background(), &models.User{
		ID: id.NewUserID(), Name: "Other", Email: "dup@example.com",
		PasswordHash: "x", Role: models.RoleRegular, CreatedAt: now, UpdatedAt: now,
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresUserStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	u := s.newUser("update@example.com")

	u.Name = "Renamed"
	u.Email = "renamed@example.com"
	s.Require().NoError(s.store.Update(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", found.Name)
	s.Equal("renamed@example.com", found.Email)

	s.Require().NoError(s.store.Delete(ctx, u.ID))
	s.ErrorIs(s.store.Delete(ctx, u.ID), sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestRefreshTokenLifecycle() {
	ctx := context.Background()
	u := s.newUser("tokens@example.com")

	s.Require().NoError(s.store.SetRefreshToken(ctx, u.ID, "r1"))
	s.Require().NoError(s.store.SwapRefreshToken(ctx, u.ID, "r1", "r2"))
	s.ErrorIs(s.store.SwapRefreshToken(ctx, u.ID, "r1", "r3"), sentinel.ErrStale)

	s.Require().NoError(s.store.ClearRefreshToken(ctx, u.ID))
	s.Require().NoError(s.store.ClearRefreshToken(ctx, u.ID))
	s.ErrorIs(s.store.SwapRefreshToken(ctx, u.ID, "r2", "r3"), sentinel.ErrStale)
	s.ErrorIs(s.store.SwapRefreshToken(ctx, id.NewUserID(), "r2", "r3"), sentinel.ErrNotFound)
}

// TestConcurrentSwap verifies the conditional update lets exactly one of many
// concurrent callers with the same token through.
func (s *PostgresUserStoreSuite) TestConcurrentSwap() {
	ctx := context.Background()
	u := s.newUser("race@example.com")
	s.Require().NoError(s.store.SetRefreshToken(ctx, u.ID, "shared"))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := range 20 {
		wg.Go(func() {
			if err := s.store.SwapRefreshToken(ctx, u.ID, "shared", fmt.Sprintf("next-%d", i)); err == nil {
				wins.Add(1)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *PostgresUserStoreSuite) TestListWithFilters() {
	ctx := context.Background()
	for _, email := range []string{"alice@example.com", "bob@example.com", "carol_x@example.com"} {
		s.newUser(email)
	}

	q := models.ListUsersQuery{
		Page:   pagination.Params{Page: 1, Limit: 10, Sort: "email"},
		Search: "_x",
	}
	users, err := s.store.List(ctx, q)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("carol_x@example.com", users[0].Email)

	q.Search = ""
	q.Page.Desc = true
	users, err = s.store.List(ctx, q)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("carol_x@example.com", users[0].Email)

	n, err := s.store.Count(ctx, q)
	s.Require().NoError(err)
	s.Equal(3, n)
}
