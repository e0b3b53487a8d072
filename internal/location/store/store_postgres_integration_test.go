//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "waypoint/internal/auth/models"
	userStore "waypoint/internal/auth/store/user"
	"waypoint/internal/location/models"
	"waypoint/internal/location/store"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/pagination"
	"waypoint/pkg/testutil/containers"
)

type PostgresLocationStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	users    *userStore.PostgresStore
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresLocationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLocationStoreSuite))
}

func (s *PostgresLocationStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.users = userStore.NewPostgres(s.postgres.DB)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresLocationStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "locations", "users"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresLocationStoreSuite) newUser() id.UserID {
	u := &authmodels.User{
		ID: id.NewUserID(), Name: "Loc User", Email: id.NewUserID().String() + "@example.com",
		PasswordHash: "hash", Role: authmodels.RoleRegular, CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.users.Create(context.Background(), u))
	return u.ID
}

func (s *PostgresLocationStoreSuite) add(userID id.UserID, age time.Duration) models.Location {
	loc := models.Location{
		ID: id.NewLocationID(), UserID: userID,
		Coordinates: [2]float64{-33.86, 151.2}, CreatedAt: s.now.Add(-age),
	}
	s.Require().NoError(s.store.Create(context.Background(), &loc))
	return loc
}

func (s *PostgresLocationStoreSuite) query() models.Query {
	return models.Query{
		Since: s.now.Add(-24 * time.Hour),
		Page:  pagination.Params{Page: 1, Limit: 10, Sort: "createdAt", Desc: true},
	}
}

func (s *PostgresLocationStoreSuite) TestRetentionWindow() {
	ctx := context.Background()
	userID := s.newUser()
	fresh := s.add(userID, time.Hour)
	s.add(userID, 25*time.Hour)

	logs, err := s.store.ListByUser(ctx, userID, s.query())
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(fresh.ID, logs[0].ID)
	s.Equal(fresh.Coordinates, logs[0].Coordinates)
	s.True(fresh.CreatedAt.Equal(logs[0].CreatedAt))

	n, err := s.store.CountRecent(ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	purged, err := s.store.DeleteOlderThan(ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), purged)
}

func (s *PostgresLocationStoreSuite) TestRecentAcrossUsers() {
	ctx := context.Background()
	a, b := s.newUser(), s.newUser()
	s.add(a, 2*time.Hour)
	latest := s.add(b, time.Hour)

	recent, err := s.store.ListRecent(ctx, s.query())
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(latest.ID, recent[0].ID)

	n, err := s.store.CountByUser(ctx, a, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresLocationStoreSuite) TestDeleteByUser() {
	ctx := context.Background()
	a, b := s.newUser(), s.newUser()
	s.add(a, time.Hour)
	s.add(a, 2*time.Hour)
	s.add(b, time.Hour)

	n, err := s.store.DeleteByUser(ctx, a)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	left, err := s.store.CountRecent(ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, left)
}
