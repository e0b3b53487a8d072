package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"waypoint/internal/location/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/pagination"
)

type InMemoryLocationStoreSuite struct {
	suite.Suite
	store *InMemoryLocationStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryLocationStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLocationStoreSuite))
}

func (s *InMemoryLocationStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryLocationStoreSuite) add(userID id.UserID, age time.Duration) models.Location {
	loc := models.Location{
		ID:          id.NewLocationID(),
		UserID:      userID,
		Coordinates: [2]float64{52.5, 13.4},
		CreatedAt:   s.now.Add(-age),
	}
	s.Require().NoError(s.store.Create(s.ctx, &loc))
	return loc
}

func (s *InMemoryLocationStoreSuite) query(page, limit int, desc bool) models.Query {
	return models.Query{
		Since: s.now.Add(-24 * time.Hour),
		Page:  pagination.Params{Page: page, Limit: limit, Sort: "createdAt", Desc: desc},
	}
}

func (s *InMemoryLocationStoreSuite) TestReadsHonourCutoff() {
	alice, bob := id.NewUserID(), id.NewUserID()
	fresh := s.add(alice, time.Hour)
	s.add(alice, 25*time.Hour)
	s.add(bob, 2*time.Hour)

	byUser, err := s.store.ListByUser(s.ctx, alice, s.query(1, 10, true))
	s.Require().NoError(err)
	s.Require().Len(byUser, 1)
	s.Equal(fresh.ID, byUser[0].ID)

	n, err := s.store.CountByUser(s.ctx, alice, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	recent, err := s.store.ListRecent(s.ctx, s.query(1, 10, true))
	s.Require().NoError(err)
	s.Len(recent, 2)

	n, err = s.store.CountRecent(s.ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *InMemoryLocationStoreSuite) TestPaginationAndOrder() {
	userID := id.NewUserID()
	oldest := s.add(userID, 3*time.Hour)
	middle := s.add(userID, 2*time.Hour)
	newest := s.add(userID, time.Hour)

	desc, err := s.store.ListByUser(s.ctx, userID, s.query(1, 2, true))
	s.Require().NoError(err)
	s.Equal([]id.LocationID{newest.ID, middle.ID}, []id.LocationID{desc[0].ID, desc[1].ID})

	second, err := s.store.ListByUser(s.ctx, userID, s.query(2, 2, true))
	s.Require().NoError(err)
	s.Require().Len(second, 1)
	s.Equal(oldest.ID, second[0].ID)

	asc, err := s.store.ListByUser(s.ctx, userID, s.query(1, 1, false))
	s.Require().NoError(err)
	s.Equal(oldest.ID, asc[0].ID)

	beyond, err := s.store.ListByUser(s.ctx, userID, s.query(5, 2, true))
	s.Require().NoError(err)
	s.Empty(beyond)
}

func (s *InMemoryLocationStoreSuite) TestDeleteOlderThan() {
	userID := id.NewUserID()
	s.add(userID, time.Hour)
	s.add(userID, 25*time.Hour)
	s.add(userID, 48*time.Hour)

	n, err := s.store.DeleteOlderThan(s.ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), n)
	s.Equal(1, s.store.Len())
}

func (s *InMemoryLocationStoreSuite) TestDeleteByUser() {
	alice, bob := id.NewUserID(), id.NewUserID()
	s.add(alice, time.Hour)
	s.add(alice, 30*time.Hour)
	s.add(bob, time.Hour)

	n, err := s.store.DeleteByUser(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(int64(2), n, "expired rows belong to the user too")
	s.Equal(1, s.store.Len())
}
