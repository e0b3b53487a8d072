package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authmodels "waypoint/internal/auth/models"
	userStore "waypoint/internal/auth/store/user"
	"waypoint/internal/location/metrics"
	"waypoint/internal/location/models"
	"waypoint/internal/location/retention"
	"waypoint/internal/location/service/mocks"
	"waypoint/internal/location/store"
	"waypoint/internal/platform/logger"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/pagination"
	"waypoint/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	now       time.Time
	users     *userStore.InMemoryUserStore
	locations *store.InMemoryLocationStore
	metrics   *metrics.Metrics
	service   *Service
	alice     *authmodels.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	s.users = userStore.New()
	s.locations = store.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.locations, s.users, retention.NewPolicy(24*time.Hour),
		WithLogger(logger.Discard()), WithMetrics(s.metrics))

	s.alice = &authmodels.User{
		ID: id.NewUserID(), Name: "Alice", Email: "alice@example.com",
		PasswordHash: "secret-hash", Role: authmodels.RoleRegular, CreatedAt: s.now, UpdatedAt: s.now,
	}
	s.Require().NoError(s.users.Create(context.Background(), s.alice))
}

func (s *ServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *ServiceSuite) page() pagination.Params {
	return pagination.Params{Page: 1, Limit: 10, Sort: "createdAt", Desc: true}
}

func (s *ServiceSuite) track(at time.Time, lat, lon float64) *models.Location {
	loc, err := s.service.Track(s.at(at), s.alice.ID, models.TrackRequest{
		Lat: models.NewCoordinate(lat), Lon: models.NewCoordinate(lon),
	})
	s.Require().NoError(err)
	return loc
}

func (s *ServiceSuite) TestTrack() {
	loc := s.track(s.now, 52.52, 13.405)

	s.Equal(s.alice.ID, loc.UserID)
	s.Equal([2]float64{52.52, 13.405}, loc.Coordinates)
	s.Equal(s.now, loc.CreatedAt)
	s.False(loc.ID.IsNil())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Tracked))
}

func (s *ServiceSuite) TestTrackRequiresBothCoordinates() {
	_, err := s.service.Track(s.at(s.now), s.alice.ID, models.TrackRequest{Lat: models.NewCoordinate(1)})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Equal(0, s.locations.Len())
}

func (s *ServiceSuite) TestUserLogsFollowRetention() {
	s.track(s.now, 1, 1)

	logs, err := s.service.UserLogs(s.at(s.now.Add(time.Hour)), s.alice.ID, s.page())
	s.Require().NoError(err)
	s.Len(logs.LocationLogs, 1)
	s.Equal(1, logs.TotalLogs)
	s.Equal("alice@example.com", logs.User.Email)

	logs, err = s.service.UserLogs(s.at(s.now.Add(25*time.Hour)), s.alice.ID, s.page())
	s.Require().NoError(err)
	s.Empty(logs.LocationLogs)
	s.Zero(logs.TotalLogs)
}

func (s *ServiceSuite) TestUserLogsForUnknownUser() {
	_, err := s.service.UserLogs(s.at(s.now), id.NewUserID(), s.page())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLiveLocations() {
	s.track(s.now.Add(-30*time.Hour), 1, 1)
	s.track(s.now.Add(-2*time.Hour), 2, 2)
	latest := s.track(s.now.Add(-time.Hour), 3, 3)

	page, err := s.service.LiveLocations(s.at(s.now), pagination.Params{Page: 1, Limit: 1, Desc: true})
	s.Require().NoError(err)
	s.Require().Len(page.Locations, 1)
	s.Equal(latest.ID, page.Locations[0].ID)
	s.Equal(2, page.TotalLocations)
	s.Equal(1, page.Page)
	s.Equal(1, page.Limit)
}

func TestServiceStoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	locations := mocks.NewMockStore(ctrl)
	users := mocks.NewMockUserFinder(ctrl)
	svc := New(locations, users, retention.NewPolicy(24*time.Hour), WithLogger(logger.Discard()))
	ctx := context.Background()
	page := pagination.Params{Page: 1, Limit: 10, Desc: true}

	t.Run("track write timeout is a 503", func(t *testing.T) {
		locations.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("insert: %w", context.DeadlineExceeded))

		_, err := svc.Track(ctx, id.NewUserID(), models.TrackRequest{
			Lat: models.NewCoordinate(0), Lon: models.NewCoordinate(0),
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	})

	t.Run("count failure fails the page", func(t *testing.T) {
		locations.EXPECT().ListRecent(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
		locations.EXPECT().CountRecent(gomock.Any(), gomock.Any()).Return(0, errors.New("boom"))

		_, err := svc.LiveLocations(ctx, page)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "got %v", err)
	})

	t.Run("user lookup failure is not a 404", func(t *testing.T) {
		users.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("conn reset"))

		_, err := svc.UserLogs(ctx, id.NewUserID(), page)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "got %v", err)
	})

	t.Run("log query uses the retention cutoff", func(t *testing.T) {
		now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		userID := id.NewUserID()
		users.EXPECT().FindByID(gomock.Any(), userID).Return(&authmodels.User{ID: userID}, nil)
		locations.EXPECT().ListByUser(gomock.Any(), userID, models.Query{Since: now.Add(-24 * time.Hour), Page: page}).
			Return([]models.Location{}, nil)
		locations.EXPECT().CountByUser(gomock.Any(), userID, now.Add(-24*time.Hour)).Return(0, nil)

		_, err := svc.UserLogs(requestcontext.WithTime(ctx, now), userID, page)
		require.NoError(t, err)
	})
}
