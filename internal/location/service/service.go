// Package service implements location check-ins and the admin views over them.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	authmodels "waypoint/internal/auth/models"
	"waypoint/internal/location/metrics"
	"waypoint/internal/location/models"
	"waypoint/internal/location/retention"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/pagination"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/requestcontext"
)

// Store is the location persistence the service needs.
type Store interface {
	Create(ctx context.Context, loc *models.Location) error
	ListByUser(ctx context.Context, userID id.UserID, q models.Query) ([]models.Location, error)
	ListRecent(ctx context.Context, q models.Query) ([]models.Location, error)
	CountByUser(ctx context.Context, userID id.UserID, since time.Time) (int, error)
	CountRecent(ctx context.Context, since time.Time) (int, error)
}

// UserFinder resolves the subject of a log query.
type UserFinder interface {
	FindByID(ctx context.Context, userID id.UserID) (*authmodels.User, error)
}

type Service struct {
	locations Store
	users     UserFinder
	policy    retention.Policy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(locations Store, users UserFinder, policy retention.Policy, opts ...Option) *Service {
	s := &Service{
		locations: locations,
		users:     users,
		policy:    policy,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track records a check-in for userID at the request time.
func (s *Service) Track(ctx context.Context, userID id.UserID, req models.TrackRequest) (*models.Location, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	loc := &models.Location{
		ID:          id.NewLocationID(),
		UserID:      userID,
		Coordinates: [2]float64{req.Lat.Float(), req.Lon.Float()},
		CreatedAt:   requestcontext.Now(ctx).UTC(),
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, dErrors.Infrastructure(err, "failed to save location")
	}
	s.metrics.IncrementTracked()
	return loc, nil
}

// LiveLocations pages through the check-ins of every user still inside the
// retention window.
func (s *Service) LiveLocations(ctx context.Context, page pagination.Params) (*models.LocationPage, error) {
	q := s.query(ctx, page)

	var (
		locs  []models.Location
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		locs, err = s.locations.ListRecent(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.locations.CountRecent(gctx, q.Since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Infrastructure(err, "failed to load locations")
	}

	return &models.LocationPage{
		Locations:      locs,
		TotalLocations: total,
		Page:           page.Page,
		Limit:          page.Limit,
	}, nil
}

// UserLogs pages through one user's live check-ins.
func (s *Service) UserLogs(ctx context.Context, userID id.UserID, page pagination.Params) (*models.LogPage, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, dErrors.Infrastructure(err, "failed to load user")
	}

	q := s.query(ctx, page)
	var (
		logs  []models.Location
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = s.locations.ListByUser(gctx, userID, q)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.locations.CountByUser(gctx, userID, q.Since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Infrastructure(err, "failed to load location logs")
	}

	return &models.LogPage{
		User:         user.Profile(),
		LocationLogs: logs,
		TotalLogs:    total,
		Page:         page.Page,
		Limit:        page.Limit,
	}, nil
}

func (s *Service) query(ctx context.Context, page pagination.Params) models.Query {
	return models.Query{
		Since: s.policy.Cutoff(requestcontext.Now(ctx)),
		Page:  page,
	}
}
