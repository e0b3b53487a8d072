package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"waypoint/internal/auth/models"
	"waypoint/internal/auth/password"
	jwttoken "waypoint/internal/jwt_token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/sentinel"
	"waypoint/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	List(ctx context.Context, q models.ListUsersQuery) ([]*models.User, error)
	Count(ctx context.Context, q models.ListUsersQuery) (int, error)
	SetRefreshToken(ctx context.Context, userID id.UserID, token string) error
	SwapRefreshToken(ctx context.Context, userID id.UserID, old, next string) error
	ClearRefreshToken(ctx context.Context, userID id.UserID) error
}

// LocationPurger removes a user's location history when the account goes.
type LocationPurger interface {
	DeleteByUser(ctx context.Context, userID id.UserID) (int64, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Service owns the credential lifecycle: accounts, token issuance, rotation
// and invalidation.
type Service struct {
	users     UserStore
	locations LocationPurger
	tokens    *jwttoken.JWTService
	hasher    PasswordHasher
	logger    *slog.Logger
	auditor   audit.Emitter
	metrics   *Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(auditor audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLocationPurger(p LocationPurger) Option {
	return func(s *Service) {
		s.locations = p
	}
}

func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// New constructs a Service.
func New(users UserStore, tokens *jwttoken.JWTService, opts ...Option) *Service {
	s := &Service{
		users:   users,
		tokens:  tokens,
		hasher:  password.New(0),
		logger:  slog.Default(),
		auditor: audit.Nop{},
		tracer:  otel.Tracer("waypoint/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}

func (s *Service) authFailure(ctx context.Context, reason string, attrs ...any) {
	args := append([]any{"reason", reason, "request_id", requestcontext.RequestID(ctx)}, attrs...)
	s.logger.WarnContext(ctx, "authentication failed", args...)
}

// loadUser maps store errors for operations that address an existing user.
func (s *Service) loadUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Infrastructure(err, "failed to load user")
	}
	return user, nil
}
