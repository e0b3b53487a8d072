// Package service is the admission controller: one fixed-window decision per
// client address and route class.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"waypoint/internal/ratelimit/metrics"
	"waypoint/internal/ratelimit/models"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/audit"
	"waypoint/pkg/requestcontext"
)

// BucketStore counts hits per key. Implementations must increment atomically.
type BucketStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (models.Window, error)
}

type Service struct {
	buckets BucketStore
	limits  map[models.Class]models.Limit
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

// WithLimits replaces the default class budgets.
func WithLimits(limits map[models.Class]models.Limit) Option {
	return func(s *Service) { s.limits = limits }
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	s := &Service{
		buckets: buckets,
		limits:  models.DefaultLimits(),
		logger:  slog.Default(),
		auditor: audit.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for class, limit := range s.limits {
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("class %s: %w", class, err)
		}
	}
	return s, nil
}

// Limit reports the budget of class.
func (s *Service) Limit(class models.Class) (models.Limit, bool) {
	l, ok := s.limits[class]
	return l, ok
}

// Allow counts one request from ip against class. A store failure is returned
// as an infrastructure error and never turned into a decision.
func (s *Service) Allow(ctx context.Context, ip string, class models.Class) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("no rate limit configured for class %q", class))
	}

	window, err := s.buckets.Increment(ctx, models.Key(ip, class), limit.Window)
	if err != nil {
		s.metrics.IncrementStoreErrors()
		s.logger.ErrorContext(ctx, "rate limit store unavailable",
			"error", err,
			"class", class,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Infrastructure(err, "rate limit check failed")
	}

	result := models.NewResult(limit, window, requestcontext.Now(ctx))
	s.metrics.ObserveDecision(class.String(), result.Allowed)
	if !result.Allowed && window.Count == limit.Max+1 {
		// Only the first rejection of a window is worth an audit record.
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"class", class,
			"limit", limit.Max,
			"request_id", requestcontext.RequestID(ctx),
		)
		if err := s.auditor.Emit(ctx, audit.Event{
			Action: audit.EventRateLimitExceeded,
			IP:     ip,
			Reason: class.String(),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(audit.EventRateLimitExceeded), "error", err)
		}
	}
	return result, nil
}
