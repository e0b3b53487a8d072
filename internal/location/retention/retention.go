// Package retention bounds how long a location record lives. Reads apply
// Policy.Cutoff so an expired record is never visible; the Sweeper removes
// expired rows from storage at most one purge interval late.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waypoint/internal/location/metrics"
	"waypoint/pkg/platform/audit"
)

// Policy is a fixed maximum record age.
type Policy struct {
	Window time.Duration
}

func NewPolicy(window time.Duration) Policy {
	return Policy{Window: window}
}

// Cutoff is the oldest creation time still visible at now.
func (p Policy) Cutoff(now time.Time) time.Time {
	return now.Add(-p.Window)
}

// Expired reports whether a record created at createdAt is past retention.
func (p Policy) Expired(createdAt, now time.Time) bool {
	return createdAt.Before(p.Cutoff(now))
}

// Purger deletes records created before cutoff.
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	store    Purger
	policy   Policy
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  audit.Emitter
	tracer   trace.Tracer
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Sweeper) { s.auditor = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper purges expired records every interval.
func NewSweeper(store Purger, policy Policy, interval time.Duration, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("retention store is required")
	}
	if policy.Window <= 0 {
		return nil, fmt.Errorf("retention window must be positive")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("purge interval must be positive")
	}
	s := &Sweeper{
		store:    store,
		policy:   policy,
		interval: interval,
		now:      time.Now,
		logger:   slog.Default(),
		auditor:  audit.Nop{},
		tracer:   otel.Tracer("waypoint/retention"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run sweeps once immediately and then every interval until ctx is done. A
// failed sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "retention sweeper started",
		"window", s.policy.Window.String(),
		"interval", s.interval.String(),
	)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "retention sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retention sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes every record past retention and returns how many went.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "retention.Sweep")
	defer span.End()

	start := s.now()
	cutoff := s.policy.Cutoff(start)
	span.SetAttributes(attribute.String("retention.cutoff", cutoff.Format(time.RFC3339)))

	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	s.metrics.ObserveSweep(n, time.Since(start).Seconds(), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "purge failed")
		return 0, fmt.Errorf("purge expired locations: %w", err)
	}
	span.SetAttributes(attribute.Int64("retention.purged", n))

	if n > 0 {
		s.logger.InfoContext(ctx, "expired locations purged", "count", n, "cutoff", cutoff)
		if err := s.auditor.Emit(ctx, audit.Event{
			Action: audit.EventLocationsPurged,
			Reason: fmt.Sprintf("%d records older than %s", n, cutoff.Format(time.RFC3339)),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(audit.EventLocationsPurged), "error", err)
		}
	}
	return n, nil
}
