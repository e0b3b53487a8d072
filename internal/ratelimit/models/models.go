package models

import (
	"fmt"
	"time"

	dErrors "waypoint/pkg/domain-errors"
)

// Class groups routes that share one fixed-window budget per client.
type Class string

const (
	// ClassAPI is general traffic.
	ClassAPI Class = "api"
	// ClassAuth covers login, register and refresh.
	ClassAuth Class = "auth"
	// ClassTelemetry covers location ingestion.
	ClassTelemetry Class = "telemetry"
)

func (c Class) IsValid() bool {
	switch c {
	case ClassAPI, ClassAuth, ClassTelemetry:
		return true
	}
	return false
}

func (c Class) String() string { return string(c) }

// Limit is a fixed window: at most Max admissions per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

func (l Limit) Validate() error {
	if l.Max <= 0 {
		return dErrors.New(dErrors.CodeValidation, "rate limit max must be positive")
	}
	if l.Window <= 0 {
		return dErrors.New(dErrors.CodeValidation, "rate limit window must be positive")
	}
	return nil
}

// DefaultLimits returns a fresh copy of the built-in class budgets.
func DefaultLimits() map[Class]Limit {
	return map[Class]Limit{
		ClassAPI:       {Max: 100, Window: 15 * time.Minute},
		ClassAuth:      {Max: 20, Window: 15 * time.Minute},
		ClassTelemetry: {Max: 12, Window: time.Minute},
	}
}

// Window is the counter state a bucket store reports after an increment.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Result is one admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewResult derives a decision from the post-increment window. Rejected hits
// still count, so a client hammering a closed window gains nothing.
func NewResult(limit Limit, w Window, now time.Time) *Result {
	r := &Result{
		Allowed:   w.Count <= limit.Max,
		Limit:     limit.Max,
		Remaining: max(limit.Max-w.Count, 0),
		ResetAt:   w.ResetAt,
	}
	if !r.Allowed {
		r.RetryAfter = max(w.ResetAt.Sub(now), time.Second)
	}
	return r
}

// Key is the bucket key for a client address within a class.
func Key(ip string, class Class) string {
	return fmt.Sprintf("rl:ip:%s:%s", SanitizeKeySegment(ip), SanitizeKeySegment(string(class)))
}
