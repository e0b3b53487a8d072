package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	LastStatus() int
	LastHeader(name string) string
}

// RegisterSteps registers admission step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I send (\d+) check-ins in a row$`, steps.sendCheckIns)
	ctx.Step(`^I send (\d+) failed logins in a row$`, steps.sendFailedLogins)
	ctx.Step(`^the first (\d+) requests should not be rate limited$`, steps.firstNotLimited)
	ctx.Step(`^request (\d+) should return (\d+)$`, steps.nthShouldReturn)
	ctx.Step(`^the response should ask me to retry within (\d+) seconds$`, steps.retryAfterWithin)
}

type ratelimitSteps struct {
	tc TestContext
	// statuses of the last burst, in order
	statuses []int
}

func (s *ratelimitSteps) sendCheckIns(ctx context.Context, n int) error {
	return s.burst(n, "/api/v1/location/track", map[string]float64{"lat": 1, "lon": 2})
}

func (s *ratelimitSteps) sendFailedLogins(ctx context.Context, n int) error {
	return s.burst(n, "/api/v1/user/login", map[string]string{"email": "nobody@example.com", "password": "wrong-pw"})
}

func (s *ratelimitSteps) burst(n int, path string, body any) error {
	s.statuses = s.statuses[:0]
	for range n {
		if err := s.tc.POST(path, body); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.LastStatus())
	}
	return nil
}

func (s *ratelimitSteps) firstNotLimited(ctx context.Context, n int) error {
	if n > len(s.statuses) {
		return fmt.Errorf("only %d requests were sent", len(s.statuses))
	}
	for i, status := range s.statuses[:n] {
		if status == 429 {
			return fmt.Errorf("request %d was rate limited", i+1)
		}
	}
	return nil
}

func (s *ratelimitSteps) nthShouldReturn(ctx context.Context, n, want int) error {
	if n < 1 || n > len(s.statuses) {
		return fmt.Errorf("request %d was never sent", n)
	}
	if got := s.statuses[n-1]; got != want {
		return fmt.Errorf("expected request %d to return %d, got %d", n, want, got)
	}
	return nil
}

func (s *ratelimitSteps) retryAfterWithin(ctx context.Context, limit int) error {
	raw := s.tc.LastHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("retry-after header %q is not a number of seconds", raw)
	}
	if secs < 1 || secs > limit {
		return fmt.Errorf("retry-after %d outside [1, %d]", secs, limit)
	}
	return nil
}
