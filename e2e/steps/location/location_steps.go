package location

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	Expand(path string) string
	ResponseField(path string) (any, error)
}

// RegisterSteps registers check-in and admin read step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &locationSteps{tc: tc}

	ctx.Step(`^I check in at (-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?)$`, steps.checkIn)
	ctx.Step(`^I request the live locations$`, steps.liveLocations)
	ctx.Step(`^I request the location logs of "([^"]*)"$`, steps.userLogs)
	ctx.Step(`^the response should list (\d+) location logs?$`, steps.shouldListLogs)
	ctx.Step(`^the live locations should include at least (\d+) records?$`, steps.liveShouldInclude)
}

type locationSteps struct {
	tc TestContext
}

func (s *locationSteps) checkIn(ctx context.Context, lat, lon float64) error {
	return s.tc.POST("/api/v1/location/track", map[string]float64{"lat": lat, "lon": lon})
}

func (s *locationSteps) liveLocations(ctx context.Context) error {
	return s.tc.GET("/api/v1/location/admin/locations?limit=100")
}

func (s *locationSteps) userLogs(ctx context.Context, alias string) error {
	return s.tc.GET(s.tc.Expand("/api/v1/location/admin/logs/{" + alias + "}"))
}

func (s *locationSteps) shouldListLogs(ctx context.Context, want int) error {
	got, err := s.number("data.totalLogs")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %d location logs, got %d", want, got)
	}
	return nil
}

// liveShouldInclude is a lower bound because other scenarios share the server.
func (s *locationSteps) liveShouldInclude(ctx context.Context, want int) error {
	got, err := s.number("data.totalLocations")
	if err != nil {
		return err
	}
	if got < want {
		return fmt.Errorf("expected at least %d live locations, got %d", want, got)
	}
	return nil
}

func (s *locationSteps) number(field string) (int, error) {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%s is not a number: %v", field, v)
	}
	return int(f), nil
}
