package e2e

import (
	"github.com/cucumber/godog"

	"waypoint/e2e/steps/auth"
	"waypoint/e2e/steps/common"
	"waypoint/e2e/steps/location"
	"waypoint/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (actors, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register account and token steps
	auth.RegisterSteps(ctx, tc)

	// Register check-in and admin read steps
	location.RegisterSteps(ctx, tc)

	// Register admission steps
	ratelimit.RegisterSteps(ctx, tc)
}
