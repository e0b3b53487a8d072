package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	Email(alias string) string
	CurrentActor() string
	Cookie(name string) string
	PreviousCookie(name string) string
	SetCookie(name, value string)
	ResponseCookie(name string) *http.Cookie
}

// RegisterSteps registers account and token lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	// Login
	ctx.Step(`^I log in with password "([^"]*)"$`, steps.loginWithPassword)
	ctx.Step(`^I log in as unknown user "([^"]*)"$`, steps.loginUnknown)
	ctx.Step(`^the "([^"]*)" cookie should be HttpOnly and SameSite Strict$`, steps.cookieShouldBeHardened)

	// Token lifecycle
	ctx.Step(`^I refresh my tokens$`, steps.refresh)
	ctx.Step(`^I replay my previous refresh token$`, steps.replayPrevious)
	ctx.Step(`^I refresh with token "([^"]*)" in the body$`, steps.refreshWithBodyToken)
	ctx.Step(`^my refresh token should have changed$`, steps.refreshTokenChanged)
	ctx.Step(`^I log out$`, steps.logout)

	// Profile
	ctx.Step(`^I update my name to "([^"]*)"$`, steps.updateName)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) loginWithPassword(ctx context.Context, password string) error {
	return s.tc.POST("/api/v1/user/login", map[string]string{
		"email":    s.tc.Email(s.tc.CurrentActor()),
		"password": password,
	})
}

func (s *authSteps) loginUnknown(ctx context.Context, alias string) error {
	return s.tc.POST("/api/v1/user/login", map[string]string{
		"email":    s.tc.Email(alias),
		"password": "whatever-pw",
	})
}

func (s *authSteps) cookieShouldBeHardened(ctx context.Context, name string) error {
	c := s.tc.ResponseCookie(name)
	if c == nil {
		return fmt.Errorf("expected response to set cookie %s", name)
	}
	if !c.HttpOnly {
		return fmt.Errorf("cookie %s is not HttpOnly", name)
	}
	if c.SameSite != http.SameSiteStrictMode {
		return fmt.Errorf("cookie %s is not SameSite=Strict", name)
	}
	return nil
}

func (s *authSteps) refresh(ctx context.Context) error {
	return s.tc.POST("/api/v1/user/refresh-token", nil)
}

// replayPrevious presents the refresh token the last rotation superseded,
// then restores the current one so later steps can observe revocation.
func (s *authSteps) replayPrevious(ctx context.Context) error {
	stale := s.tc.PreviousCookie(refreshCookie)
	if stale == "" {
		return fmt.Errorf("no previous refresh token recorded")
	}
	current := s.tc.Cookie(refreshCookie)
	s.tc.SetCookie(refreshCookie, stale)
	err := s.tc.POST("/api/v1/user/refresh-token", nil)
	s.tc.SetCookie(refreshCookie, current)
	return err
}

func (s *authSteps) refreshWithBodyToken(ctx context.Context, token string) error {
	return s.tc.POST("/api/v1/user/refresh-token", map[string]string{"refreshToken": token})
}

func (s *authSteps) refreshTokenChanged(ctx context.Context) error {
	current, previous := s.tc.Cookie(refreshCookie), s.tc.PreviousCookie(refreshCookie)
	if current == "" || current == previous {
		return fmt.Errorf("refresh token was not rotated")
	}
	if s.tc.Cookie(accessCookie) == "" {
		return fmt.Errorf("access token cookie missing after refresh")
	}
	return nil
}

func (s *authSteps) logout(ctx context.Context) error {
	return s.tc.GET("/api/v1/user/logout")
}

func (s *authSteps) updateName(ctx context.Context, name string) error {
	return s.tc.PUT("/api/v1/user/update", map[string]string{"name": name})
}
