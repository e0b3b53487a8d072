package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	POST(path string, body any) error
	GET(path string) error
	LastStatus() int
	LastBody() []byte
	LastHeader(name string) string
	ResponseField(path string) (any, error)
	UseActor(alias string)
	Email(alias string) string
	RememberUserID(alias, userID string)
	Expand(path string) string
	AdminCredentials() (string, string)
}

// Password is what every scenario user registers with.
const Password = "secret-pw"

// RegisterSteps registers actor setup, generic requests and assertions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background
	ctx.Step(`^the server is healthy$`, steps.serverIsHealthy)
	ctx.Step(`^I am an anonymous client$`, steps.anonymous)
	ctx.Step(`^a registered user "([^"]*)"$`, steps.registeredUser)
	ctx.Step(`^"([^"]*)" is logged in$`, steps.loggedIn)
	ctx.Step(`^I am logged in as the admin$`, steps.loggedInAsAdmin)
	ctx.Step(`^I act as "([^"]*)"$`, steps.actAs)

	// Generic requests
	ctx.Step(`^I (GET|DELETE) "([^"]*)"$`, steps.request)
	ctx.Step(`^I (POST|PUT) "([^"]*)" with body:$`, steps.requestWithBody)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response message should be "([^"]*)"$`, steps.messageShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response header "([^"]*)" should be present$`, steps.headerShouldBePresent)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsHealthy(ctx context.Context) error {
	if err := s.tc.GET("/health"); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusOK)
}

func (s *commonSteps) anonymous(ctx context.Context) error {
	s.tc.UseActor("anonymous")
	return nil
}

func (s *commonSteps) actAs(ctx context.Context, alias string) error {
	s.tc.UseActor(alias)
	return nil
}

func (s *commonSteps) registeredUser(ctx context.Context, alias string) error {
	s.tc.UseActor(alias)
	err := s.tc.POST("/api/v1/user/register", map[string]string{
		"name":     alias,
		"email":    s.tc.Email(alias),
		"password": Password,
	})
	if err != nil {
		return err
	}
	if err := s.statusShouldBe(ctx, http.StatusCreated); err != nil {
		return err
	}
	userID, err := s.tc.ResponseField("data.id")
	if err != nil {
		return err
	}
	s.tc.RememberUserID(alias, fmt.Sprint(userID))
	return nil
}

func (s *commonSteps) loggedIn(ctx context.Context, alias string) error {
	s.tc.UseActor(alias)
	err := s.tc.POST("/api/v1/user/login", map[string]string{
		"email":    s.tc.Email(alias),
		"password": Password,
	})
	if err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusOK)
}

func (s *commonSteps) loggedInAsAdmin(ctx context.Context) error {
	email, password := s.tc.AdminCredentials()
	if email == "" {
		return fmt.Errorf("E2E_ADMIN_EMAIL not set")
	}
	s.tc.UseActor("admin")
	if err := s.tc.POST("/api/v1/user/login", map[string]string{"email": email, "password": password}); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, http.StatusOK)
}

func (s *commonSteps) request(ctx context.Context, method, path string) error {
	return s.tc.Do(method, s.tc.Expand(path), nil)
}

func (s *commonSteps) requestWithBody(ctx context.Context, method, path string, body *godog.DocString) error {
	var payload any
	if err := json.Unmarshal([]byte(body.Content), &payload); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return s.tc.Do(method, s.tc.Expand(path), payload)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.LastBody())
	}
	return nil
}

func (s *commonSteps) messageShouldBe(ctx context.Context, want string) error {
	return s.fieldShouldEqual(ctx, "message", want)
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s to be %q, got %q", field, want, got)
	}
	return nil
}

func (s *commonSteps) headerShouldBePresent(ctx context.Context, name string) error {
	if s.tc.LastHeader(name) == "" {
		return fmt.Errorf("expected header %s to be present", name)
	}
	return nil
}
