// Package e2e drives a running waypoint server through Gherkin scenarios.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TestContext is the per-scenario HTTP client state. Each named actor keeps
// its own cookies; every scenario presents a fresh client address so rate
// limit budgets never leak between scenarios.
type TestContext struct {
	BaseURL       string
	AdminEmail    string
	AdminPassword string

	client   *http.Client
	runID    string
	clientIP string

	actor    string
	userIDs  map[string]string
	sessions map[string]map[string]*http.Cookie
	previous map[string]map[string]*http.Cookie

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
}

func NewTestContext(baseURL, adminEmail, adminPassword, runID string) *TestContext {
	return &TestContext{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		client:        &http.Client{Timeout: 10 * time.Second},
		runID:         runID,
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.clientIP = fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254))
	tc.actor = ""
	tc.userIDs = map[string]string{}
	tc.sessions = map[string]map[string]*http.Cookie{}
	tc.previous = map[string]map[string]*http.Cookie{}
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
}

// Email turns a scenario alias into an address unique to this run.
func (tc *TestContext) Email(alias string) string {
	return fmt.Sprintf("%s+%s@example.com", alias, tc.runID)
}

// RememberUserID records the id the server assigned to alias.
func (tc *TestContext) RememberUserID(alias, userID string) {
	tc.userIDs[alias] = userID
}

// Expand replaces {alias} placeholders in a path with remembered user ids.
func (tc *TestContext) Expand(path string) string {
	for alias, userID := range tc.userIDs {
		path = strings.ReplaceAll(path, "{"+alias+"}", userID)
	}
	return path
}

// UseActor makes alias the sender of subsequent requests.
func (tc *TestContext) UseActor(alias string) {
	tc.actor = alias
	if tc.sessions[alias] == nil {
		tc.sessions[alias] = map[string]*http.Cookie{}
	}
}

func (tc *TestContext) CurrentActor() string { return tc.actor }

// Cookie returns the actor's stored cookie value.
func (tc *TestContext) Cookie(name string) string {
	if c, ok := tc.sessions[tc.actor][name]; ok {
		return c.Value
	}
	return ""
}

// PreviousCookie returns the value the cookie had before the last response
// replaced it.
func (tc *TestContext) PreviousCookie(name string) string {
	if c, ok := tc.previous[tc.actor][name]; ok {
		return c.Value
	}
	return ""
}

// SetCookie overrides a cookie for the current actor.
func (tc *TestContext) SetCookie(name, value string) {
	tc.UseActor(tc.actor)
	tc.sessions[tc.actor][name] = &http.Cookie{Name: name, Value: value}
}

// ResponseCookie returns a cookie set by the last response.
func (tc *TestContext) ResponseCookie(name string) *http.Cookie {
	resp := http.Response{Header: tc.lastHeaders}
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (tc *TestContext) POST(path string, body any) error { return tc.Do(http.MethodPost, path, body) }
func (tc *TestContext) PUT(path string, body any) error { return tc.Do(http.MethodPut, path, body) }
func (tc *TestContext) GET(path string) error { return tc.Do(http.MethodGet, path, nil) }
func (tc *TestContext) DELETE(path string) error { return tc.Do(http.MethodDelete, path, nil) }
func (tc *TestContext) LastStatus() int { return tc.lastStatus }
func (tc *TestContext) LastBody() []byte { return tc.lastBody }
func (tc *TestContext) LastHeader(name string) string { return tc.lastHeaders.Get(name) }

// Do sends one request as the current actor and records the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", tc.clientIP)
	for _, c := range tc.sessions[tc.actor] {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.storeCookies(resp.Cookies())
	return nil
}

func (tc *TestContext) storeCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 || tc.actor == "" {
		return
	}
	jar := tc.sessions[tc.actor]
	prev := map[string]*http.Cookie{}
	for name, c := range jar {
		prev[name] = c
	}
	tc.previous[tc.actor] = prev
	for _, c := range cookies {
		if c.MaxAge < 0 || c.Value == "" {
			delete(jar, c.Name)
			continue
		}
		jar[c.Name] = c
	}
}

// ResponseField walks a dotted path into the last JSON body. Numeric
// segments index arrays.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var v any
	if err := json.Unmarshal(tc.lastBody, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", path)
			}
			v = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", seg, path)
			}
			v = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q at %q", path, seg)
		}
	}
	return v, nil
}

func (tc *TestContext) AdminCredentials() (string, string) {
	return tc.AdminEmail, tc.AdminPassword
}
