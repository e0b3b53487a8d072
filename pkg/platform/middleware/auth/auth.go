// Package auth extracts bearer credentials from requests. Verification lives
// with the authorization gate; this package only knows where tokens are carried.
package auth

import (
	"net/http"
	"strings"
)

// Cookie names shared by the handlers that set tokens and the middleware
// that reads them.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// AccessToken reads the access token from its cookie, falling back to an
// Authorization: Bearer header. It returns "" when neither is present.
func AccessToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return BearerToken(r)
}

// BearerToken returns the credential of an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RefreshToken reads the refresh token cookie.
func RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
