package httptransport

import (
	"net/http"
	"time"

	authmodels "waypoint/internal/auth/models"
	"waypoint/pkg/platform/middleware/auth"
)

// CookieConfig controls the attributes of token cookies. Secure is only
// turned off for local development over plain HTTP.
type CookieConfig struct {
	Secure bool
	Path   string
}

func (c CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (c CookieConfig) setTokens(w http.ResponseWriter, pair authmodels.TokenPair) {
	http.SetCookie(w, c.cookie(auth.AccessTokenCookie, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, c.cookie(auth.RefreshTokenCookie, pair.RefreshToken, pair.RefreshExpiresAt))
}

func (c CookieConfig) clearTokens(w http.ResponseWriter) {
	for _, name := range []string{auth.AccessTokenCookie, auth.RefreshTokenCookie} {
		ck := c.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}
