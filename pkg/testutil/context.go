package testutil

import (
	"net/http"

	"waypoint/pkg/requestcontext"
)

// WithClientIP sets the address the rate limiter keys on, as the metadata
// middleware would.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent()))
}
