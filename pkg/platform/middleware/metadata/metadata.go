package metadata

import (
	"net"
	"net/http"
	"strings"

	"waypoint/pkg/requestcontext"
)

// ClientMetadata records the client address and User-Agent in the request
// context. Apply it before anything that keys on the address, such as rate
// limiting. With trustProxy false, forwarding headers are ignored because any
// client can set them.
func ClientMetadata(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RemoteIP(r)
			if trustProxy {
				ip = ClientIPFromRequest(r)
			}
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIPFromRequest extracts the client IP behind a single trusted proxy.
// The proxy appends the peer it saw to X-Forwarded-For, so the last entry is
// the only one a client cannot forge.
func ClientIPFromRequest(r *http.Request) string {
	if xff := strings.Join(r.Header.Values("X-Forwarded-For"), ","); xff != "" {
		if i := strings.LastIndex(xff, ","); i >= 0 {
			xff = xff[i+1:]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return RemoteIP(r)
}

// RemoteIP is the address of the directly connected peer.
func RemoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
