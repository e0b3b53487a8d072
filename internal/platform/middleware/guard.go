package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	authmodels "waypoint/internal/auth/models"
	"waypoint/internal/authz"
	rlmodels "waypoint/internal/ratelimit/models"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/middleware/auth"
	"waypoint/pkg/requestcontext"
)

// Admission decides whether a client may spend one request of class.
type Admission interface {
	Allow(ctx context.Context, ip string, class rlmodels.Class) (*rlmodels.Result, error)
}

// Authenticator turns an access token into a verified identity.
type Authenticator interface {
	RequireIdentity(ctx context.Context, accessToken string) (authmodels.Identity, error)
}

// Policy is what one route demands of a request.
type Policy struct {
	Class rlmodels.Class
	// Authenticated requires a valid access token.
	Authenticated bool
	// Role, when set, requires the caller to hold it. Implies Authenticated.
	Role authmodels.Role
}

type Gatekeeper struct {
	admission Admission
	gate      Authenticator
	logger    *slog.Logger
}

// NewGatekeeper builds the per-route guard. A nil admission disables rate
// limiting.
func NewGatekeeper(admission Admission, gate Authenticator, logger *slog.Logger) *Gatekeeper {
	return &Gatekeeper{admission: admission, gate: gate, logger: logger}
}

// Guard runs admission, then authentication, then authorization. The first
// failure answers the request and the later stages never run.
func (g *Gatekeeper) Guard(p Policy) func(http.Handler) http.Handler {
	needIdentity := p.Authenticated || p.Role != ""
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if g.admission != nil {
				if !g.admit(w, r, p.Class) {
					return
				}
			}

			if needIdentity {
				identity, err := g.gate.RequireIdentity(ctx, auth.AccessToken(r))
				if err != nil {
					g.reject(ctx, w, "authentication failed", err)
					return
				}
				if p.Role != "" {
					if err := authz.RequireRole(identity, p.Role); err != nil {
						g.reject(ctx, w, "authorization failed", err, "user_id", identity.UserID.String())
						return
					}
				}
				ctx = authz.WithIdentity(ctx, identity)
				ctx = requestcontext.WithUserID(ctx, identity.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Gatekeeper) admit(w http.ResponseWriter, r *http.Request, class rlmodels.Class) bool {
	ctx := r.Context()
	res, err := g.admission.Allow(ctx, requestcontext.ClientIP(ctx), class)
	if err != nil {
		g.reject(ctx, w, "admission check failed", err)
		return false
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if res.Allowed {
		return true
	}

	h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "Too many requests, please try again later."))
	return false
}

func (g *Gatekeeper) reject(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestcontext.RequestID(ctx)}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		g.logger.ErrorContext(ctx, msg, args...)
	} else {
		g.logger.WarnContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
