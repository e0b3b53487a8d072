// Package httptransport maps HTTP requests onto the account and location
// services. Handlers only parse, delegate and write envelopes; admission,
// authentication and authorization happen in the per-route guard.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/middleware/metadata"
	"waypoint/pkg/platform/middleware/request"
	"waypoint/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// Deps is everything the router wires together.
type Deps struct {
	Users      UserService
	Locations  LocationService
	Gatekeeper *middleware.Gatekeeper
	Cookies    CookieConfig
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// Gatherer backs /metrics. Nil leaves the route unmounted.
	Gatherer prometheus.Gatherer
	// TrustProxyHeaders takes the client address from forwarding headers.
	TrustProxyHeaders bool
	// Health reports readiness of backing stores; nil means always healthy.
	Health func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustProxyHeaders))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.Recovery(d.Logger, d.Metrics))
	r.Use(chimw.Timeout(requestTimeout))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Message:    "Method not allowed",
			Errors:     []string{},
		})
	})

	r.Get("/health", healthHandler(d.Health))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))
	}

	r.Route("/api/v1/user", func(r chi.Router) {
		NewUserHandler(d.Users, d.Cookies, d.Logger).Register(r, d.Gatekeeper)
	})
	r.Route("/api/v1/location", func(r chi.Router) {
		NewLocationHandler(d.Locations, d.Logger).Register(r, d.Gatekeeper)
	})
	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeTimeout, "Service unavailable"))
				return
			}
		}
		httputil.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "Service is healthy")
	}
}
