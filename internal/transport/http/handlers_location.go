package httptransport

//go:generate mockgen -source=handlers_location.go -destination=mocks/location_mocks.go -package=mocks LocationService

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "waypoint/internal/auth/models"
	"waypoint/internal/authz"
	locmodels "waypoint/internal/location/models"
	locStore "waypoint/internal/location/store"
	"waypoint/internal/platform/middleware"
	rlmodels "waypoint/internal/ratelimit/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/pagination"
)

type LocationService interface {
	Track(ctx context.Context, userID id.UserID, req locmodels.TrackRequest) (*locmodels.Location, error)
	LiveLocations(ctx context.Context, page pagination.Params) (*locmodels.LocationPage, error)
	UserLogs(ctx context.Context, userID id.UserID, page pagination.Params) (*locmodels.LogPage, error)
}

type LocationHandler struct {
	locations LocationService
	logger    *slog.Logger
}

func NewLocationHandler(locations LocationService, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{locations: locations, logger: logger}
}

func (h *LocationHandler) Register(r chi.Router, g *middleware.Gatekeeper) {
	telemetry := g.Guard(middleware.Policy{Class: rlmodels.ClassTelemetry, Authenticated: true})
	admin := g.Guard(middleware.Policy{Class: rlmodels.ClassAPI, Role: authmodels.RoleAdmin})

	r.With(telemetry).Post("/track", h.handleTrack)
	r.With(admin).Get("/admin/locations", h.handleLiveLocations)
	r.With(admin).Get("/admin/logs/{userId}", h.handleUserLogs)
}

func (h *LocationHandler) handleTrack(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFrom(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	var req locmodels.TrackRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	loc, err := h.locations.Track(r.Context(), identity.UserID, req)
	if err != nil {
		logFailure(r.Context(), h.logger, "track failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, loc, "Location added successfully")
}

func (h *LocationHandler) handleLiveLocations(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.locations.LiveLocations(r.Context(), page)
	if err != nil {
		logFailure(r.Context(), h.logger, "live locations failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, result, "Latest location retrieved successfully")
}

func (h *LocationHandler) handleUserLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid user ID"))
		return
	}
	page, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.locations.UserLogs(r.Context(), userID, page)
	if err != nil {
		logFailure(r.Context(), h.logger, "user logs failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, result, "Location logs retrieved successfully")
}

func parsePage(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	return pagination.Parse(q.Get("page"), q.Get("limit"), q.Get("sort"),
		pagination.DefaultLimit, "-createdAt", locStore.SortFields()...)
}
