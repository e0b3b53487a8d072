package httptransport

//go:generate mockgen -source=handlers_user.go -destination=mocks/user_mocks.go -package=mocks UserService

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmodels "waypoint/internal/auth/models"
	userStore "waypoint/internal/auth/store/user"
	"waypoint/internal/authz"
	"waypoint/internal/platform/middleware"
	rlmodels "waypoint/internal/ratelimit/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/platform/middleware/auth"
	"waypoint/pkg/platform/pagination"
	"waypoint/pkg/requestcontext"
)

// UserService is the account surface the handlers call.
type UserService interface {
	Register(ctx context.Context, req authmodels.RegisterRequest) (*authmodels.Profile, error)
	Login(ctx context.Context, req authmodels.LoginRequest) (*authmodels.LoginResult, error)
	Logout(ctx context.Context, userID id.UserID) error
	RotateRefresh(ctx context.Context, token string) (authmodels.TokenPair, error)
	UpdateProfile(ctx context.Context, userID id.UserID, req authmodels.UpdateRequest) (*authmodels.Profile, error)
	ListUsers(ctx context.Context, q authmodels.ListUsersQuery) (*authmodels.UserPage, error)
	DeleteUser(ctx context.Context, actorID, userID id.UserID) error
}

type UserHandler struct {
	users   UserService
	cookies CookieConfig
	logger  *slog.Logger
}

func NewUserHandler(users UserService, cookies CookieConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, cookies: cookies, logger: logger}
}

// Register mounts the user routes on r, each behind its guard policy.
func (h *UserHandler) Register(r chi.Router, g *middleware.Gatekeeper) {
	public := g.Guard(middleware.Policy{Class: rlmodels.ClassAuth})
	signedIn := g.Guard(middleware.Policy{Class: rlmodels.ClassAPI, Authenticated: true})
	admin := g.Guard(middleware.Policy{Class: rlmodels.ClassAPI, Role: authmodels.RoleAdmin})

	r.With(public).Post("/register", h.handleRegister)
	r.With(public).Post("/login", h.handleLogin)
	r.With(public).Post("/refresh-token", h.handleRefresh)
	r.With(signedIn).Get("/logout", h.handleLogout)
	r.With(signedIn).Put("/update", h.handleUpdate)
	r.With(admin).Get("/", h.handleList)
	r.With(admin).Delete("/{userId}", h.handleDelete)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authmodels.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.fail(r.Context(), w, "register failed", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, profile, "User registered successfully")
}

func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authmodels.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.fail(r.Context(), w, "login failed", err)
		return
	}
	h.cookies.setTokens(w, res.Tokens)
	httputil.WriteSuccess(w, http.StatusOK, res.User, "User logged in successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// handleRefresh takes the refresh token from its cookie, else from the body.
func (h *UserHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := auth.RefreshToken(r)
	if token == "" {
		var body refreshRequest
		if err := httputil.DecodeJSON(r, &body); err != nil {
			httputil.WriteError(w, err)
			return
		}
		token = body.RefreshToken
	}
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized request"))
		return
	}

	pair, err := h.users.RotateRefresh(r.Context(), token)
	if err != nil {
		h.fail(r.Context(), w, "refresh failed", err)
		return
	}
	h.cookies.setTokens(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, nil, "Access token refreshed successfully")
}

func (h *UserHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.users.Logout(r.Context(), identity.UserID); err != nil {
		h.fail(r.Context(), w, "logout failed", err)
		return
	}
	h.cookies.clearTokens(w)
	httputil.WriteSuccess(w, http.StatusOK, nil, "User logged out successfully")
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req authmodels.UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.users.UpdateProfile(r.Context(), identity.UserID, req)
	if err != nil {
		h.fail(r.Context(), w, "update failed", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, profile, "User updated successfully")
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := pagination.Parse(q.Get("page"), q.Get("limit"), q.Get("sort"),
		pagination.DefaultLimit, "-createdAt", userStore.SortFields()...)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	query := authmodels.ListUsersQuery{Page: page, Search: q.Get("search")}
	if userType := q.Get("userType"); userType != "" {
		role, err := authmodels.ParseRole(userType)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		query.Role = role
	}

	result, err := h.users.ListUsers(r.Context(), query)
	if err != nil {
		h.fail(r.Context(), w, "list users failed", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, result, "Users retrieved successfully")
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid user ID"))
		return
	}
	if err := h.users.DeleteUser(r.Context(), identity.UserID, userID); err != nil {
		h.fail(r.Context(), w, "delete user failed", err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, nil, "User deleted successfully")
}

// identity reads the caller the guard attached. Its absence means a route was
// registered without an authenticated policy.
func (h *UserHandler) identity(w http.ResponseWriter, r *http.Request) (authmodels.Identity, bool) {
	identity, ok := authz.IdentityFrom(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "identity missing from context despite guard",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
	}
	return identity, ok
}

func (h *UserHandler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	logFailure(ctx, h.logger, msg, err)
	httputil.WriteError(w, err)
}

func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error) {
	args := []any{"error", err, "request_id", requestcontext.RequestID(ctx)}
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeTimeout) {
		logger.ErrorContext(ctx, msg, args...)
		return
	}
	if _, ok := dErrors.As(err); !ok {
		logger.ErrorContext(ctx, msg, args...)
		return
	}
	logger.DebugContext(ctx, msg, args...)
}
