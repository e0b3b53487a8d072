// Package authz decides whether a caller may proceed. Identity is always
// established before any role check runs.
package authz

import (
	"context"
	"errors"

	"waypoint/internal/auth/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/sentinel"
)

// TokenVerifier checks an access token without touching storage.
type TokenVerifier interface {
	VerifyAccess(token string) (id.UserID, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
}

type Gate struct {
	tokens TokenVerifier
	users  UserFinder
}

func New(tokens TokenVerifier, users UserFinder) *Gate {
	return &Gate{tokens: tokens, users: users}
}

// RequireIdentity verifies the access token and loads the caller's current
// role. A missing, invalid or expired token, or a user that no longer exists,
// is unauthenticated. Store failures stay infrastructure errors.
func (g *Gate) RequireIdentity(ctx context.Context, accessToken string) (models.Identity, error) {
	if accessToken == "" {
		return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	userID, err := g.tokens.VerifyAccess(accessToken)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return models.Identity{}, err
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return models.Identity{}, dErrors.Infrastructure(err, "failed to load identity")
	}
	return models.Identity{UserID: user.ID, Role: user.Role}, nil
}

// RequireRole succeeds only when the identity holds exactly role.
func RequireRole(identity models.Identity, role models.Role) error {
	if identity.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if identity.Role != role {
		return dErrors.New(dErrors.CodeForbidden, "insufficient permissions")
	}
	return nil
}

// RequireSelfOrRole lets an identity act on its own id, or on any id when it
// holds role.
func RequireSelfOrRole(identity models.Identity, target id.UserID, role models.Role) error {
	if identity.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if identity.UserID == target {
		return nil
	}
	return RequireRole(identity, role)
}

type identityKey struct{}

// WithIdentity stores the verified caller in ctx.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the verified caller, if any.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(models.Identity)
	return identity, ok && !identity.UserID.IsNil()
}
