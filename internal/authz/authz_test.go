package authz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waypoint/internal/auth/models"
	userStore "waypoint/internal/auth/store/user"
	jwttoken "waypoint/internal/jwt_token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/testutil"
)

type verifier struct {
	tokens *jwttoken.JWTService
}

func (v verifier) VerifyAccess(token string) (id.UserID, error) {
	claims, err := v.tokens.ValidateAccessToken(token)
	if err != nil {
		return id.UserID{}, err
	}
	return claims.UserID()
}

type failingFinder struct{ err error }

func (f failingFinder) FindByID(context.Context, id.UserID) (*models.User, error) {
	return nil, f.err
}

func TestRequireIdentity(t *testing.T) {
	tokens := jwttoken.NewJWTService("a", "r", "waypoint", time.Minute, time.Hour)
	users := userStore.New()
	admin := &models.User{ID: id.NewUserID(), Email: "admin@example.com", Role: models.RoleAdmin}
	require.NoError(t, users.Create(context.Background(), admin))
	gate := New(verifier{tokens}, users)

	testutil.Given(t, "a valid access token", func(t *testing.T) {
		token, _, err := tokens.GenerateAccessToken(admin.ID, "regular")
		require.NoError(t, err)

		testutil.Then(t, "the role comes from the store, not the token", func(t *testing.T) {
			identity, err := gate.RequireIdentity(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, admin.ID, identity.UserID)
			assert.Equal(t, models.RoleAdmin, identity.Role)
		})
	})

	testutil.Given(t, "no token", func(t *testing.T) {
		_, err := gate.RequireIdentity(context.Background(), "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	testutil.Given(t, "a token for a deleted user", func(t *testing.T) {
		token, _, err := tokens.GenerateAccessToken(id.NewUserID(), "regular")
		require.NoError(t, err)
		_, err = gate.RequireIdentity(context.Background(), token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	testutil.Given(t, "a store that times out", func(t *testing.T) {
		slow := New(verifier{tokens}, failingFinder{err: fmt.Errorf("find: %w", context.DeadlineExceeded)})
		token, _, err := tokens.GenerateAccessToken(admin.ID, "admin")
		require.NoError(t, err)

		testutil.Then(t, "the failure is not an authentication decision", func(t *testing.T) {
			_, err := slow.RequireIdentity(context.Background(), token)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		})
	})

	testutil.Given(t, "a broken store", func(t *testing.T) {
		broken := New(verifier{tokens}, failingFinder{err: errors.New("boom")})
		token, _, err := tokens.GenerateAccessToken(admin.ID, "admin")
		require.NoError(t, err)
		_, err = broken.RequireIdentity(context.Background(), token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestRequireRole(t *testing.T) {
	regular := models.Identity{UserID: id.NewUserID(), Role: models.RoleRegular}
	admin := models.Identity{UserID: id.NewUserID(), Role: models.RoleAdmin}

	assert.NoError(t, RequireRole(admin, models.RoleAdmin))
	assert.True(t, dErrors.HasCode(RequireRole(regular, models.RoleAdmin), dErrors.CodeForbidden))
	assert.True(t, dErrors.HasCode(RequireRole(models.Identity{}, models.RoleAdmin), dErrors.CodeUnauthorized),
		"no identity never reaches a role decision")
}

func TestRequireSelfOrRole(t *testing.T) {
	regular := models.Identity{UserID: id.NewUserID(), Role: models.RoleRegular}
	admin := models.Identity{UserID: id.NewUserID(), Role: models.RoleAdmin}

	assert.NoError(t, RequireSelfOrRole(regular, regular.UserID, models.RoleAdmin))
	assert.NoError(t, RequireSelfOrRole(admin, regular.UserID, models.RoleAdmin))
	assert.True(t, dErrors.HasCode(RequireSelfOrRole(regular, admin.UserID, models.RoleAdmin), dErrors.CodeForbidden))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	identity := models.Identity{UserID: id.NewUserID(), Role: models.RoleRegular}
	got, ok := IdentityFrom(WithIdentity(context.Background(), identity))
	assert.True(t, ok)
	assert.Equal(t, identity, got)
}
