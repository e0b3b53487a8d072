package jwttoken

import (
	"testing"
	"time"

	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	accessTTL  = 15 * time.Minute
	refreshTTL = 240 * time.Hour
)

func newService(opts ...Option) *JWTService {
	return NewJWTService("test-access-key", "test-refresh-key", "test-issuer", accessTTL, refreshTTL, opts...)
}

func Test_GenerateAccessToken(t *testing.T) {
	svc := newService()
	userID := id.NewUserID()

	token, expiresAt, err := svc.GenerateAccessToken(userID, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(accessTTL), expiresAt, time.Minute)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func Test_GenerateRefreshToken_DistinctWithinSameSecond(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newService(WithClock(func() time.Time { return fixed }))
	userID := id.NewUserID()

	first, _, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	second, _, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func Test_ValidateAccessToken_InvalidToken(t *testing.T) {
	_, err := newService().ValidateAccessToken("invalid-token-string")
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateAccessToken_Missing(t *testing.T) {
	_, err := newService().ValidateAccessToken("")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateAccessToken_ExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	issuer := newService(WithClock(func() time.Time { return issuedAt }))

	// every subject gets the same treatment
	for range 5 {
		token, _, err := issuer.GenerateAccessToken(id.NewUserID(), "regular")
		require.NoError(t, err)

		_, err = newService().ValidateAccessToken(token)
		require.ErrorIs(t, err, ErrTokenExpired)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
}

func Test_ValidateAccessToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-refresh-key", "test-issuer", accessTTL, refreshTTL)
	token, _, err := other.GenerateAccessToken(id.NewUserID(), "regular")
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateAccessToken_WrongIssuer(t *testing.T) {
	other := NewJWTService("test-access-key", "test-refresh-key", "someone-else", accessTTL, refreshTTL)
	token, _, err := other.GenerateAccessToken(id.NewUserID(), "regular")
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_TokenTypesAreNotInterchangeable(t *testing.T) {
	// Same key for both kinds so only the typ claim separates them.
	svc := NewJWTService("shared", "shared", "test-issuer", accessTTL, refreshTTL)
	userID := id.NewUserID()

	refresh, _, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)

	access, _, err := svc.GenerateAccessToken(userID, "regular")
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.NewUserID().String(),
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService().ValidateAccessToken(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateRefreshToken_ValidToken(t *testing.T) {
	svc := newService()
	userID := id.NewUserID()

	token, expiresAt, err := svc.GenerateRefreshToken(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(refreshTTL), expiresAt, time.Minute)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}
