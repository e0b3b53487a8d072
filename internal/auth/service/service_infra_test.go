package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"waypoint/internal/auth/models"
	"waypoint/internal/auth/service/mocks"
	jwttoken "waypoint/internal/jwt_token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/sentinel"
)

type mockDeps struct {
	users     *mocks.MockUserStore
	locations *mocks.MockLocationPurger
	hasher    *mocks.MockPasswordHasher
	tokens    *jwttoken.JWTService
	service   *Service
}

func newMockService(t *testing.T) *mockDeps {
	ctrl := gomock.NewController(t)
	d := &mockDeps{
		users:     mocks.NewMockUserStore(ctrl),
		locations: mocks.NewMockLocationPurger(ctrl),
		hasher:    mocks.NewMockPasswordHasher(ctrl),
		tokens:    jwttoken.NewJWTService(accessSecret, refreshSecret, "waypoint", time.Minute, time.Hour),
	}
	d.service = New(d.users, d.tokens,
		WithPasswordHasher(d.hasher),
		WithLocationPurger(d.locations),
	)
	return d
}

func TestRotateRefresh_StoreTimeoutIsNotAnAuthDecision(t *testing.T) {
	d := newMockService(t)
	userID := id.NewUserID()
	token, _, err := d.tokens.GenerateRefreshToken(userID)
	require.NoError(t, err)

	d.users.EXPECT().FindByID(gomock.Any(), userID).
		Return(nil, fmt.Errorf("query: %w", context.DeadlineExceeded))

	_, err = d.service.RotateRefresh(context.Background(), token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	assert.NotErrorIs(t, err, ErrTokenRevoked)
}

func TestRotateRefresh_LostSwapIsRevoked(t *testing.T) {
	d := newMockService(t)
	userID := id.NewUserID()
	token, _, err := d.tokens.GenerateRefreshToken(userID)
	require.NoError(t, err)

	d.users.EXPECT().FindByID(gomock.Any(), userID).
		Return(&models.User{ID: userID, Role: models.RoleRegular, RefreshToken: &token}, nil)
	d.users.EXPECT().SwapRefreshToken(gomock.Any(), userID, token, gomock.Any()).
		Return(fmt.Errorf("swap: %w", sentinel.ErrStale))

	_, err = d.service.RotateRefresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRotateRefresh_SwapFailureIsInternal(t *testing.T) {
	d := newMockService(t)
	userID := id.NewUserID()
	token, _, err := d.tokens.GenerateRefreshToken(userID)
	require.NoError(t, err)

	d.users.EXPECT().FindByID(gomock.Any(), userID).
		Return(&models.User{ID: userID, Role: models.RoleRegular, RefreshToken: &token}, nil)
	d.users.EXPECT().SwapRefreshToken(gomock.Any(), userID, token, gomock.Any()).
		Return(errors.New("connection reset"))

	_, err = d.service.RotateRefresh(context.Background(), token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestIssuePair_SingleDurableWrite(t *testing.T) {
	d := newMockService(t)
	userID := id.NewUserID()

	var stored string
	d.users.EXPECT().SetRefreshToken(gomock.Any(), userID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.UserID, token string) error {
			stored = token
			return nil
		}).Times(1)

	pair, err := d.service.IssuePair(context.Background(), userID, models.RoleRegular)
	require.NoError(t, err)
	assert.Equal(t, stored, pair.RefreshToken)
	assert.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))
}

func TestLogout_StoreFailureSurfaces(t *testing.T) {
	d := newMockService(t)
	userID := id.NewUserID()
	d.users.EXPECT().ClearRefreshToken(gomock.Any(), userID).Return(errors.New("disk full"))

	err := d.service.Logout(context.Background(), userID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestLogin_HasherFailureIsInternal(t *testing.T) {
	d := newMockService(t)
	user := &models.User{ID: id.NewUserID(), Email: "jane@example.com", PasswordHash: "corrupt"}
	d.users.EXPECT().FindByEmail(gomock.Any(), "jane@example.com").Return(user, nil)
	d.hasher.EXPECT().Compare("corrupt", "secret-pw").Return(errors.New("bad hash"))

	_, err := d.service.Login(context.Background(), models.LoginRequest{Email: "jane@example.com", Password: "secret-pw"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestDeleteUser_RemovesLocationsFirst(t *testing.T) {
	d := newMockService(t)
	target := &models.User{ID: id.NewUserID(), Email: "jane@example.com"}

	gomock.InOrder(
		d.users.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil),
		d.locations.EXPECT().DeleteByUser(gomock.Any(), target.ID).Return(int64(3), nil),
		d.users.EXPECT().Delete(gomock.Any(), target.ID).Return(nil),
	)

	require.NoError(t, d.service.DeleteUser(context.Background(), id.NewUserID(), target.ID))
}

func TestDeleteUser_LocationFailureKeepsUser(t *testing.T) {
	d := newMockService(t)
	target := &models.User{ID: id.NewUserID(), Email: "jane@example.com"}

	d.users.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
	d.locations.EXPECT().DeleteByUser(gomock.Any(), target.ID).Return(int64(0), errors.New("boom"))

	err := d.service.DeleteUser(context.Background(), id.NewUserID(), target.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestListUsers_CountFailure(t *testing.T) {
	d := newMockService(t)
	d.users.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	d.users.EXPECT().Count(gomock.Any(), gomock.Any()).Return(0, errors.New("boom"))

	_, err := d.service.ListUsers(context.Background(), models.ListUsersQuery{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
