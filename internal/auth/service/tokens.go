package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"waypoint/internal/auth/models"
	jwttoken "waypoint/internal/jwt_token"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/sentinel"
)

// ErrTokenRevoked marks a well-formed refresh token that is no longer the
// stored one: rotated, logged out, or replayed.
var ErrTokenRevoked = errors.New("token revoked")

func revoked() error {
	return dErrors.Wrap(ErrTokenRevoked, dErrors.CodeUnauthorized, "refresh token is no longer valid")
}

// IssuePair mints an access and a refresh token for userID and stores the
// refresh token as the only live one, replacing any previous value. This is
// the single durable write of the operation.
func (s *Service) IssuePair(ctx context.Context, userID id.UserID, role models.Role) (models.TokenPair, error) {
	pair, err := s.mintPair(userID, role)
	if err != nil {
		return models.TokenPair{}, err
	}
	if err := s.users.SetRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TokenPair{}, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return models.TokenPair{}, dErrors.Infrastructure(err, "failed to store refresh token")
	}
	return pair, nil
}

// VerifyAccess checks an access token's signature and expiry. It never reads
// the store, so an access token stays valid until it expires.
func (s *Service) VerifyAccess(token string) (id.UserID, error) {
	claims, err := s.tokens.ValidateAccessToken(token)
	if err != nil {
		return id.UserID{}, err
	}
	return claims.UserID()
}

// RotateRefresh exchanges a live refresh token for a new pair. The presented
// token must equal the stored one; the new refresh token replaces it through
// a compare-and-swap, so a token works at most once and of two concurrent
// callers with the same token only one succeeds.
func (s *Service) RotateRefresh(ctx context.Context, token string) (models.TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "auth.RotateRefresh")
	defer span.End()

	pair, err := s.rotateRefresh(ctx, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh rejected")
		return models.TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) rotateRefresh(ctx context.Context, token string) (models.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(token)
	if err != nil {
		s.authFailure(ctx, "refresh_token_invalid", "error", err)
		return models.TokenPair{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return models.TokenPair{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", userID.String()))

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "refresh_user_missing", "user_id", userID.String())
			return models.TokenPair{}, revoked()
		}
		return models.TokenPair{}, dErrors.Infrastructure(err, "failed to load user")
	}
	if !user.HasRefreshToken(token) {
		s.replayDetected(ctx, userID)
		return models.TokenPair{}, revoked()
	}

	pair, err := s.mintPair(userID, user.Role)
	if err != nil {
		return models.TokenPair{}, err
	}
	if err := s.users.SwapRefreshToken(ctx, userID, token, pair.RefreshToken); err != nil {
		if errors.Is(err, sentinel.ErrStale) || errors.Is(err, sentinel.ErrNotFound) {
			// Someone else rotated or cleared the token between load and swap.
			s.replayDetected(ctx, userID)
			return models.TokenPair{}, revoked()
		}
		return models.TokenPair{}, dErrors.Infrastructure(err, "failed to rotate refresh token")
	}

	s.emit(ctx, audit.Event{Action: audit.EventTokenRefreshed, UserID: userID})
	return pair, nil
}

// Invalidate clears the stored refresh token. Clearing an already empty token
// or a deleted user's token succeeds.
func (s *Service) Invalidate(ctx context.Context, userID id.UserID) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Infrastructure(err, "failed to clear refresh token")
	}
	return nil
}

func (s *Service) mintPair(userID id.UserID, role models.Role) (models.TokenPair, error) {
	access, accessExp, err := s.tokens.GenerateAccessToken(userID, role.String())
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, refreshExp, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return models.TokenPair{}, err
	}
	s.metrics.incIssued(jwttoken.TypeAccess)
	s.metrics.incIssued(jwttoken.TypeRefresh)
	return models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *Service) replayDetected(ctx context.Context, userID id.UserID) {
	s.metrics.incReplay()
	s.authFailure(ctx, "refresh_token_replay", "user_id", userID.String())
	s.emit(ctx, audit.Event{
		Action: audit.EventRefreshReplay,
		UserID: userID,
		Reason: "presented refresh token does not match the stored token",
	})
}
