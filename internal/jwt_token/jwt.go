package jwttoken

import (
	"errors"
	"time"

	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the typ claim. A refresh token never validates as an
// access token and vice versa, even if the secrets were misconfigured to match.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// AccessClaims represents the JWT claims for access tokens
type AccessClaims struct {
	Type string `json:"typ"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT claims for refresh tokens
type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (id.UserID, error) {
	return subject(c.Subject)
}

func (c *RefreshClaims) UserID() (id.UserID, error) {
	return subject(c.Subject)
}

func subject(sub string) (id.UserID, error) {
	userID, err := id.ParseUserID(sub)
	if err != nil {
		return id.UserID{}, dErrors.Wrap(ErrTokenInvalid, dErrors.CodeUnauthorized, "invalid token subject")
	}
	return userID, nil
}

// JWTService handles JWT creation and validation
type JWTService struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*JWTService)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *JWTService) {
		s.now = now
	}
}

func NewJWTService(accessKey, refreshKey, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) *JWTService {
	s := &JWTService{
		accessKey:  []byte(accessKey),
		refreshKey: []byte(refreshKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *JWTService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *JWTService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken signs a short-lived token for userID. It returns the
// token and its expiry.
func (s *JWTService) GenerateAccessToken(userID id.UserID, role string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Type:             TypeAccess,
		Role:             role,
		RegisteredClaims: s.registered(userID, now, expiresAt),
	})
	signed, err := token.SignedString(s.accessKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return signed, expiresAt, nil
}

// GenerateRefreshToken signs a long-lived token for userID. The random jti
// keeps two tokens minted within the same second distinct.
func (s *JWTService) GenerateRefreshToken(userID id.UserID) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.refreshTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		Type:             TypeRefresh,
		RegisteredClaims: s.registered(userID, now, expiresAt),
	})
	signed, err := token.SignedString(s.refreshKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}
	return signed, expiresAt, nil
}

func (s *JWTService) registered(userID id.UserID, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
}

// ValidateAccessToken checks signature, issuer, expiry and token type. It
// never consults storage.
func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(tokenString, claims, s.accessKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, invalid("wrong token type")
	}
	return claims, nil
}

// ValidateRefreshToken checks signature, issuer, expiry and token type. The
// caller still has to compare the token with the stored value.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(tokenString, claims, s.refreshKey); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, invalid("wrong token type")
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, key []byte) error {
	if tokenString == "" {
		return invalid("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.Wrap(ErrTokenExpired, dErrors.CodeUnauthorized, "token has expired")
		}
		return invalid("invalid token")
	}
	if !parsed.Valid {
		return invalid("invalid token")
	}
	return nil
}

func invalid(msg string) error {
	return dErrors.Wrap(ErrTokenInvalid, dErrors.CodeUnauthorized, msg)
}
