package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/streamtube/backend/internal/models"
	"github.com/streamtube/backend/internal/repositories"
)

var (
	// ErrInvalidToken indicates a token that fails signature or expiry checks.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenReused indicates a refresh token that no longer matches the
	// stored value: it was already rotated or revoked.
	ErrTokenReused = errors.New("refresh token is expired or used")
)

// UserSource captures the credential-store operations the token service needs.
type UserSource interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
}

// AccessClaims are carried by short-lived access tokens. Verification is
// stateless: signature and expiry only, no store round trip.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// UserID returns the subject the token was issued for.
func (c AccessClaims) UserID() string { return c.Subject }

type refreshClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues, verifies, and rotates the access/refresh token pair.
// The refresh token's authoritative copy lives on the user record; rotation
// overwrites it, invalidating the prior token.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	users UserSource

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewTokenService constructs a TokenService signing with the provided HMAC secrets.
func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, users UserSource) *TokenService {
	if users == nil {
		panic("auth: user source must not be nil")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		users:         users,
	}
}

// IssuePair loads the user, signs a fresh access/refresh pair, and persists
// the new refresh token on the user record. Failures are reported, never
// retried: a retry against a stale user snapshot could issue a pair that no
// longer reflects the stored state.
func (s *TokenService) IssuePair(ctx context.Context, userID string) (models.TokenPair, error) {
	if userID == "" {
		return models.TokenPair{}, errors.New("user id must be provided")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("load user for token issue: %w", err)
	}

	now := s.now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return models.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess checks signature and expiry of an access token and returns
// its claims. Repeated calls on the same unexpired token return identical
// claims.
func (s *TokenService) VerifyAccess(tokenString string) (AccessClaims, error) {
	var claims AccessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. Beyond signature and
// expiry, the presented raw string must equal the value stored on the user
// record; a mismatch means the token was already rotated and the attempt is
// a replay.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken == "" {
		return models.TokenPair{}, ErrInvalidToken
	}

	var claims refreshClaims
	token, err := jwt.ParseWithClaims(refreshToken, &claims, func(*jwt.Token) (any, error) {
		return s.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return models.TokenPair{}, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.TokenPair{}, ErrInvalidToken
		}
		return models.TokenPair{}, fmt.Errorf("load user for token rotation: %w", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return models.TokenPair{}, ErrTokenReused
	}

	return s.IssuePair(ctx, user.ID)
}

func (s *TokenService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
