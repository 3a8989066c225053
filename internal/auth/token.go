package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkarimov/fastauth/internal/config"
)

const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService issues and validates signed access/refresh tokens, and
// detects refresh-token replay through the single-use consumption ledger.
type TokenService struct {
	config *config.AuthConfig
	log    *zap.Logger
	repo   Repository
	clock  Clock
}

func NewTokenService(cfg *config.AuthConfig, log *zap.Logger, repo Repository, clock Clock) *TokenService {
	return &TokenService{
		config: cfg,
		log:    log,
		repo:   repo,
		clock:  clock,
	}
}

// Issue signs a token of the given kind carrying the user id and email.
// Expiry is embedded as an absolute UTC timestamp.
func (s *TokenService) Issue(userID uint, email, kind string, ttl time.Duration) (string, error) {
	now := s.clock.Now().UTC()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// A unique jti keeps two tokens signed within the same second
			// distinct, which the single-use ledger depends on.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// IssuePair signs a fresh access+refresh pair for the user.
func (s *TokenService) IssuePair(userID uint, email string) (accessToken, refreshToken string, err error) {
	accessToken, err = s.Issue(userID, email, TokenKindAccess, s.config.AccessTokenDuration)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = s.Issue(userID, email, TokenKindRefresh, s.config.RefreshTokenDuration)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// Decode validates signature, expiry and kind, returning the user id. The
// embedded email is never trusted for authorization decisions.
func (s *TokenService) Decode(tokenString, expectedKind string) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, unauthenticatedError("token expired")
		}
		return 0, unauthenticatedError("invalid token")
	}

	if !token.Valid {
		return 0, unauthenticatedError("invalid token")
	}
	if claims.Kind != expectedKind {
		return 0, unauthenticatedError("invalid token type")
	}

	return claims.UserID, nil
}

// RefreshExchange trades a refresh token for a new access+refresh pair.
// Every exchange records the raw token in the consumption ledger, so a
// second exchange of the same token fails as replay even before expiry.
func (s *TokenService) RefreshExchange(refreshToken string) (string, string, error) {
	userID, err := s.Decode(refreshToken, TokenKindRefresh)
	if err != nil {
		// A token that fails signature, expiry or kind checks is malformed
		// input on this endpoint, not a missing credential.
		return "", "", validationError("invalid refresh token")
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", "", unauthenticatedError("invalid user")
		}
		return "", "", internalError("failed to load user", err)
	}
	if !user.IsActive {
		return "", "", unauthenticatedError("inactive user")
	}

	if err := s.repo.ConsumeRefreshToken(refreshToken); err != nil {
		if errors.Is(err, ErrTokenReplayed) {
			s.log.Warn("refresh token replay detected", zap.Uint("user_id", user.ID))
			return "", "", forbiddenError("refresh token has already been used")
		}
		return "", "", internalError("failed to consume refresh token", err)
	}

	access, refresh, err := s.IssuePair(user.ID, user.Email)
	if err != nil {
		return "", "", internalError("failed to issue tokens", err)
	}

	return access, refresh, nil
}
