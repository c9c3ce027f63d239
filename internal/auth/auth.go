// Package auth provides JWT session tokens for the REST API.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkrasner/grimoire/internal/config"
)

// ErrInvalidToken is returned when a token fails signature or claims
// validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the authenticated user's identity and role inside a token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HMAC-signed session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService creates a token service from the given auth configuration.
//
// Precondition: cfg.Secret must be non-empty and cfg.TokenTTL positive
// (enforced by config validation).
func NewService(cfg config.AuthConfig) *Service {
	return &Service{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
	}
}

// Issue signs a token for the given user ID and role.
//
// Postcondition: Returns the signed token and its expiry time.
func (s *Service) Issue(userID int64, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and returns the user ID and role it carries.
//
// Postcondition: Returns ErrInvalidToken for any malformed, expired, or
// wrongly signed token.
func (s *Service) Verify(token string) (int64, string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Role, nil
}

// FromHeader extracts a bearer token from an Authorization header value.
//
// Postcondition: Returns the raw token, or ErrInvalidToken when the header
// is empty or not a bearer scheme.
func FromHeader(header string) (string, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", ErrInvalidToken
	}
	return strings.TrimPrefix(header, prefix), nil
}
