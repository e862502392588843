// Package session issues and reads the signed token identifying a user.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the session token.
const CookieName = "session"

// ErrNoSession is returned when a request carries no usable session.
var ErrNoSession = errors.New("session: missing or invalid")

// Claims is the JWT payload of a session token.
type Claims struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService handles session token creation and validation.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewTokenService returns a configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = 12 * time.Hour
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn, now: time.Now}
}

// Issue signs a token for the session.
func (t *TokenService) Issue(s domain.Session) (string, error) {
	if _, ok := domain.ParseRole(string(s.Type)); !ok {
		return "", fmt.Errorf("session: unknown role %q", s.Type)
	}
	if s.Email == "" {
		return "", errors.New("session: email is required")
	}

	now := t.now().UTC()
	claims := Claims{
		Type:  string(s.Type),
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies a token and returns the session it carries.
func (t *TokenService) Parse(tokenString string) (domain.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("session: unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if !token.Valid {
		return domain.Session{}, ErrNoSession
	}

	role, ok := domain.ParseRole(claims.Type)
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: unknown role %q", ErrNoSession, claims.Type)
	}
	return domain.Session{Type: role, Email: claims.Email}, nil
}

// FromHeader extracts a bearer token from an Authorization header value.
func FromHeader(h string) string {
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

type contextKey struct{}

// WithContext stores the session in the context.
func WithContext(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithContext.
func FromContext(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(domain.Session)
	return s, ok
}
