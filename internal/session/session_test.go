package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_IssueParse(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	want := domain.Session{Type: domain.RoleEmployee, Email: "a@a"}

	token, err := svc.Issue(want)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	got, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got != want {
		t.Errorf("Parse() = %+v, want %+v", got, want)
	}
}

func TestTokenService_IssueValidation(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	if _, err := svc.Issue(domain.Session{Type: "Manager", Email: "a@a"}); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := svc.Issue(domain.Session{Type: domain.RoleAdmin}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestTokenService_ParseRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	valid, err := svc.Issue(domain.Session{Type: domain.RoleAdmin, Email: "admin@billed.test"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := NewTokenService("other-secret", time.Hour)
	expired := NewTokenService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(domain.Session{Type: domain.RoleEmployee, Email: "a@a"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: "Admin", Email: "x@x"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token failed: %v", err)
	}

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Type: "Manager", Email: "x@x"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing token failed: %v", err)
	}

	tests := []struct {
		name  string
		svc   *TokenService
		token string
	}{
		{name: "wrong secret", svc: other, token: valid},
		{name: "expired", svc: svc, token: old},
		{name: "alg none", svc: svc, token: unsigned},
		{name: "unknown role", svc: svc, token: badRole},
		{name: "garbage", svc: svc, token: "not.a.token"},
		{name: "empty", svc: svc, token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.svc.Parse(tt.token); !errors.Is(err, ErrNoSession) {
				t.Errorf("Parse() error = %v, want ErrNoSession", err)
			}
		})
	}
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromHeader(tt.in); got != tt.want {
			t.Errorf("FromHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no session in empty context")
	}

	want := domain.Session{Type: domain.RoleEmployee, Email: "a@a"}
	got, ok := FromContext(WithContext(context.Background(), want))
	if !ok || got != want {
		t.Errorf("FromContext() = %+v, %v; want %+v", got, ok, want)
	}
}
