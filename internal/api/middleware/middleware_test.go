package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/logger"
	"github.com/dvloznov/billed/internal/session"
	"github.com/rs/zerolog"
)

func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			http.Error(w, "no session", http.StatusInternalServerError)
			return
		}
		WriteJSON(w, http.StatusOK, s)
	})
}

func TestAuth_LogsRejectedTokenWithRequestLogger(t *testing.T) {
	var logs bytes.Buffer
	handler := Auth(session.NewTokenService("secret", time.Hour))(sessionEcho())

	req := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	req = req.WithContext(logger.WithContext(req.Context(), zerolog.New(&logs)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if out := logs.String(); !strings.Contains(out, "Rejected session") || !strings.Contains(out, `"path":"/api/bills"`) {
		t.Errorf("logs = %q", out)
	}
}

func TestAuth(t *testing.T) {
	tokens := session.NewTokenService("secret", time.Hour)
	other := session.NewTokenService("other-secret", time.Hour)

	valid, err := tokens.Issue(domain.Session{Type: domain.RoleEmployee, Email: "a@a"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	forged, err := other.Issue(domain.Session{Type: domain.RoleAdmin, Email: "a@a"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name       string
		path       string
		cookie     string
		bearer     string
		wantStatus int
		wantJSON   bool
	}{
		{name: "cookie", path: "/employee/bills", cookie: valid, wantStatus: http.StatusOK},
		{name: "bearer", path: "/api/bills", bearer: valid, wantStatus: http.StatusOK},
		{name: "missing page", path: "/employee/bills", wantStatus: http.StatusUnauthorized},
		{name: "missing api", path: "/api/bills", wantStatus: http.StatusUnauthorized, wantJSON: true},
		{name: "wrong key", path: "/api/bills", bearer: forged, wantStatus: http.StatusUnauthorized, wantJSON: true},
		{name: "garbage cookie", path: "/employee/bills", cookie: "not-a-token", wantStatus: http.StatusUnauthorized},
	}

	handler := Auth(tokens)(sessionEcho())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.CookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var s domain.Session
				if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
					t.Fatalf("decode session: %v", err)
				}
				if s.Email != "a@a" || s.Type != domain.RoleEmployee {
					t.Errorf("session = %+v", s)
				}
				return
			}

			isJSON := strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json")
			if isJSON != tt.wantJSON {
				t.Errorf("content type = %q, want json=%v", rec.Header().Get("Content-Type"), tt.wantJSON)
			}
			if !strings.Contains(rec.Body.String(), "Erreur 401") {
				t.Errorf("body = %q, want Erreur 401", rec.Body.String())
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireAdmin(ok)

	tests := []struct {
		name       string
		session    *domain.Session
		wantStatus int
	}{
		{name: "admin", session: &domain.Session{Type: domain.RoleAdmin, Email: "admin@a"}, wantStatus: http.StatusNoContent},
		{name: "employee", session: &domain.Session{Type: domain.RoleEmployee, Email: "a@a"}, wantStatus: http.StatusForbidden},
		{name: "anonymous", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/bills/1", nil)
			if tt.session != nil {
				req = req.WithContext(session.WithContext(req.Context(), *tt.session))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, Logger(log))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q", got)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || seen != rec.Header().Get("X-Request-ID") {
		t.Errorf("generated ID %q does not match header %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bills", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}
}
