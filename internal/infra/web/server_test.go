//go:build !integration

// File: internal/infra/web/server_test.go
package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-translation-bot/internal/config"
	"telegram-translation-bot/internal/infra/adapters/translation"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

func adminConfig() config.AdminConfig {
	return config.AdminConfig{
		Port:      0,
		JWTSecret: "test-admin-jwt-secret",
		User:      "ops",
		Password:  "s3cret",
	}
}

func TestAuthMiddleware(t *testing.T) {
	logger := newTestLogger()
	auth := NewAuthManager("test-admin-jwt-secret", false, time.Minute)
	s := NewServer(adminConfig(), nil, nil, nil, nil, auth, logger)

	dummyHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := s.authMiddleware(dummyHandler)

	t.Run("no credentials -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("malformed bearer header -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Basic b3BzOnBhc3M=")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("garbage token -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid bearer token -> 200", func(t *testing.T) {
		dummy := httptest.NewRecorder()
		token, err := auth.Mint(dummy)
		if err != nil || token == "" {
			t.Fatalf("failed to mint test token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("valid session cookie -> 200", func(t *testing.T) {
		dummy := httptest.NewRecorder()
		token, err := auth.Mint(dummy)
		if err != nil || token == "" {
			t.Fatalf("failed to mint test token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.AddCookie(&http.Cookie{Name: "admin_session", Value: token})
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("expired token -> 401", func(t *testing.T) {
		shortAuth := NewAuthManager("test-admin-jwt-secret", false, -time.Minute)
		dummy := httptest.NewRecorder()
		token, err := shortAuth.Mint(dummy)
		if err != nil || token == "" {
			t.Fatalf("failed to mint test token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("no auth manager configured -> 401", func(t *testing.T) {
		serverNoAuth := NewServer(adminConfig(), nil, nil, nil, nil, nil, logger)
		protectedNoAuth := serverNoAuth.authMiddleware(dummyHandler)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
		rr := httptest.NewRecorder()
		protectedNoAuth.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})
}

func TestAdminLoginLogoutFlow(t *testing.T) {
	logger := newTestLogger()
	auth := NewAuthManager("test-admin-jwt-secret", false, time.Minute)

	health := staticHealth{items: []translation.ProviderStatus{{Name: "libretranslate", Score: 1}}}
	s := NewServer(adminConfig(), nil, health, fixedQueue(0), fixedLanes(0), auth, logger)
	router := s.Router()

	var sessionCookie *http.Cookie

	t.Run("login with wrong password -> 401", func(t *testing.T) {
		body := bytes.NewBufferString(`{"user":"ops","password":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("login with correct credentials -> 204 + cookie set", func(t *testing.T) {
		body := bytes.NewBufferString(`{"user":"ops","password":"s3cret"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == "admin_session" {
				sessionCookie = c
				break
			}
		}
		if sessionCookie == nil || sessionCookie.Value == "" {
			t.Fatal("expected admin_session cookie")
		}
	})

	t.Run("protected route with cookie -> 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	})

	t.Run("logout -> 204", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/logout", nil)
		req.AddCookie(sessionCookie) // optional
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})

	t.Run("after logout without cookie -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("login disabled without configured credentials -> 403", func(t *testing.T) {
		bare := NewServer(config.AdminConfig{JWTSecret: "x"}, nil, nil, nil, nil, auth, logger)
		body := bytes.NewBufferString(`{"user":"ops","password":"s3cret"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		bare.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})
}
