package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthMiddleware_SkipsNonAPIPath(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	for _, path := range []string{"/healthz", "/", "/assets/app.js", "/api/v1/ws"} {
		called := false
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if !called {
			t.Errorf("handler should have been called for %s", path)
		}
	}
}

func TestAuthMiddleware_SkipsPublicPaths(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	for _, route := range []struct{ method, path string }{
		{"POST", "/api/v1/auth/login"},
		{"POST", "/api/v1/auth/refresh"},
		{"POST", "/api/v1/auth/logout"},
		{"GET", "/api/v1/auth/status"},
		{"GET", "/api/v1/settings/features"},
		{"GET", "/api/v1/testimonials"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			called := false
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if !called {
				t.Errorf("handler should have been called for public route")
			}
		})
	}
}

func TestAuthMiddleware_PublicPathIsMethodScoped(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	handler := AuthMiddleware(ts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("POST", "/api/v1/testimonials", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_RejectsNoHeader(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("POST", "/api/v1/chat", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("handler should NOT have been called without auth header")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_RejectsBadToken(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	token, err := ts.IssueAccessToken(Principal{ID: "user-1", Username: "alice", Role: RoleUser})
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	var gotClaims *Claims
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotClaims == nil {
		t.Fatal("expected claims in context")
	}
	if gotClaims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", gotClaims.UserID)
	}
	if gotClaims.Username != "alice" {
		t.Errorf("Username = %q, want alice", gotClaims.Username)
	}
}

func TestAuthMiddleware_RejectsNonBearerScheme(t *testing.T) {
	ts := NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
	mw := AuthMiddleware(ts)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUserFromContext_Nil(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if claims := UserFromContext(req.Context()); claims != nil {
		t.Error("expected nil claims for empty context")
	}
}

func TestRequireUser(t *testing.T) {
	tests := []struct {
		name     string
		claims   *Claims
		wantCode int
		wantOK   bool
	}{
		{"anonymous", nil, http.StatusUnauthorized, false},
		{"admin", &Claims{UserID: "admin", Role: string(RoleAdmin)}, http.StatusForbidden, false},
		{"user", &Claims{UserID: "u1", Role: string(RoleUser)}, http.StatusOK, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/chat", nil)
			if tc.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tc.claims))
			}
			w := httptest.NewRecorder()
			got := RequireUser(w, req)
			if (got != nil) != tc.wantOK {
				t.Errorf("RequireUser ok = %v, want %v", got != nil, tc.wantOK)
			}
			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tc.wantCode)
			}
		})
	}
}
