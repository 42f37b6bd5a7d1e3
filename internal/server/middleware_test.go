package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"propagated", "chat-trace-42", true},
		{"oversized replaced", strings.Repeat("x", 65), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody)
			if tc.incoming != "" {
				req.Header.Set("X-Request-ID", tc.incoming)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("X-Request-ID")
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tc.keep && got != tc.incoming {
				t.Errorf("id = %q, want %q", got, tc.incoming)
			}
			if !tc.keep && len(got) != 32 {
				t.Errorf("generated id %q should be 32 hex chars", got)
			}
		})
	}
}

func TestLoggingMiddleware_LevelsAndSkips(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	mw := LoggingMiddleware(zap.New(core), noisyPaths)

	mw(okHandler(http.StatusOK)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if logs.Len() != 0 {
		t.Fatalf("noisy path logged %d entries", logs.Len())
	}

	mw(okHandler(http.StatusBadGateway)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody))
	entries := logs.TakeAll()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("entries = %+v, want one warn", entries)
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusBadGateway) {
		t.Errorf("status field = %v", got)
	}
}

func TestLoggingMiddleware_OmitsQueryString(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := LoggingMiddleware(zap.New(core), nil)(okHandler(http.StatusOK))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=eyJhbGciOi.secret", http.NoBody))

	for _, e := range logs.All() {
		for k, v := range e.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, "secret") {
				t.Errorf("field %s leaked the token: %q", k, s)
			}
		}
	}
}

func TestMetricRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "/healthz"},
		{"/api/v1/chat", "/api/v1/chat"},
		{"/api/v1/users/0b6c1e7a", "/api/v1/users/{id}"},
		{"/api/v1/users/0b6c1e7a/key", "/api/v1/users/{id}"},
		{"/api/v1/history/neo", "/api/v1/history/{username}"},
		{"/api/v1/settings/keys/3", "/api/v1/settings/keys/{index}"},
		{"/api/v1/testimonials/t1", "/api/v1/testimonials/{id}"},
		{"/swagger/index.html", "/swagger/"},
		{"/chat/history", "dashboard"},
	}
	for _, tt := range tests {
		if got := metricRoute(tt.path); got != tt.want {
			t.Errorf("metricRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(okHandler(http.StatusOK))

	tests := []struct {
		path      string
		wantCache string
	}{
		{"/api/v1/settings/app", "no-store"},
		{"/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			if got := w.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
			csp := w.Header().Get("Content-Security-Policy")
			for _, want := range []string{"img-src 'self' data: blob:", "connect-src 'self' ws: wss:"} {
				if !strings.Contains(csp, want) {
					t.Errorf("CSP %q missing %q", csp, want)
				}
			}
			if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("framing and sniffing headers should be set")
			}
		})
	}
}

func TestVersionHeaderMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	VersionHeaderMiddleware(okHandler(http.StatusOK)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if v := w.Header().Get("X-CentralGPT-Version"); v == "" {
		t.Error("expected X-CentralGPT-Version header to be set")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("dispatcher exploded")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/chat", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}
	if strings.Contains(w.Body.String(), "dispatcher exploded") {
		t.Error("panic value must not reach the client")
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Error("panic should be logged once")
	}
}

func TestRecoveryMiddleware_RepanicsAbort(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want ErrAbortHandler", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/ws", http.NoBody))
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("recovery"), tag("ratelimit"), tag("auth"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if got := strings.Join(order, ","); got != "recovery,ratelimit,auth,handler" {
		t.Errorf("order = %s", got)
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusNotFound)
	if sw.status != http.StatusCreated {
		t.Errorf("status = %d, first WriteHeader should win", sw.status)
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("expected error when the wrapped writer cannot hijack")
	}
}
