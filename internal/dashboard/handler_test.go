package dashboard

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":      {Data: []byte("<html>app</html>")},
		"assets/index.js": {Data: []byte("console.log('x')")},
	}
}

func TestSPAHandler_Fallback(t *testing.T) {
	handler := spaHandler(testFS())

	tests := []struct {
		name     string
		path     string
		wantBody string
	}{
		{"root path", "/", "<html>app</html>"},
		{"chat route", "/chat", "<html>app</html>"},
		{"admin route", "/admin/users", "<html>app</html>"},
		{"static asset", "/assets/index.js", "console.log('x')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body, _ := io.ReadAll(rec.Body)
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestSPAHandler_ExcludesServerRoutes(t *testing.T) {
	handler := spaHandler(testFS())

	paths := []string{
		"/api/v1/chat",
		"/api/v1/auth/login",
		"/swagger/index.html",
		"/healthz",
		"/readyz",
		"/metrics",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404 for %s, got %d", path, rec.Code)
			}
		})
	}
}

func TestHandler_Embedded(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK && rec.Code != http.StatusNotFound {
		t.Errorf("unexpected status code: got %d", rec.Code)
	}
}
