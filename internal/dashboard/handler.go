// Package dashboard serves the compiled CentralGPT web client.
package dashboard

import (
	"io/fs"
	"net/http"
	"strings"
)

// reserved are path prefixes owned by the server, never by the client router.
var reserved = []string{"/api/", "/swagger/"}

// reservedExact are exact paths owned by the server.
var reservedExact = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Handler returns an http.Handler that serves the embedded client build.
func Handler() http.Handler {
	if distFS == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "dashboard not available (dev mode)", http.StatusNotFound)
		})
	}
	return spaHandler(distFS)
}

// spaHandler serves files from root and falls back to index.html for any
// unknown path so the client router can resolve it.
func spaHandler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isReserved(r.URL.Path) {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" {
			name = "index.html"
		}
		if f, err := root.Open(name); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func isReserved(path string) bool {
	if reservedExact[path] {
		return true
	}
	for _, p := range reserved {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
