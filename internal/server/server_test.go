package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"materialbridge/internal/config"
)

func TestServer_Routes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.DevMode = true
	srv := NewServer(cfg, t.TempDir())

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/status", http.StatusOK},
		{http.MethodGet, "/api/config", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodOptions, "/api/analyze", http.StatusNoContent},
		{http.MethodGet, "/api/download/unknown", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s: status=%d, want %d", tc.method, tc.path, w.Code, tc.want)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: missing request id", tc.method, tc.path)
		}
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics not exported")
	}
}
