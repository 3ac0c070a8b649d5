package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/minifyco/minify/internal/cache"
	"github.com/minifyco/minify/internal/metrics"
	"github.com/minifyco/minify/internal/server"
)

func newTestHandler(t *testing.T, authToken string) *server.Handler {
	t.Helper()
	c, err := cache.New(16, time.Minute, true)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	m := server.NewMinifier(c, nil, metrics.NewCollector())
	return server.NewHandler(m, zerolog.Nop(), authToken, 0)
}

func TestServer_Healthz(t *testing.T) {
	h := newTestHandler(t, "")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_MinifyRoute(t *testing.T) {
	h := newTestHandler(t, "")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/minify/css", strings.NewReader("a  {  color:   red;  }"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected minified body")
	}
}

func TestServer_MinifyRoute_RequiresAuthWhenConfigured(t *testing.T) {
	h := newTestHandler(t, "secret-token")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/minify/css", strings.NewReader("a{}"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/minify/css", strings.NewReader("a{}"))
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
}

func TestServer_HealthzDoesNotRequireAuth(t *testing.T) {
	h := newTestHandler(t, "secret-token")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_UnknownFormat(t *testing.T) {
	h := newTestHandler(t, "")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/minify/yaml", strings.NewReader("a: b"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown format, got %d", rec.Code)
	}
}

func TestServer_MetricsEndpointMountedWhenCollectorProvided(t *testing.T) {
	h := newTestHandler(t, "")
	collector := metrics.NewCollector()
	srv := NewServer(h, ":0", 0, 0, 0, false, collector)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "minify_jobs_total") {
		t.Fatal("expected Prometheus exposition in response body")
	}
}

func TestServer_MetricsEndpointAbsentWithoutCollector(t *testing.T) {
	h := newTestHandler(t, "")
	srv := NewServer(h, ":0", 0, 0, 0, false, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no collector mounted, got %d", rec.Code)
	}
}
