package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentstudio/internal/adapter/repo"
	"contentstudio/internal/http/handlers"
	"contentstudio/internal/queue"
)

func newTestRouter(t *testing.T, staticDir string) http.Handler {
	t.Helper()
	q := queue.NewMemoryQueue(8, 1, zerolog.Nop())
	t.Cleanup(func() { _ = q.Close() })
	app := &handlers.App{
		Store:  repo.NewContentRepositoryMemory(),
		Queue:  q,
		Logger: zerolog.Nop(),
	}
	return NewRouter(app, Options{
		Logger:             zerolog.Nop(),
		AllowedOrigins:     []string{"https://studio.example"},
		DefaultLocale:      "en",
		RateLimitPerMinute: 1,
		Registry:           prometheus.NewRegistry(),
		StaticDir:          staticDir,
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterRoutes(t *testing.T) {
	h := newTestRouter(t, "")

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/content-progress/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/get-content", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/create-content")
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cached := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	cached.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, serve(h, cached).Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Contains(t, rec.Body.String(), `spec-url="/openapi.json"`)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "contentstudio_http_requests_total")
}

func TestRouterRateLimitsCreate(t *testing.T) {
	h := newTestRouter(t, "")
	body := `{"title":"t","description":"d","targetAudience":"a","duration":30,"style":"tutorial","sceneAmount":2}`

	first := httptest.NewRequest(http.MethodPost, "/api/create-content", strings.NewReader(body))
	first.RemoteAddr = "192.0.2.10:1111"
	assert.Equal(t, http.StatusOK, serve(h, first).Code)

	second := httptest.NewRequest(http.MethodPost, "/api/create-content", strings.NewReader(body))
	second.RemoteAddr = "192.0.2.10:1111"
	assert.Equal(t, http.StatusTooManyRequests, serve(h, second).Code)

	read := httptest.NewRequest(http.MethodGet, "/api/contents", nil)
	read.RemoteAddr = "192.0.2.10:1111"
	assert.Equal(t, http.StatusOK, serve(h, read).Code)
}

func TestRouterServesStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "generated", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generated", "x", "image.png"), []byte("img"), 0o644))

	h := newTestRouter(t, dir)
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/static/generated/x/image.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())
}

func TestRouterCORSPreflight(t *testing.T) {
	h := newTestRouter(t, "")
	req := httptest.NewRequestWithContext(context.Background(), http.MethodOptions, "/api/create-content", nil)
	req.Header.Set("Origin", "https://studio.example")
	rec := serve(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://studio.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
