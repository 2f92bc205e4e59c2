package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentstudio/internal/adapter/repo"
	"contentstudio/internal/domain"
	"contentstudio/internal/middleware"
	"contentstudio/internal/queue"
	"contentstudio/internal/storage"
)

type stubQueue struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (q *stubQueue) Enqueue(_ context.Context, task queue.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *stubQueue) Consume(ctx context.Context, _ queue.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (q *stubQueue) Close() error { return nil }

type failingStore struct {
	domain.ContentRepository
}

func (failingStore) Get(context.Context, string) (*domain.ContentRequest, error) {
	return nil, errors.New("pq: connection reset by peer")
}

type testEnv struct {
	app    *App
	store  *repo.ContentRepositoryMemory
	queue  *stubQueue
	files  *storage.FileStore
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	env := &testEnv{
		store: repo.NewContentRepositoryMemory(),
		queue: &stubQueue{},
		files: files,
	}
	env.app = &App{
		Store:         env.store,
		Queue:         env.queue,
		Files:         files,
		Logger:        zerolog.Nop(),
		StaticBaseURL: "http://localhost:8080/static",
		PushInterval:  10 * time.Millisecond,
	}
	env.router = env.routes()
	return env
}

func (e *testEnv) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.I18N("en", nil))
	r.Get("/healthz", e.app.Health)
	r.Post("/api/create-content", e.app.CreateContent)
	r.Get("/api/get-content", e.app.GetContent)
	r.Get("/api/contents", e.app.ListContents)
	r.Get("/api/content-progress/{id}", e.app.ContentProgress)
	r.Get("/api/content-progress/{id}/ws", e.app.ProgressWS)
	r.Get("/api/content/{id}/bundle", e.app.ContentBundle)
	return r
}

func (e *testEnv) do(t *testing.T, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T) *domain.ContentRequest {
	t.Helper()
	rec, err := e.store.Create(context.Background(), domain.ContentConfig{
		Title: "Cats", Description: "Cats at home", TargetAudience: "kids",
		Duration: 30, Style: "educational", SceneAmount: 3,
		Services: domain.Services{ContentGeneration: true},
	})
	require.NoError(t, err)
	return rec
}

const validCreateBody = `{
	"title": "Volcanoes",
	"description": "How volcanoes form",
	"targetAudience": "students",
	"duration": 60,
	"style": "Educational",
	"sceneAmount": 4,
	"services": {"contentGeneration": true, "imageGeneration": true}
}`

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateContent(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/create-content", validCreateBody, "Accept-Language", "fr-FR")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	require.Len(t, env.queue.tasks, 1)
	assert.Equal(t, id, env.queue.tasks[0].ContentID)

	stored, err := env.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, stored.Status)
	assert.Equal(t, 0, stored.ProgressPercentage)
	assert.Equal(t, "Educational", stored.Style)
	assert.Equal(t, "fr", stored.Locale)
	assert.True(t, stored.Services.ImageGeneration)
	assert.False(t, stored.Services.VideoGeneration)
}

func TestCreateContentExplicitLocaleWins(t *testing.T) {
	env := newTestEnv(t)
	body := strings.Replace(validCreateBody, `"sceneAmount": 4,`, `"sceneAmount": 4, "locale": "id", "tone": "calm",`, 1)
	rec := env.do(t, http.MethodPost, "/api/create-content", body, "Accept-Language", "fr-FR")
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := env.store.Get(context.Background(), decodeBody(t, rec)["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "id", stored.Locale)
	assert.Equal(t, "calm", stored.Tone)
}

func TestCreateContentValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "missing title", body: strings.Replace(validCreateBody, `"title": "Volcanoes",`, "", 1), wantField: "title"},
		{name: "blank audience", body: strings.Replace(validCreateBody, `"students"`, `"   "`, 1), wantField: "targetAudience"},
		{name: "unknown style", body: strings.Replace(validCreateBody, `"Educational"`, `"dramatic"`, 1), wantField: "style"},
		{name: "zero duration", body: strings.Replace(validCreateBody, `"duration": 60`, `"duration": 0`, 1), wantField: "duration"},
		{name: "duration wrong type", body: strings.Replace(validCreateBody, `"duration": 60`, `"duration": "long"`, 1), wantField: "duration"},
		{name: "negative scenes", body: strings.Replace(validCreateBody, `"sceneAmount": 4`, `"sceneAmount": -1`, 1), wantField: "sceneAmount"},
		{name: "malformed json", body: `{"title": `},
		{name: "empty body", body: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/create-content", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			assert.Equal(t, "validation_error", body["code"])
			assert.NotEmpty(t, body["error"])
			if tc.wantField != "" {
				assert.Equal(t, tc.wantField, body["field"])
			}
			assert.Empty(t, env.queue.tasks)
		})
	}
}

func TestCreateContentEnqueueFailure(t *testing.T) {
	env := newTestEnv(t)
	env.queue.err = errors.New("redis: connection refused")

	rec := env.do(t, http.MethodPost, "/api/create-content", validCreateBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"internal"}`, rec.Body.String())

	items, err := env.store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.StatusError, items[0].Status)
	assert.Equal(t, "dispatch", *items[0].ErrorStep)
	assert.Contains(t, *items[0].ErrorMessage, "connection refused")
}

func TestGetContent(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/get-content", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeBody(t, rec)["field"])

	rec = env.do(t, http.MethodGet, "/api/get-content?id=missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"content not found","code":"not_found"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/get-content?id="+seeded.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, seeded.ID, body["id"])
	assert.Equal(t, "Cats", body["title"])
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, float64(0), body["progressPercentage"])
	assert.Equal(t, domain.InitialStep, body["currentStep"])
	assert.NotContains(t, body, "generatedContent")
	assert.NotContains(t, body, "errorStep")
}

func TestGetContentHidesInternalErrors(t *testing.T) {
	env := newTestEnv(t)
	env.app.Store = failingStore{}
	rec := env.do(t, http.MethodGet, "/api/get-content?id=abc", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

func TestContentProgress(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/content-progress/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/content-progress/"+seeded.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"processing","currentStep":"Initializing","progressPercentage":0}`, rec.Body.String())

	status := domain.StatusError
	msg := "image service down"
	_, err := env.store.Update(context.Background(), seeded.ID, domain.ContentUpdate{
		Status: &status, ErrorStep: domain.StringPtr("image_generation"), ErrorMessage: &msg,
	})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/content-progress/"+seeded.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"error","currentStep":"Initializing","progressPercentage":0,"errorMessage":"image service down","errorStep":"image_generation"}`, rec.Body.String())
}

func TestListContents(t *testing.T) {
	env := newTestEnv(t)
	clock := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	env.store.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	first := env.seed(t)
	second := env.seed(t)
	third := env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/contents?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page listContentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, third.ID, page.Items[0].ID)
	assert.Equal(t, second.ID, page.Items[1].ID)

	rec = env.do(t, http.MethodGet, "/api/contents?limit=2&offset=2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, first.ID, page.Items[0].ID)

	rec = env.do(t, http.MethodGet, "/api/contents?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentBundle(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t)

	rec := env.do(t, http.MethodGet, "/api/content/"+seeded.ID+"/bundle", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	key := "generated/" + seeded.ID + "/image-1.png"
	_, err := env.files.Write(context.Background(), key, []byte("png-bytes"))
	require.NoError(t, err)
	_, err = env.store.Update(context.Background(), seeded.ID, domain.ContentUpdate{
		GeneratedContent: &domain.Script{Title: "Cats"},
		GeneratedPicture: domain.StringPtr("http://localhost:8080/static/" + key),
		GeneratedVoice:   domain.StringPtr("https://cdn.example/voice.mp3"),
	})
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/api/content/"+seeded.ID+"/bundle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = string(data)
	}
	assert.Equal(t, "png-bytes", files["image.png"])
	assert.Equal(t, "https://cdn.example/voice.mp3\n", files["voice.url"])
	assert.Contains(t, files["script.json"], `"title": "Cats"`)

	rec = env.do(t, http.MethodGet, "/api/content/unknown/bundle", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressWebsocketPushesUntilTerminal(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/content-progress/" + seeded.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first domain.Progress
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, domain.StatusProcessing, first.Status)

	_, err = env.store.Update(context.Background(), seeded.ID, domain.ContentUpdate{
		CurrentStep: domain.StringPtr("Generating script"), ProgressPercentage: domain.IntPtr(50),
	})
	require.NoError(t, err)

	var second domain.Progress
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, 50, second.ProgressPercentage)
	assert.Equal(t, "Generating script", *second.CurrentStep)

	done := domain.StatusCompleted
	_, err = env.store.Update(context.Background(), seeded.ID, domain.ContentUpdate{Status: &done})
	require.NoError(t, err)

	var last domain.Progress
	require.NoError(t, conn.ReadJSON(&last))
	assert.Equal(t, domain.StatusCompleted, last.Status)
	assert.Equal(t, 100, last.ProgressPercentage)

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

func TestProgressWebsocketUnknownID(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/content-progress/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	env.app.Checks = map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"queue":    func(context.Context) error { return errors.New("down") },
	}
	rec = env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"database":"up","queue":"down"}}`, rec.Body.String())
}
