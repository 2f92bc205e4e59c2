package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"contentstudio/internal/domain"
	"contentstudio/internal/middleware"
	"contentstudio/internal/pipeline"
	"contentstudio/internal/queue"
)

const (
	maxCreateBody    = 1 << 20
	defaultListLimit = 20
	maxListLimit     = 100
)

type createContentRequest struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	TargetAudience string          `json:"targetAudience"`
	Duration       int             `json:"duration"`
	Style          string          `json:"style"`
	SceneAmount    int             `json:"sceneAmount"`
	Tone           string          `json:"tone"`
	Locale         string          `json:"locale"`
	Services       domain.Services `json:"services"`
}

func (req createContentRequest) config() domain.ContentConfig {
	return domain.ContentConfig{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		TargetAudience: strings.TrimSpace(req.TargetAudience),
		Duration:       req.Duration,
		Style:          strings.TrimSpace(req.Style),
		SceneAmount:    req.SceneAmount,
		Tone:           strings.TrimSpace(req.Tone),
		Locale:         strings.TrimSpace(req.Locale),
		Services:       req.Services,
	}
}

type createContentResponse struct {
	ID string `json:"id"`
}

// CreateContent persists a request and hands it to the workers.
func (a *App) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req createContentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	cfg := req.config()
	if cfg.Locale == "" {
		cfg.Locale = middleware.LocaleFromContext(r.Context())
	}

	rec, err := a.Store.Create(r.Context(), cfg)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.Queue.Enqueue(r.Context(), queue.NewTask(rec.ID)); err != nil {
		a.markDispatchFailed(r, rec.ID, err)
		a.fail(w, r, fmt.Errorf("enqueue content %s: %w", rec.ID, err))
		return
	}
	a.Logger.Info().Str("content_id", rec.ID).Str("style", rec.Style).
		Int("steps", rec.Services.EnabledCount()).Msg("content queued")
	a.json(w, http.StatusOK, createContentResponse{ID: rec.ID})
}

// markDispatchFailed moves a record that never reached a worker to error so
// pollers do not wait for it.
func (a *App) markDispatchFailed(r *http.Request, id string, cause error) {
	status := domain.StatusError
	msg := "failed to dispatch generation: " + cause.Error()
	_, err := a.Store.Update(r.Context(), id, domain.ContentUpdate{
		Status:       &status,
		ErrorStep:    domain.StringPtr(string(pipeline.StepDispatch)),
		ErrorMessage: &msg,
	})
	if err != nil {
		a.Logger.Error().Err(err).Str("content_id", id).Msg("mark dispatch failure")
	}
}

func (a *App) GetContent(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.fail(w, r, &domain.ValidationError{Field: "id", Message: "id is required"})
		return
	}
	rec, err := a.Store.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}

type listContentsResponse struct {
	Items  []domain.ContentRequest `json:"items"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// ListContents returns records newest first.
func (a *App) ListContents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit = min(max(limit, 1), maxListLimit)
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if offset < 0 {
		offset = 0
	}
	items, err := a.Store.List(r.Context(), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []domain.ContentRequest{}
	}
	a.json(w, http.StatusOK, listContentsResponse{Items: items, Limit: limit, Offset: offset})
}

func (a *App) ContentProgress(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec.Progress())
}

// decodeJSON reads a single JSON object, turning syntax and type problems
// into validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			return &domain.ValidationError{Field: typeErr.Field, Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)}
		case errors.As(err, &maxErr):
			return &domain.ValidationError{Message: "request body too large"}
		case errors.Is(err, io.EOF):
			return &domain.ValidationError{Message: "request body is required"}
		default:
			return &domain.ValidationError{Message: "invalid JSON body"}
		}
	}
	if dec.More() {
		return &domain.ValidationError{Message: "request body must contain a single JSON object"}
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Message: name + " must be an integer"}
	}
	return n, nil
}
