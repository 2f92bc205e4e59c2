package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"contentstudio/internal/domain"
	"contentstudio/internal/middleware"
	"contentstudio/internal/queue"
	"contentstudio/internal/storage"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type App struct {
	Store  domain.ContentRepository
	Queue  queue.Queue
	Files  *storage.FileStore
	Logger zerolog.Logger

	// StaticBaseURL is the public prefix under which Files are served.
	StaticBaseURL string
	// PushInterval is how often the websocket progress feed re-reads a record.
	PushInterval time.Duration
	Checks       map[string]HealthCheck
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: message, Code: code})
}

// fail maps an error to its response. Validation and lookup failures are
// reported precisely; anything else is logged and answered with a bare 500.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		a.json(w, http.StatusBadRequest, errorBody{Error: verr.Message, Code: "validation_error", Field: verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "content not found")
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
