package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"contentstudio/internal/domain"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are filtered by the CORS middleware in front of the router.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ProgressWS pushes a progress snapshot whenever the record changes and
// closes the socket once the record is terminal.
func (a *App) ProgressWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.Store.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Str("content_id", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	logger := a.Logger.With().Str("content_id", id).Logger()

	// A hijacked connection no longer cancels r.Context on disconnect, so
	// the read pump owns cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go readPump(conn, cancel)

	interval := a.PushInterval
	if interval <= 0 {
		interval = time.Second
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	last := rec.Progress()
	if err := writeJSON(conn, last); err != nil {
		return
	}
	for !last.Status.Terminal() {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			rec, err := a.Store.Get(ctx, id)
			if err != nil {
				logger.Error().Err(err).Msg("progress feed: reload failed")
				closeWith(conn, websocket.CloseInternalServerErr, "internal server error")
				return
			}
			next := rec.Progress()
			if sameProgress(last, next) {
				continue
			}
			if err := writeJSON(conn, next); err != nil {
				logger.Debug().Err(err).Msg("progress feed: write failed")
				return
			}
			last = next
		}
	}
	closeWith(conn, websocket.CloseNormalClosure, string(last.Status))
}

func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

func sameProgress(a, b domain.Progress) bool {
	return a.Status == b.Status &&
		a.ProgressPercentage == b.ProgressPercentage &&
		equalStr(a.CurrentStep, b.CurrentStep) &&
		equalStr(a.ErrorStep, b.ErrorStep) &&
		equalStr(a.ErrorMessage, b.ErrorMessage)
}

func equalStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
