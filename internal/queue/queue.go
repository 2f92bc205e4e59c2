// Package queue hands content ids from the API to the orchestrator workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrQueueFull = errors.New("queue full")
	ErrClosed    = errors.New("queue closed")
)

// Task asks a worker to run the pipeline for one content request.
type Task struct {
	ContentID  string    `json:"contentId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempt    int       `json:"attempt,omitempty"`
}

// Handler processes one task. Returning an error caused by ctx ending makes
// the backend redeliver the task; any other error is logged and dropped.
type Handler func(ctx context.Context, task Task) error

// Queue is implemented by the memory, redis and amqp backends.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	// Consume runs handlers until ctx ends.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

func NewTask(contentID string) Task {
	return Task{ContentID: contentID, EnqueuedAt: time.Now().UTC()}
}

func encodeTask(t Task) ([]byte, error) {
	if strings.TrimSpace(t.ContentID) == "" {
		return nil, errors.New("task has no content id")
	}
	return json.Marshal(t)
}

func decodeTask(body []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if strings.TrimSpace(t.ContentID) == "" {
		return Task{}, errors.New("decode task: missing content id")
	}
	return t, nil
}

// interrupted reports whether err came from the consumer shutting down
// rather than from the task itself.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
