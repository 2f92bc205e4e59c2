package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCodec(t *testing.T) {
	task := Task{ContentID: "abc", EnqueuedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Attempt: 2}
	body, err := encodeTask(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"contentId":"abc","enqueuedAt":"2025-01-02T03:04:05Z","attempt":2}`, string(body))

	got, err := decodeTask(body)
	require.NoError(t, err)
	assert.Equal(t, task, got)

	_, err = encodeTask(Task{})
	assert.Error(t, err)
	_, err = decodeTask([]byte(`{"contentId":"  "}`))
	assert.Error(t, err)
	_, err = decodeTask([]byte(`nope`))
	assert.Error(t, err)
}

func TestMemoryQueueDeliversToHandlers(t *testing.T) {
	q := NewMemoryQueue(8, 3, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]bool{}
	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, task Task) error {
			mu.Lock()
			seen[task.ContentID] = true
			mu.Unlock()
			wg.Done()
			return nil
		})
	}()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, q.Enqueue(ctx, NewTask(id)))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 5)
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1, 1, zerolog.Nop())
	require.NoError(t, q.Enqueue(context.Background(), NewTask("a")))
	assert.ErrorIs(t, q.Enqueue(context.Background(), NewTask("b")), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueueClosed(t *testing.T) {
	q := NewMemoryQueue(4, 1, zerolog.Nop())
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(context.Background(), NewTask("a")), ErrClosed)

	err := q.Consume(context.Background(), func(context.Context, Task) error { return nil })
	assert.NoError(t, err)
}

func TestMemoryQueueRequeuesInterruptedTask(t *testing.T) {
	q := NewMemoryQueue(4, 1, zerolog.Nop())
	require.NoError(t, q.Enqueue(context.Background(), NewTask("a")))

	ctx, cancel := context.WithCancel(context.Background())
	err := q.Consume(ctx, func(ctx context.Context, _ Task) error {
		cancel()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, q.Len())

	task := <-q.tasks
	assert.Equal(t, "a", task.ContentID)
	assert.Equal(t, 1, task.Attempt)
}

func TestMemoryQueueStopsOnCancel(t *testing.T) {
	q := NewMemoryQueue(4, 2, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Consume(ctx, func(context.Context, Task) error { return nil }) }()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
