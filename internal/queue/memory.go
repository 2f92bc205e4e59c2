package queue

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MemoryQueue is a buffered in-process queue. Tasks are lost on restart; the
// reaper eventually fails records they belonged to.
type MemoryQueue struct {
	tasks       chan Task
	concurrency int
	logger      zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func NewMemoryQueue(buffer, concurrency int, logger zerolog.Logger) *MemoryQueue {
	if buffer <= 0 {
		buffer = 1
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &MemoryQueue{
		tasks:       make(chan Task, buffer),
		concurrency: concurrency,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Enqueue never blocks; a full buffer yields ErrQueueFull.
func (q *MemoryQueue) Enqueue(_ context.Context, task Task) error {
	if _, err := encodeTask(task); err != nil {
		return err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case task := <-q.tasks:
					if ctx.Err() != nil {
						q.putBack(task)
						return
					}
					q.handle(ctx, worker, task, handler)
				}
			}
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (q *MemoryQueue) handle(ctx context.Context, worker int, task Task, handler Handler) {
	err := handler(ctx, task)
	if err == nil {
		return
	}
	if interrupted(ctx, err) {
		task.Attempt++
		q.putBack(task)
		return
	}
	q.logger.Error().Err(err).Int("worker", worker).Str("content_id", task.ContentID).Msg("queue: task failed")
}

func (q *MemoryQueue) putBack(task Task) {
	select {
	case q.tasks <- task:
	default:
		q.logger.Warn().Str("content_id", task.ContentID).Msg("queue: buffer full, interrupted task dropped")
	}
}

// Len reports how many tasks are waiting.
func (q *MemoryQueue) Len() int { return len(q.tasks) }

func (q *MemoryQueue) Close() error {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
	return nil
}
