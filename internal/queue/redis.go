package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPopTimeout = 5 * time.Second

// RedisQueue keeps tasks in a redis list: producers LPUSH, consumers BRPOP.
type RedisQueue struct {
	client      *redis.Client
	key         string
	concurrency int
	logger      zerolog.Logger
}

func NewRedisQueue(client *redis.Client, name string, concurrency int, logger zerolog.Logger) *RedisQueue {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &RedisQueue{client: client, key: "queue:" + name, concurrency: concurrency, logger: logger}
}

func (q *RedisQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}
	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	q.logger.Info().Str("queue", q.key).Int("concurrency", q.concurrency).Msg("queue: redis consumer started")
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			q.loop(ctx, worker, handler)
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (q *RedisQueue) loop(ctx context.Context, worker int, handler Handler) {
	for ctx.Err() == nil {
		result, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.logger.Error().Err(err).Int("worker", worker).Msg("queue: redis pop failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// result[0] is the list key, result[1] the payload.
		if len(result) != 2 {
			continue
		}
		task, err := decodeTask([]byte(result[1]))
		if err != nil {
			q.logger.Error().Err(err).Msg("queue: dropping malformed task")
			continue
		}

		err = handler(ctx, task)
		switch {
		case err == nil:
		case interrupted(ctx, err):
			q.requeue(task)
		default:
			q.logger.Error().Err(err).Int("worker", worker).Str("content_id", task.ContentID).Msg("queue: task failed")
		}
	}
}

// requeue puts an interrupted task back at the consuming end of the list.
func (q *RedisQueue) requeue(task Task) {
	task.Attempt++
	body, err := encodeTask(task)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.RPush(ctx, q.key, body).Err(); err != nil {
		q.logger.Error().Err(err).Str("content_id", task.ContentID).Msg("queue: requeue failed")
	}
}

// Close leaves the client open; its owner closes it.
func (q *RedisQueue) Close() error { return nil }
