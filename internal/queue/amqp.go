package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPQueue publishes tasks to a durable queue and consumes them with
// manual acknowledgements.
type AMQPQueue struct {
	conn        *amqp.Connection
	pub         *amqp.Channel
	pubMu       sync.Mutex
	name        string
	concurrency int
	logger      zerolog.Logger
}

func NewAMQPQueue(conn *amqp.Connection, name string, concurrency int, logger zerolog.Logger) (*AMQPQueue, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if _, err := declare(ch, name); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, pub: ch, name: name, concurrency: concurrency, logger: logger}, nil
}

func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("amqp: declare queue %q: %w", name, err)
	}
	return q, nil
}

func (q *AMQPQueue) Enqueue(ctx context.Context, task Task) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	err = q.pub.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    task.ContentID,
		Timestamp:    task.EnqueuedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}

func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: open consumer channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(q.concurrency, 0, false); err != nil {
		return fmt.Errorf("amqp: set qos: %w", err)
	}
	deliveries, err := ch.ConsumeWithContext(ctx, q.name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp: consume %q: %w", q.name, err)
	}
	q.logger.Info().Str("queue", q.name).Int("prefetch", q.concurrency).Msg("queue: amqp consumer started")

	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for d := range deliveries {
				q.handle(ctx, worker, d, handler)
			}
		}(i)
	}
	wg.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("amqp: delivery channel closed")
}

func (q *AMQPQueue) handle(ctx context.Context, worker int, d amqp.Delivery, handler Handler) {
	task, err := decodeTask(d.Body)
	if err != nil {
		q.logger.Error().Err(err).Msg("queue: rejecting malformed task")
		_ = d.Nack(false, false)
		return
	}
	err = handler(ctx, task)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case interrupted(ctx, err):
		_ = d.Nack(false, true)
	default:
		q.logger.Error().Err(err).Int("worker", worker).Str("content_id", task.ContentID).Msg("queue: task failed")
		_ = d.Ack(false)
	}
}

func (q *AMQPQueue) Close() error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	return q.pub.Close()
}
