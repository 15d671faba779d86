package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

// RabbitEnrichQueue реализует очередь задач обогащения поверх AMQP.
type RabbitEnrichQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	// Подписка регистрируется один раз при первом Receive: повторный
	// Consume плодил бы потребителей на стороне брокера.
	consumeOnce sync.Once
	deliveries  <-chan amqp.Delivery
	consumeErr  error
}

var _ domain.EnrichQueue = (*RabbitEnrichQueue)(nil)

// NewRabbitEnrichQueue подключается к RabbitMQ и объявляет очередь.
func NewRabbitEnrichQueue(amqpURL, queue string) (*RabbitEnrichQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("подключение к RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление очереди: %w", err)
	}
	return &RabbitEnrichQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitEnrichQueue) Enqueue(ctx context.Context, job domain.EnrichJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди и возвращает функцию подтверждения.
// Подписка на брокере регистрируется при первом вызове и живёт до Close.
func (q *RabbitEnrichQueue) Receive(ctx context.Context) (domain.EnrichJob, domain.AckFunc, error) {
	q.consumeOnce.Do(func() {
		// Prefetch 1: следующая задача уходит воркеру только после ack.
		if q.consumeErr = q.ch.Qos(1, 0, false); q.consumeErr != nil {
			return
		}
		q.deliveries, q.consumeErr = q.ch.Consume(q.queue, "", false, false, false, false, nil)
	})
	if q.consumeErr != nil {
		return domain.EnrichJob{}, nil, fmt.Errorf("consume: %w", q.consumeErr)
	}
	return receiveJob(ctx, q.deliveries)
}

func receiveJob(ctx context.Context, deliveries <-chan amqp.Delivery) (domain.EnrichJob, domain.AckFunc, error) {
	select {
	case <-ctx.Done():
		return domain.EnrichJob{}, nil, ctx.Err()
	case delivery, ok := <-deliveries:
		if !ok {
			return domain.EnrichJob{}, nil, errors.New("rabbitmq: канал доставки закрыт")
		}
		var job domain.EnrichJob
		if err := json.Unmarshal(delivery.Body, &job); err != nil {
			_ = delivery.Nack(false, false)
			return domain.EnrichJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return delivery.Ack(false)
			}
			return delivery.Nack(false, true)
		}
		return job, ack, nil
	}
}

// Close освобождает соединение с брокером.
func (q *RabbitEnrichQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
