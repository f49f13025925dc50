package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"ai-blog-bot/internal/domain"
)

// AMQPGenerationQueue реализует очередь задач генерации через RabbitMQ.
// Используется, когда несколько воркеров делят общий брокер.
type AMQPGenerationQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewAMQPGenerationQueue подключается к брокеру и объявляет очередь.
func NewAMQPGenerationQueue(amqpURL, queueName string) (*AMQPGenerationQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queueName == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return &AMQPGenerationQueue{conn: conn, ch: ch, queue: queueName}, nil
}

var _ domain.GenerationQueue = (*AMQPGenerationQueue)(nil)

// Enqueue публикует задачу в очередь.
func (q *AMQPGenerationQueue) Enqueue(ctx context.Context, job domain.GenerationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *AMQPGenerationQueue) Pop(ctx context.Context) (domain.GenerationJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.Consume(q.queue, "", true, false, false, false, nil)
		if err != nil {
			return domain.GenerationJob{}, fmt.Errorf("amqp consume: %w", err)
		}
		q.deliveries = deliveries
	}
	select {
	case <-ctx.Done():
		return domain.GenerationJob{}, ctx.Err()
	case msg, ok := <-q.deliveries:
		if !ok {
			return domain.GenerationJob{}, errors.New("amqp queue: канал доставки закрыт")
		}
		var job domain.GenerationJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			return domain.GenerationJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}

// Close закрывает канал и подключение.
func (q *AMQPGenerationQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
