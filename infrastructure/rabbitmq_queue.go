// infrastructure/rabbitmq_queue.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

const TranscriptReadyQueue = "transcript_ready_queue"

type RabbitMQQueue struct {
	Conn   *amqp.Connection
	Queue  string
	Logger *zap.Logger
}

// DialRabbitMQ connects, retrying while the broker comes up.
func DialRabbitMQ(ctx context.Context, url string, logger *zap.Logger) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < 5; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("connected to rabbitmq")
			return conn, nil
		}
		logger.Warn("rabbitmq not reachable, retrying in 5s", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to rabbitmq after 5 attempts: %w", err)
}

func NewRabbitMQQueue(conn *amqp.Connection, logger *zap.Logger) *RabbitMQQueue {
	return &RabbitMQQueue{Conn: conn, Queue: TranscriptReadyQueue, Logger: logger}
}

func (q *RabbitMQQueue) declare(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		q.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *RabbitMQQueue) PublishTranscriptReady(ctx context.Context, msg domain.TranscriptReadyMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	ch, err := q.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	queue, err := q.declare(ch)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	err = ch.PublishWithContext(ctx,
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.QueuedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	q.Logger.Debug("queued transcript for summarization",
		zap.String("user_id", msg.UserID), zap.String("video_id", msg.VideoID))
	return nil
}

// ConsumeTranscriptReady blocks, handing each message to handler until ctx is done or the
// channel closes. Messages are acked after the handler returns; a handler error requeues once.
func (q *RabbitMQQueue) ConsumeTranscriptReady(ctx context.Context, handler func(context.Context, domain.TranscriptReadyMessage) error) error {
	ch, err := q.Conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer ch.Close()

	queue, err := q.declare(ch)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	q.Logger.Info("waiting for transcript messages", zap.String("queue", queue.Name))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}
			q.handle(ctx, d, handler)
		}
	}
}

func (q *RabbitMQQueue) handle(ctx context.Context, d amqp.Delivery, handler func(context.Context, domain.TranscriptReadyMessage) error) {
	var msg domain.TranscriptReadyMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		q.Logger.Error("dropping unreadable message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, msg); err != nil {
		q.Logger.Error("transcript message handler failed",
			zap.String("video_id", msg.VideoID), zap.Bool("redelivered", d.Redelivered), zap.Error(err))
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}
