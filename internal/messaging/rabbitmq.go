// Package messaging adapts the teacher's RabbitMQ wrapper to fan out
// domain events published by the outbox and consumed by the saga
// coordinator's event-driven trigger path.
package messaging

import (
	"context"
	"fmt"
	"log"

	"github.com/rabbitmq/amqp091-go"
)

// EventHandler processes a single event's raw payload.
type EventHandler func(ctx context.Context, eventData []byte) error

// Bus is the message-bus seam the outbox publisher and saga coordinator
// depend on, so either can be exercised against NoopBus in tests or
// against RabbitMQ in production.
type Bus interface {
	Publish(eventType string, eventData []byte) error
	Subscribe(eventType string, handler EventHandler) error
	Close() error
}

// RabbitMQ is a topic-exchange-backed Bus: one durable exchange named
// "events", routing key = event type, one durable queue per event type
// named "queue.<type>".
type RabbitMQ struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	url     string
}

func NewRabbitMQ(url string) *RabbitMQ {
	return &RabbitMQ{url: url}
}

// Connect dials the broker, opens a channel and declares the shared
// "events" exchange. Retry policy lives in the bootstrap layer.
func (r *RabbitMQ) Connect() error {
	conn, err := amqp091.Dial(r.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	r.conn = conn
	r.channel = ch

	err = ch.ExchangeDeclare(
		"events", // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Println("✅ Connected to RabbitMQ")
	return nil
}

// Publish sends eventData to the "events" exchange with routing key =
// eventType, persisted to disk by the broker.
func (r *RabbitMQ) Publish(eventType string, eventData []byte) error {
	if r.channel == nil {
		return fmt.Errorf("RabbitMQ channel not initialized")
	}

	err := r.channel.PublishWithContext(
		context.Background(),
		"events",  // exchange
		eventType, // routing key
		false,     // mandatory
		false,     // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         eventData,
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	log.Printf("📤 Published event: %s", eventType)
	return nil
}

// Subscribe declares (or reuses) a durable per-event-type queue, binds it
// to the "events" exchange under routing key = eventType, and runs
// handler for every delivery, acking on success and requeueing (nack) on
// failure.
func (r *RabbitMQ) Subscribe(eventType string, handler EventHandler) error {
	if r.channel == nil {
		return fmt.Errorf("RabbitMQ channel not initialized")
	}

	queueName := fmt.Sprintf("queue.%s", eventType)

	queue, err := r.channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	err = r.channel.QueueBind(
		queue.Name, // queue name
		eventType,  // routing key
		"events",   // exchange
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := r.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack (manual ack for reliability)
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	go func() {
		log.Printf("👂 Subscribed to event: %s (queue: %s)", eventType, queueName)

		for msg := range msgs {
			ctx := context.Background()
			log.Printf("📥 Received event: %s", eventType)

			if err := handler(ctx, msg.Body); err != nil {
				log.Printf("❌ Failed to process event %s: %v", eventType, err)
				msg.Nack(false, true)
			} else {
				log.Printf("✅ Successfully processed event: %s", eventType)
				msg.Ack(false)
			}
		}
	}()

	return nil
}

// Close tears down the channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
