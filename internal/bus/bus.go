// Package bus owns the RabbitMQ side of the pipeline: one durable topic
// exchange, one quorum queue per stage with a bounded delivery limit, and
// a dead-letter queue per stage for poison messages.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"psychsessions/internal/event"
)

// Bus is a process-wide broker connection: dialed once at startup and
// closed on shutdown, never re-established ad hoc.
type Bus struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker, retrying transient failures with
// exponential backoff, and declares the shared exchanges.
func Dial(ctx context.Context, url string) (*Bus, error) {
	var conn *amqp.Connection
	dial := func() error {
		var err error
		conn, err = amqp.Dial(url)
		return err
	}
	policy := backoff.WithContext(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(time.Minute)), ctx)
	if err := backoff.Retry(dial, policy); err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", Exchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", DeadLetterExchange, err)
	}
	return &Bus{conn: conn, ch: ch}, nil
}

// DeclareTopology declares a stage's quorum queue, its dead-letter queue,
// and both bindings. All declares are idempotent so every worker can run
// them at startup.
func (b *Bus) DeclareTopology(q QueueSpec) error {
	if _, err := b.ch.QueueDeclare(q.DLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq %s: %w", q.DLQName, err)
	}
	if err := b.ch.QueueBind(q.DLQName, q.Retry.DeadLetterRoutingKey, q.Retry.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind dlq %s: %w", q.DLQName, err)
	}
	if _, err := b.ch.QueueDeclare(q.Name, true, false, false, false, q.Retry.Args()); err != nil {
		return fmt.Errorf("declare queue %s: %w", q.Name, err)
	}
	if err := b.ch.QueueBind(q.Name, q.BindingKey, Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	log.Info().
		Str("queue", q.Name).
		Str("binding_key", q.BindingKey).
		Str("dlq", q.DLQName).
		Int("delivery_limit", q.Retry.MaxDeliveryCount).
		Msg("Queue topology ready")
	return nil
}

// Publish sends one envelope to the topic exchange with persistent
// delivery, so a broker restart cannot drop an in-flight handoff.
func (b *Bus) Publish(ctx context.Context, routingKey string, env event.Envelope) error {
	body, err := env.Encode()
	if err != nil {
		return err
	}
	err = b.ch.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	log.Info().
		Str("routing_key", routingKey).
		Str("session_id", env.SessionID).
		Msg("Event published")
	return nil
}

// Consume starts delivering messages from a stage queue. prefetch bounds
// the unacknowledged messages handed to this consumer, which is what
// spreads load across competing workers.
func (b *Bus) Consume(queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := b.ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	deliveries, err := b.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, nil
}

// Close tears down the channel and connection.
func (b *Bus) Close() error {
	if err := b.ch.Close(); err != nil {
		_ = b.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
