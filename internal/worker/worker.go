// Package worker implements the consume/handle/publish/acknowledge
// lifecycle shared by every pipeline stage.
package worker

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"psychsessions/internal/event"
)

// Stage is the capability a concrete pipeline stage plugs into the
// harness: given one input envelope, fetch the input artifact, invoke the
// external capability, store the output artifact, and return the
// next-stage envelope (nil when the stage ends the pipeline).
type Stage interface {
	Name() string
	Handle(ctx context.Context, env event.Envelope) (*event.Envelope, error)
}

// Publisher publishes stage-completion events. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, env event.Envelope) error
}

// Worker drives one stage over a delivery stream. The order is fixed:
// the stage stores its output artifact before the next event is
// published, and the input message is acknowledged only after the publish
// succeeds, so a crash anywhere in between causes redelivery rather than
// loss. Redelivery is safe because artifact writes overwrite and
// downstream consumption is idempotent.
type Worker struct {
	Stage     Stage
	Publisher Publisher

	// Timeout bounds one Handle call, external capability included.
	// Exceeding it is treated like any transient failure.
	Timeout time.Duration

	// Concurrency is the number of competing consumers to run. The broker
	// hands each message to exactly one of them.
	Concurrency int
}

// Run consumes deliveries until the stream closes or ctx is canceled.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	n := w.Concurrency
	if n <= 0 {
		n = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case d, ok := <-deliveries:
					if !ok {
						return nil
					}
					w.process(ctx, d)
				}
			}
		})
	}
	return g.Wait()
}

// process handles a single delivery. Every failure path ends in a
// negative acknowledge; the broker's delivery limit decides when to stop
// retrying and dead-letter the message.
func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	logger := log.With().
		Str("stage", w.Stage.Name()).
		Int64("attempt", deliveryCount(d)).
		Logger()

	env, err := event.Decode(d.Body)
	if err != nil {
		// Malformed payloads take the same path as any failure: requeue
		// until the delivery limit routes them, unmodified, to the DLQ.
		logger.Error().Err(err).Msg("Invalid message")
		w.nack(d, logger)
		return
	}
	logger = logger.With().Str("session_id", env.SessionID).Logger()
	logger.Info().
		Str("event_type", env.EventType).
		Str("object_key", env.ObjectKey).
		Msg("Message received")

	next, err := w.handle(ctx, env)
	if err != nil {
		logger.Error().Err(err).Msg("Stage failed")
		w.nack(d, logger)
		return
	}

	if next != nil {
		if err := w.Publisher.Publish(ctx, next.EventType, *next); err != nil {
			// The output artifact is already stored; redelivery overwrites
			// it and republishes.
			logger.Error().Err(err).Msg("Publish failed")
			w.nack(d, logger)
			return
		}
	}

	if err := d.Ack(false); err != nil {
		logger.Error().Err(err).Msg("Ack failed")
		return
	}
	logger.Info().Msg("Message processed")
}

func (w *Worker) handle(ctx context.Context, env event.Envelope) (*event.Envelope, error) {
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}
	return w.Stage.Handle(ctx, env)
}

func (w *Worker) nack(d amqp.Delivery, logger zerolog.Logger) {
	if err := d.Nack(false, true); err != nil {
		logger.Error().Err(err).Msg("Nack failed")
	}
}

// deliveryCount reads the broker-maintained redelivery counter. The
// header is absent on first delivery.
func deliveryCount(d amqp.Delivery) int64 {
	v, ok := d.Headers["x-delivery-count"]
	if !ok {
		return 1
	}
	switch n := v.(type) {
	case int64:
		return n + 1
	case int32:
		return int64(n) + 1
	case int:
		return int64(n) + 1
	default:
		return 1
	}
}
