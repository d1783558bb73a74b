package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"jobshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
)

// ErrMalformed marks a message that can never be processed. Such messages
// are dropped instead of requeued.
var ErrMalformed = errors.New("malformed message")

// ErrDeliveryClosed is returned by Run when the broker closes the delivery
// stream while the consumer is still expected to run.
var ErrDeliveryClosed = errors.New("delivery channel closed")

// Handler processes the body of one delivery.
type Handler func(ctx context.Context, body []byte) error

// Consumer dispatches deliveries of one queue to a handler on a bounded
// number of goroutines.
type Consumer struct {
	client  *Client
	queue   string
	workers int
	handler Handler
	logger  zerolog.Logger
}

// NewConsumer declares the queue and returns a consumer for it.
func NewConsumer(client *Client, queue string, workers int, handler Handler, logger zerolog.Logger) (*Consumer, error) {
	q, err := client.DeclareQueue(queue)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		client:  client,
		queue:   q.Name,
		workers: workers,
		handler: handler,
		logger:  logger.With().Str("component", "consumer").Str("queue", q.Name).Logger(),
	}, nil
}

// Run consumes until ctx is cancelled or the broker closes the stream, then
// waits for in-flight messages. A stream closed before cancellation yields
// ErrDeliveryClosed.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(c.queue, "jobshop-"+c.queue, c.workers)
	if err != nil {
		return err
	}

	c.logger.Info().Int("workers", c.workers).Msg("consumer started")

	return c.serve(ctx, msgs)
}

func (c *Consumer) serve(ctx context.Context, msgs <-chan amqp.Delivery) error {
	g := new(errgroup.Group)
	g.SetLimit(c.workers)

	var closed bool
loop:
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("stopping consumer")
			break loop
		case msg, ok := <-msgs:
			if !ok {
				closed = ctx.Err() == nil
				break loop
			}
			g.Go(func() error {
				c.process(ctx, msg)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if closed {
		c.logger.Error().Msg("delivery channel closed by broker")
		return ErrDeliveryClosed
	}
	return nil
}

// process runs the handler and settles the delivery: ack on success, drop
// malformed messages and requeue anything else.
func (c *Consumer) process(ctx context.Context, msg amqp.Delivery) {
	err := c.handler(ctx, msg.Body)

	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error().Err(ackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to ack message")
		}
	case errors.Is(err, ErrMalformed):
		c.logger.Error().
			Err(err).
			Uint64("delivery_tag", msg.DeliveryTag).
			Str("message_id", msg.MessageId).
			Msg("dropping malformed message")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to nack message")
		}
	default:
		c.logger.Error().
			Err(err).
			Uint64("delivery_tag", msg.DeliveryTag).
			Str("message_id", msg.MessageId).
			Msg("failed to process message, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Error().Err(nackErr).Uint64("delivery_tag", msg.DeliveryTag).Msg("failed to nack message")
		}
	}
}

// ResultHandler completes job searches from hub results.
type ResultHandler interface {
	HandleResult(ctx context.Context, result model.JobSearchResult) error
}

// JobSearchResultHandler decodes result messages and passes them to h.
// Undecodable or invalid results are reported as ErrMalformed.
func JobSearchResultHandler(h ResultHandler) Handler {
	return func(ctx context.Context, body []byte) error {
		var result model.JobSearchResult
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		err := h.HandleResult(ctx, result)
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return err
	}
}
