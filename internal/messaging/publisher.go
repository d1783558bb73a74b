package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"jobshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// channelPublisher is the part of *amqp.Channel the publisher needs.
type channelPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends job search requests to the job searcher hub.
type Publisher struct {
	channel channelPublisher
	queue   string
	logger  zerolog.Logger
}

// NewPublisher declares the request queue and returns a publisher for it.
func NewPublisher(client *Client, queue string, logger zerolog.Logger) (*Publisher, error) {
	q, err := client.DeclareQueue(queue)
	if err != nil {
		return nil, err
	}
	return newPublisher(client.channel, q.Name, logger), nil
}

func newPublisher(channel channelPublisher, queue string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		channel: channel,
		queue:   queue,
		logger:  logger.With().Str("component", "job_search_publisher").Logger(),
	}
}

// PublishJobSearch publishes msg as a persistent JSON message.
func (p *Publisher) PublishJobSearch(ctx context.Context, msg model.JobSearchMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal job search message: %w", err)
	}

	err = p.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.SearchID.String(),
		Timestamp:    msg.RequestedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish job search %s: %w", msg.SearchID, err)
	}

	p.logger.Debug().Str("search_id", msg.SearchID.String()).Str("queue", p.queue).Msg("job search published")

	return nil
}
