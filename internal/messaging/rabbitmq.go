// Package messaging connects the job search flow to the job searcher hub over RabbitMQ.
package messaging

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Client holds one AMQP connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  zerolog.Logger
}

// Dial connects to the broker and opens a channel.
func Dial(url string, logger zerolog.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close rabbitmq connection")
		}
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	logger.Info().Msg("rabbitmq connected")

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  logger.With().Str("component", "rabbitmq").Logger(),
	}, nil
}

// DeclareQueue declares a durable queue.
func (c *Client) DeclareQueue(name string) (amqp.Queue, error) {
	q, err := c.channel.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return q, nil
}

// Consume starts a manual-ack delivery stream on the queue.
func (c *Client) Consume(queue, consumerTag string, prefetch int) (<-chan amqp.Delivery, error) {
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	msgs, err := c.channel.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}
	return msgs, nil
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
