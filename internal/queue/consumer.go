// Package queue consumes forwarded bank messages from RabbitMQ and posts them
// through the message service.
package queue

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"famledger/internal/logger"
)

// Topology names the exchange, queue and routing key the consumer binds.
type Topology struct {
	Exchange   string
	Queue      string
	RoutingKey string
}

// DeliveryHandler processes one message body. Returning true acknowledges the
// delivery; false rejects it.
type DeliveryHandler func(body []byte) bool

// Consumer owns one AMQP connection and channel.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %s", parsed.Scheme)
	}
	return clean, nil
}

// NewConsumer dials the broker and opens a channel.
func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Consumer{conn: conn, ch: ch}, nil
}

// Consume declares the topology and dispatches deliveries to handler until ctx
// is cancelled or the channel closes. Deliveries are processed one at a time.
func (c *Consumer) Consume(ctx context.Context, topo Topology, handler DeliveryHandler) error {
	if handler == nil {
		return fmt.Errorf("no handler provided")
	}

	if err := c.ch.ExchangeDeclare(topo.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := c.ch.QueueDeclare(topo.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.ch.QueueBind(q.Name, topo.RoutingKey, topo.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := c.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log := logger.Named("queue")
	log.Infow("consuming forwarded messages",
		"exchange", topo.Exchange,
		"queue", q.Name,
		"routing_key", topo.RoutingKey,
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if handler(d.Body) {
				_ = d.Ack(false)
				continue
			}
			// A delivery that already failed once is dropped.
			requeue := !d.Redelivered
			log.Warnw("delivery failed",
				"delivery_tag", d.DeliveryTag,
				"requeue", requeue,
			)
			_ = d.Nack(false, requeue)
		}
	}
}

// Close releases the channel and connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
