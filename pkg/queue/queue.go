package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hugh/staff-manager/pkg/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

const maxDialAttempts = 5

// Connection owns the broker connection and the single channel used for publishing.
type Connection struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

// Connect dials RabbitMQ with exponential backoff and declares the durable topic exchange
// that change events are published to.
func Connect(ctx context.Context, cfg *config.RabbitMQConfig, log *slog.Logger) (*Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		conn, err = amqp.Dial(cfg.URL)
		if err == nil {
			break
		}

		wait := retryDelay(attempt)
		log.Warn("rabbitmq dial failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err)
	}

	log.Info("connected to rabbitmq", "exchange", cfg.Exchange)
	return &Connection{Conn: conn, Channel: ch}, nil
}

func (c *Connection) Close() error {
	if err := c.Channel.Close(); err != nil {
		c.Conn.Close()
		return err
	}
	return c.Conn.Close()
}

// retryDelay doubles from one second, capped at 16 seconds.
func retryDelay(attempt int) time.Duration {
	if attempt > 4 {
		attempt = 4
	}
	return time.Second << attempt
}
