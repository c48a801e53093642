package rabbitmq

import (
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Concrete AMQP connection-backed constructor.

const defaultConnTimeout = 30 * time.Second

type Config struct {
	URL         string
	ConnTimeout time.Duration
	Prefetch    int
}

// NewWithAMQPConn dials RabbitMQ, opens a channel and returns a Runtime and cleanup.
func NewWithAMQPConn(cfg Config, logger *slog.Logger) (*Runtime, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrNotConfigured)
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = defaultConnTimeout
	}

	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-consumer-bus"},
		Dial:       amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: rabbitmq dial: %w", berr.ErrSubscribeFailed, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%w: rabbitmq channel: %w", berr.ErrSubscribeFailed, err)
	}

	rt := New(ch, WithPrefetch(cfg.Prefetch), WithLogger(logger))
	cleanup := func() {
		_ = rt.Close()
		_ = ch.Close()
		_ = conn.Close()
	}

	return rt, cleanup, nil
}
