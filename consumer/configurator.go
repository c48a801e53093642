package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Middleware wraps delivery to a handler. Middlewares are executed in registration order.
type Middleware func(next cbus.DeliveryFunc) cbus.DeliveryFunc

// DispatchConfigurator subscribes a handler's message type on its channel and
// resolves a fresh handler instance from the container for every delivery.
type DispatchConfigurator struct {
	Middleware []Middleware
}

var _ cbus.Configurator = DispatchConfigurator{}

func (dc DispatchConfigurator) Configure(d cbus.HandlerDescriptor, ch cbus.ChannelConfig, c cbus.Container) error {
	if c == nil {
		return fmt.Errorf("configure %s on %s: %w", d.HandlerType(), ch.Name(), berr.ErrNotConfigured)
	}

	ht := d.HandlerType()

	var final cbus.DeliveryFunc = func(ctx context.Context, msg any) error {
		h, err := c.Resolve(ht)
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", ht.String(), err)
		}

		return d.Invoke(ctx, h, msg)
	}

	// Build chain so the first registered middleware runs first
	for i := len(dc.Middleware) - 1; i >= 0; i-- {
		final = dc.Middleware[i](final)
	}

	return ch.Consume(d.MessageType(), final)
}

// LogDeliveries logs every delivery with its duration and outcome.
func LogDeliveries(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next cbus.DeliveryFunc) cbus.DeliveryFunc {
		return func(ctx context.Context, msg any) error {
			start := time.Now()
			err := next(ctx, msg)

			if err != nil {
				logger.ErrorContext(ctx, "delivery failed",
					"message", fmt.Sprintf("%T", msg), "duration", time.Since(start), "error", err)

				return err
			}

			logger.DebugContext(ctx, "delivered",
				"message", fmt.Sprintf("%T", msg), "duration", time.Since(start))

			return nil
		}
	}
}
