// Package memory wires a ready-to-use in-process bus for tests and examples.
package memory

import (
	"context"

	"github.com/next-trace/scg-consumer-bus/adapters/inmemory"
	"github.com/next-trace/scg-consumer-bus/consumer"
	"github.com/next-trace/scg-consumer-bus/container"
	"github.com/next-trace/scg-consumer-bus/servicebus"
)

// New loads sets into a fresh container, binds every endpoint onto an
// in-memory runtime and starts it. The cleanup closes the bus.
func New(sets ...consumer.Set) (*servicebus.Bus, *inmemory.Runtime, func(), error) {
	c := container.New()

	reg, err := consumer.Load(c, nil, sets...)
	if err != nil {
		return nil, nil, nil, err
	}

	rt := inmemory.New()
	sb := servicebus.New(consumer.NewBinder(reg, c), rt, nil)

	if err := sb.Start(context.Background()); err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() { _ = sb.Close() }

	return sb, rt, cleanup, nil
}
