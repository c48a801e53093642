package servicebus_test

import (
	"context"
	"errors"
	"sync"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
)

type nopBinder struct{}

func (nopBinder) BindAll(cbus.ChannelFactory) error { return nil }

type failingBinder struct{ err error }

func (f failingBinder) BindAll(cbus.ChannelFactory) error { return f.err }

type fakeRuntime struct {
	mu       sync.Mutex
	startErr error
	closed   bool
}

func (f *fakeRuntime) CreateChannel(string, func(cbus.ChannelConfig) error) error { return nil }

func (f *fakeRuntime) Start(context.Context) error { return f.startErr }

func (f *fakeRuntime) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true

	return nil
}

func (f *fakeRuntime) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// fakePublisher records sends and fails for the ShipOrder whose ID equals failOn.
type fakePublisher struct {
	sent   []cbus.Message
	failOn string
}

func (f *fakePublisher) Publish(_ context.Context, msg cbus.Message, _ cbus.PublishOptions) error {
	f.sent = append(f.sent, msg)

	if c, ok := msg.(ShipOrder); ok && c.OrderID == f.failOn {
		return errors.New("send failed")
	}

	return nil
}
