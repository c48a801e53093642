package servicebus

// revive:disable:max-public-structs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/next-trace/scg-consumer-bus/consumer"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// EndpointBinder creates every receive endpoint on a channel factory.
// *consumer.Binder satisfies it.
type EndpointBinder interface {
	BindAll(f cbus.ChannelFactory) error
}

// SendFunc hands a message to the runtime.
type SendFunc func(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions) error

// SendMiddleware wraps outgoing sends. Middlewares are executed in registration order.
type SendMiddleware func(next SendFunc) SendFunc

// Bus hosts consumer endpoints on a runtime and sends messages through it.
//
// Bus is concurrency-safe and contains no global state.
type Bus struct {
	mu sync.Mutex

	binder  EndpointBinder
	runtime cbus.Runtime
	pub     cbus.Publisher
	logger  *slog.Logger

	// global send middleware executed in registration order
	sendMW []SendMiddleware

	bound   bool
	started bool
}

// BusOption configures a Bus instance.
type BusOption func(*Bus)

// WithSendMiddleware registers global send middleware via an option.
func WithSendMiddleware(mw ...SendMiddleware) BusOption {
	return func(b *Bus) { b.sendMW = append(b.sendMW, mw...) }
}

// WithPublisher overrides the publisher; by default the runtime is used when it implements cbus.Publisher.
func WithPublisher(p cbus.Publisher) BusOption {
	return func(b *Bus) { b.pub = p }
}

// New constructs a Bus over binder and runtime.
func New(binder EndpointBinder, rt cbus.Runtime, logger *slog.Logger, opts ...BusOption) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{binder: binder, runtime: rt, logger: logger.With("component", "servicebus")}
	if p, ok := rt.(cbus.Publisher); ok {
		b.pub = p
	}

	for _, o := range opts {
		o(b)
	}

	return b
}

// Start binds all endpoints once and starts the runtime. It does not block.
func (b *Bus) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.binder == nil || b.runtime == nil {
		return fmt.Errorf("start bus: %w", berr.ErrNotConfigured)
	}

	if b.started {
		return nil
	}

	if !b.bound {
		if err := b.binder.BindAll(b.runtime); err != nil {
			return fmt.Errorf("start bus: %w", err)
		}

		b.bound = true
	}

	if err := b.runtime.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}

	b.started = true
	b.logger.InfoContext(ctx, "bus started")

	return nil
}

// Run starts the bus, blocks until ctx is done and closes the runtime.
// Bind and start errors are returned before blocking.
func (b *Bus) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	b.logger.Info("bus stopping", "reason", context.Cause(ctx))

	return b.Close()
}

// Close stops consumption. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}

	b.started = false

	if err := b.runtime.Close(); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}

	return nil
}

// Send delivers a command to the endpoint consuming its type.
func (b *Bus) Send(ctx context.Context, cmd cbus.Command, opts cbus.PublishOptions) error {
	return b.sendWithMiddleware(ctx, cmd, opts)
}

// Publish delivers an event to every endpoint consuming its type.
// Commands are rejected; use Send.
func (b *Bus) Publish(ctx context.Context, evt cbus.Message, opts cbus.PublishOptions) error {
	if consumer.Classify(reflect.TypeOf(evt)) == cbus.KindCommand {
		return fmt.Errorf("publish %T: command must be sent: %w", evt, berr.ErrHandlerTypeMismatch)
	}

	return b.sendWithMiddleware(ctx, evt, opts)
}

// SendWithMiddleware sends a message with additional per-call middleware.
func (b *Bus) SendWithMiddleware(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions, mws ...SendMiddleware) error {
	return b.sendWithMiddleware(ctx, msg, opts, mws...)
}

func (b *Bus) sendWithMiddleware(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions, mws ...SendMiddleware) error {
	if b.pub == nil {
		return fmt.Errorf("send %T: %w", msg, berr.ErrNotConfigured)
	}

	// Combine global and per-call middleware
	chain := make([]SendMiddleware, 0, len(b.sendMW)+len(mws))
	chain = append(chain, b.sendMW...)
	chain = append(chain, mws...)

	// Build chain so the first registered middleware runs first
	final := SendFunc(b.pub.Publish)
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	return final(ctx, msg, opts)
}

// Chain sends commands in order and stops on the first error.
func (b *Bus) Chain(ctx context.Context, cmds ...cbus.Command) error {
	for _, c := range cmds {
		if err := b.sendWithMiddleware(ctx, c, cbus.PublishOptions{}); err != nil {
			return err
		}
	}

	return nil
}

// BatchOptions controls Batch execution behavior.
// OnProgress is called after each message is sent (success or failure) with done and total.
// OnError is called when a send returns an error with its index, the message, and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, msg cbus.Message, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt { //nolint:ireturn
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, msg cbus.Message, err error)) BatchOpt { //nolint:ireturn
	return func(o *BatchOptions) { o.OnError = fn }
}

// Batch sends the provided messages sequentially, commands and events alike.
// It stops on context cancellation and joins per-message errors.
func (b *Bus) Batch(ctx context.Context, msgs []cbus.Message, opts ...BatchOpt) error {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	total := len(msgs)

	var errs []error

	for i, m := range msgs {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return errors.Join(append(errs, err)...)
		}

		err := b.sendWithMiddleware(ctx, m, cbus.PublishOptions{})
		if err != nil {
			if o.OnError != nil {
				o.OnError(i, m, err)
			}

			errs = append(errs, err)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return errors.Join(errs...)
}
