package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/next-trace/scg-consumer-bus/adapters/internal/dispatch"
	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

const (
	subjectPrefix = "msg."
	// HeaderMessageType carries the wire message name alongside the payload.
	HeaderMessageType = "message-type"
	HeaderMessageID   = "message-id"
)

// MsgHandler receives a raw message from a subscription.
type MsgHandler func(subject string, data []byte, headers map[string]string)

// Client is a minimal NATS-like interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(subject string, data []byte, headers map[string]string) error
	// QueueSubscribe joins queue on subject and returns an unsubscribe func.
	QueueSubscribe(subject, queue string, fn MsgHandler) (func() error, error)
}

// Runtime implements cbus.Runtime using an injected NATS-like Client.
// Every channel is a queue group; each consumed message type is a subject.
type Runtime struct {
	Client     Client
	Propagator cbus.HeaderPropagator // defaults to cbus.NopHeaderPropagator

	logger *slog.Logger

	mu        sync.Mutex
	endpoints map[string]*dispatch.Endpoint
	order     []string
	unsubs    []func() error
	cancel    context.CancelFunc
}

var (
	_ cbus.Runtime   = (*Runtime)(nil)
	_ cbus.Publisher = (*Runtime)(nil)
)

// Option configures a Runtime instance.
type Option func(*Runtime)

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option { return func(r *Runtime) { r.logger = l } }

// WithPropagator configures a HeaderPropagator for context propagation.
func WithPropagator(p cbus.HeaderPropagator) Option {
	return func(r *Runtime) {
		if p != nil {
			r.Propagator = p
		}
	}
}

// New creates a new NATS runtime with the provided client.
func New(c Client, opts ...Option) *Runtime {
	r := &Runtime{Client: c, endpoints: make(map[string]*dispatch.Endpoint)}
	for _, o := range opts {
		o(r)
	}

	if r.Propagator == nil {
		r.Propagator = cbus.NopHeaderPropagator{}
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.logger = r.logger.With("component", "nats")

	return r
}

// Subject returns the subject carrying messages with the given wire name.
func Subject(messageName string) string { return subjectPrefix + messageName }

func (r *Runtime) ready(ctx context.Context, base error, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.Client == nil {
		return fmt.Errorf("nats %s: %w", label, errors.Join(base, berr.ErrNotConfigured))
	}

	return nil
}

func (r *Runtime) CreateChannel(name string, configure func(cbus.ChannelConfig) error) error {
	if err := r.ready(context.Background(), berr.ErrSubscribeFailed, "create channel"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[name]; exists {
		return fmt.Errorf("nats create channel %s: %w", name, berr.ErrChannelExists)
	}

	ep := dispatch.New("nats", name)
	if configure != nil {
		if err := configure(ep); err != nil {
			return fmt.Errorf("nats create channel %s: %w", name, err)
		}
	}

	r.endpoints[name] = ep
	r.order = append(r.order, name)

	return nil
}

// Start joins one queue group per channel on every consumed subject.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.ready(ctx, berr.ErrSubscribeFailed, "start"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	for _, name := range r.order {
		ep := r.endpoints[name]
		for _, msg := range ep.MessageNames() {
			unsub, err := r.Client.QueueSubscribe(Subject(msg), name, r.handler(runCtx, ep, msg))
			if err != nil {
				cancel()
				r.unsubscribeLocked()

				return fmt.Errorf("nats subscribe %s on %s: %w", Subject(msg), name, errors.Join(berr.ErrSubscribeFailed, err))
			}

			r.unsubs = append(r.unsubs, unsub)
		}
	}

	r.cancel = cancel

	return nil
}

func (r *Runtime) handler(ctx context.Context, ep *dispatch.Endpoint, messageName string) MsgHandler {
	return func(subject string, data []byte, headers map[string]string) {
		if ctx.Err() != nil {
			return
		}

		name := messageName
		if h := headers[HeaderMessageType]; h != "" {
			name = h
		}

		if err := ep.Dispatch(ctx, name, data); err != nil {
			r.logger.ErrorContext(ctx, "delivery failed", "endpoint", ep.Name(), "subject", subject, "error", err)
		}
	}
}

func (r *Runtime) unsubscribeLocked() error {
	var errs []error
	for _, u := range r.unsubs {
		if err := u(); err != nil {
			errs = append(errs, err)
		}
	}

	r.unsubs = nil

	return errors.Join(errs...)
}

// Close drops every subscription. Subsequent deliveries are ignored.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	return r.unsubscribeLocked()
}

// Publish sends msg on the subject of its wire name.
func (r *Runtime) Publish(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions) error {
	if err := r.ready(ctx, berr.ErrPublishFailed, "publish"); err != nil {
		return err
	}

	body, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("nats publish serialize: %w", err)
	}

	name := codec.MessageName(msg)

	h := make(map[string]string, len(opts.Headers)+3)
	for k, v := range opts.Headers {
		h[k] = v
	}

	if opts.Key != "" {
		h["key"] = opts.Key
	}

	h[HeaderMessageType] = name
	h[HeaderMessageID] = uuid.NewString()
	r.Propagator.Inject(ctx, h)

	if err := r.Client.Publish(Subject(name), body, h); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats publish %s: %w", name, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}
