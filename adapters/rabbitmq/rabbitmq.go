package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/next-trace/scg-consumer-bus/adapters/internal/dispatch"
	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

const exchangeKind = "fanout"

// AMQPChannel is the subset of *amqp.Channel used by the runtime.
type AMQPChannel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Runtime implements cbus.Runtime on an AMQP channel.
type Runtime struct {
	Channel    AMQPChannel
	Propagator cbus.HeaderPropagator // defaults to cbus.NopHeaderPropagator

	prefetch int
	logger   *slog.Logger

	mu        sync.Mutex
	endpoints map[string]*dispatch.Endpoint
	order     []string
	exchanges map[string]bool
	tags      []string
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var (
	_ cbus.Runtime   = (*Runtime)(nil)
	_ cbus.Publisher = (*Runtime)(nil)
)

// Option configures a Runtime instance.
type Option func(*Runtime)

// WithPrefetch limits unacknowledged deliveries per consumer.
func WithPrefetch(n int) Option { return func(r *Runtime) { r.prefetch = n } }

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

// New creates a runtime over ch.
func New(ch AMQPChannel, opts ...Option) *Runtime {
	r := &Runtime{
		Channel:   ch,
		endpoints: make(map[string]*dispatch.Endpoint),
		exchanges: make(map[string]bool),
	}

	for _, o := range opts {
		o(r)
	}

	if r.Propagator == nil {
		r.Propagator = cbus.NopHeaderPropagator{}
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.logger = r.logger.With("component", "rabbitmq")

	return r
}

func (r *Runtime) ready(ctx context.Context, base error, label string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.Channel == nil {
		return fmt.Errorf("rabbitmq %s: %w", label, errors.Join(base, berr.ErrNotConfigured))
	}

	return nil
}

// CreateChannel declares the endpoint queue and binds it to one exchange per consumed message type.
func (r *Runtime) CreateChannel(name string, configure func(cbus.ChannelConfig) error) error {
	if err := r.ready(context.Background(), berr.ErrSubscribeFailed, "create channel"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[name]; exists {
		return fmt.Errorf("rabbitmq create channel %s: %w", name, berr.ErrChannelExists)
	}

	ep := dispatch.New("rabbitmq", name)
	if configure != nil {
		if err := configure(ep); err != nil {
			return fmt.Errorf("rabbitmq create channel %s: %w", name, err)
		}
	}

	if _, err := r.Channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare queue %s: %w", name, errors.Join(berr.ErrSubscribeFailed, err))
	}

	for _, msg := range ep.MessageNames() {
		if err := r.declareExchange(msg); err != nil {
			return err
		}

		if err := r.Channel.QueueBind(name, "", msg, false, nil); err != nil {
			return fmt.Errorf("rabbitmq bind %s to %s: %w", name, msg, errors.Join(berr.ErrSubscribeFailed, err))
		}
	}

	r.endpoints[name] = ep
	r.order = append(r.order, name)

	return nil
}

// declareExchange must be called with r.mu held.
func (r *Runtime) declareExchange(name string) error {
	if r.exchanges[name] {
		return nil
	}

	if err := r.Channel.ExchangeDeclare(name, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare exchange %s: %w", name, errors.Join(berr.ErrSubscribeFailed, err))
	}

	r.exchanges[name] = true

	return nil
}

// Start begins consuming every declared queue. Each queue gets a consumer
// tagged with its endpoint name. Start on a running runtime is a no-op.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.ready(ctx, berr.ErrSubscribeFailed, "start"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return nil
	}

	if r.prefetch > 0 {
		if err := r.Channel.Qos(r.prefetch, 0, false); err != nil {
			return fmt.Errorf("rabbitmq qos: %w", errors.Join(berr.ErrSubscribeFailed, err))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)

	for _, name := range r.order {
		deliveries, err := r.Channel.Consume(name, name, false, false, false, false, nil)
		if err != nil {
			cancel()

			cerr := r.cancelConsumers(r.tags)
			r.tags = nil

			return errors.Join(
				fmt.Errorf("rabbitmq consume %s: %w", name, errors.Join(berr.ErrSubscribeFailed, err)),
				cerr,
			)
		}

		r.tags = append(r.tags, name)
		r.wg.Add(1)

		go r.consume(runCtx, r.endpoints[name], deliveries)
	}

	r.cancel = cancel

	return nil
}

func (r *Runtime) consume(ctx context.Context, ep *dispatch.Endpoint, deliveries <-chan amqp.Delivery) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}

			r.handle(ctx, ep, d)
		}
	}
}

// handle acks on success and dead-letters on failure; redelivery policy belongs to the broker.
func (r *Runtime) handle(ctx context.Context, ep *dispatch.Endpoint, d amqp.Delivery) {
	name := d.Type
	if name == "" {
		name = d.Exchange
	}

	if err := ep.Dispatch(ctx, name, d.Body); err != nil {
		r.logger.ErrorContext(ctx, "delivery failed", "endpoint", ep.Name(), "message", name, "message_id", d.MessageId, "error", err)

		if nerr := d.Nack(false, false); nerr != nil {
			r.logger.ErrorContext(ctx, "nack failed", "endpoint", ep.Name(), "error", nerr)
		}

		return
	}

	if err := d.Ack(false); err != nil {
		r.logger.ErrorContext(ctx, "ack failed", "endpoint", ep.Name(), "error", err)
	}
}

// Close cancels every broker consumer, lets the readers drain what the broker
// already pushed, then waits for them. Close without Start is a no-op.
func (r *Runtime) Close() error {
	r.mu.Lock()
	cancel, tags := r.cancel, r.tags
	r.cancel, r.tags = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}

	err := r.cancelConsumers(tags)
	if err != nil {
		// readers may never see their delivery channels close
		cancel()
	}

	r.wg.Wait()
	cancel()

	return err
}

// cancelConsumers stops broker-side delivery for tags; the client closes each
// delivery channel once the broker confirms.
func (r *Runtime) cancelConsumers(tags []string) error {
	var errs []error

	for _, tag := range tags {
		if err := r.Channel.Cancel(tag, false); err != nil {
			errs = append(errs, fmt.Errorf("rabbitmq cancel %s: %w", tag, err))
		}
	}

	return errors.Join(errs...)
}

// Publish sends msg to the exchange named after its type.
func (r *Runtime) Publish(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions) error {
	if err := r.ready(ctx, berr.ErrPublishFailed, "publish"); err != nil {
		return err
	}

	body, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("rabbitmq publish serialize: %w", err)
	}

	name := codec.MessageName(msg)

	r.mu.Lock()
	err = r.declareExchange(name)
	r.mu.Unlock()

	if err != nil {
		return err
	}

	// copy headers to avoid mutating caller-provided map
	hdrs := make(map[string]string, len(opts.Headers)+4)
	for k, v := range opts.Headers {
		hdrs[k] = v
	}

	r.Propagator.Inject(ctx, hdrs)

	var h amqp.Table
	if len(hdrs) > 0 {
		h = amqp.Table{}
		for k, v := range hdrs {
			h[k] = v
		}
	}

	err = r.Channel.PublishWithContext(ctx, name, opts.Key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Headers:      h,
		ContentType:  codec.ContentType,
		Type:         name,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq publish %s: %w", name, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}
