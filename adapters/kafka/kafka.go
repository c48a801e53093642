package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/next-trace/scg-consumer-bus/adapters/internal/dispatch"
	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

const (
	// HeaderMessageType carries the wire message name when it differs from the topic.
	HeaderMessageType = "message-type"
	HeaderMessageID   = "message-id"
)

const pollBackoff = time.Second

// Record is a consumed Kafka record.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Writer is a minimal Kafka-like writer interface.
// Users can adapt segmentio/kafka-go or any other client to this.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Group is a consumer-group member subscribed to a fixed set of topics.
type Group interface {
	// Poll blocks until records are available or ctx is done. It may return
	// records together with a non-nil error for partially failed fetches.
	Poll(ctx context.Context) ([]Record, error)
	// Commit marks everything returned by Poll so far as consumed.
	Commit(ctx context.Context) error
	Close()
}

// GroupFactory joins the consumer group named group on topics.
type GroupFactory func(group string, topics []string) (Group, error)

// Runtime implements cbus.Runtime on Kafka. Every channel is a consumer group;
// every consumed message type is a topic of the same name.
type Runtime struct {
	Writer     Writer
	Propagator cbus.HeaderPropagator // defaults to cbus.NopHeaderPropagator

	newGroup GroupFactory
	logger   *slog.Logger

	mu        sync.Mutex
	endpoints map[string]*dispatch.Endpoint
	order     []string
	groups    []Group
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var (
	_ cbus.Runtime   = (*Runtime)(nil)
	_ cbus.Publisher = (*Runtime)(nil)
)

// Option configures a Runtime instance.
type Option func(*Runtime)

// WithLogger sets the logger used for delivery and poll failures.
func WithLogger(l *slog.Logger) Option { return func(r *Runtime) { r.logger = l } }

// WithPropagator configures a HeaderPropagator for context propagation.
func WithPropagator(p cbus.HeaderPropagator) Option {
	return func(r *Runtime) {
		if p != nil {
			r.Propagator = p
		}
	}
}

// New creates a Kafka runtime. Either argument may be nil when the runtime
// is only used to publish or only used to consume.
func New(w Writer, groups GroupFactory, opts ...Option) *Runtime {
	r := &Runtime{Writer: w, newGroup: groups, endpoints: make(map[string]*dispatch.Endpoint)}
	for _, o := range opts {
		o(r)
	}

	if r.Propagator == nil {
		r.Propagator = cbus.NopHeaderPropagator{}
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.logger = r.logger.With("component", "kafka")

	return r
}

func (r *Runtime) CreateChannel(name string, configure func(cbus.ChannelConfig) error) error {
	if r.newGroup == nil {
		return fmt.Errorf("kafka create channel %s: %w", name, errors.Join(berr.ErrSubscribeFailed, berr.ErrNotConfigured))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.endpoints[name]; exists {
		return fmt.Errorf("kafka create channel %s: %w", name, berr.ErrChannelExists)
	}

	ep := dispatch.New("kafka", name)
	if configure != nil {
		if err := configure(ep); err != nil {
			return fmt.Errorf("kafka create channel %s: %w", name, err)
		}
	}

	r.endpoints[name] = ep
	r.order = append(r.order, name)

	return nil
}

// Start joins one consumer group per channel and polls each in its own goroutine.
func (r *Runtime) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	for _, name := range r.order {
		ep := r.endpoints[name]

		topics := ep.MessageNames()
		if len(topics) == 0 {
			continue
		}

		g, err := r.newGroup(name, topics)
		if err != nil {
			cancel()

			return fmt.Errorf("kafka join group %s: %w", name, errors.Join(berr.ErrSubscribeFailed, err))
		}

		r.groups = append(r.groups, g)
		r.wg.Add(1)

		go r.poll(runCtx, ep, g)
	}

	r.cancel = cancel

	return nil
}

func (r *Runtime) poll(ctx context.Context, ep *dispatch.Endpoint, g Group) {
	defer r.wg.Done()

	for ctx.Err() == nil {
		recs, err := g.Poll(ctx)
		if ctx.Err() != nil {
			return
		}

		for _, rec := range recs {
			name := rec.Topic
			if h := rec.Headers[HeaderMessageType]; h != "" {
				name = h
			}

			if derr := ep.Dispatch(ctx, name, rec.Value); derr != nil {
				r.logger.ErrorContext(ctx, "delivery failed", "endpoint", ep.Name(), "topic", rec.Topic, "error", derr)
			}
		}

		if len(recs) > 0 {
			if cerr := g.Commit(ctx); cerr != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "commit failed", "endpoint", ep.Name(), "error", cerr)
			}
		}

		if err != nil {
			r.logger.WarnContext(ctx, "poll failed", "endpoint", ep.Name(), "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(pollBackoff):
			}
		}
	}
}

// Close stops polling, waits for in-flight records and leaves every group.
func (r *Runtime) Close() error {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	groups := r.groups
	r.groups = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	r.wg.Wait()

	for _, g := range groups {
		g.Close()
	}

	return nil
}

// Publish writes msg to the topic named after its type. opts.Key becomes the record key.
func (r *Runtime) Publish(ctx context.Context, msg cbus.Message, opts cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.Writer == nil {
		return fmt.Errorf("kafka publish: %w", errors.Join(berr.ErrPublishFailed, berr.ErrNotConfigured))
	}

	val, err := codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("kafka publish serialize: %w", err)
	}

	topic := codec.MessageName(msg)

	headers := make(map[string]string, len(opts.Headers)+3)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	headers[HeaderMessageType] = topic
	headers[HeaderMessageID] = uuid.NewString()
	r.Propagator.Inject(ctx, headers)

	var key []byte
	if opts.Key != "" {
		key = []byte(opts.Key)
	}

	if err = r.Writer.Write(ctx, topic, key, val, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish to %q: %w", topic, errors.Join(berr.ErrPublishFailed, err))
	}

	return nil
}
