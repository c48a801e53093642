package inmemory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Channel is a thread-safe in-memory receive endpoint.
type Channel struct {
	name string

	mu    sync.RWMutex
	subs  map[reflect.Type][]cbus.DeliveryFunc
	types []reflect.Type
}

var _ cbus.ChannelConfig = (*Channel)(nil)

func newChannel(name string) *Channel {
	return &Channel{name: name, subs: make(map[reflect.Type][]cbus.DeliveryFunc)}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) Consume(t reflect.Type, fn cbus.DeliveryFunc) error {
	if t == nil || fn == nil {
		return fmt.Errorf("consume on %s: %w", c.name, berr.ErrSubscribeFailed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.subs[t]; !ok {
		c.types = append(c.types, t)
	}

	c.subs[t] = append(c.subs[t], fn)

	return nil
}

// MessageTypes lists subscribed message types in subscription order.
func (c *Channel) MessageTypes() []reflect.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]reflect.Type(nil), c.types...)
}

// Subscribers reports how many funcs consume t on this channel.
func (c *Channel) Subscribers(t reflect.Type) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.subs[t])
}

// Deliver hands msg to every func subscribed to a type with the same message
// name. When the subscribed type differs from the dynamic type of msg the value
// is re-decoded through the codec, as it would be after crossing a broker.
// All errors are aggregated with errors.Join and returned.
func (c *Channel) Deliver(ctx context.Context, msg any) error {
	name := codec.MessageName(msg)

	type target struct {
		t   reflect.Type
		fns []cbus.DeliveryFunc
	}

	var targets []target

	c.mu.RLock()
	for _, t := range c.types {
		if codec.TypeName(t) == name {
			targets = append(targets, target{t: t, fns: append([]cbus.DeliveryFunc(nil), c.subs[t]...)})
		}
	}
	c.mu.RUnlock()

	var errs []error

	for _, tg := range targets {
		v := msg
		if reflect.TypeOf(msg) != tg.t {
			var err error
			if v, err = recode(msg, tg.t); err != nil {
				errs = append(errs, err)
				continue
			}
		}

		for _, fn := range tg.fns {
			if err := fn(ctx, v); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Channel) accepts(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.types {
		if codec.TypeName(t) == name {
			return true
		}
	}

	return false
}

func recode(msg any, t reflect.Type) (any, error) {
	body, err := codec.Marshal(msg)
	if err != nil {
		return nil, err
	}

	return codec.Decode(body, t)
}

// Runtime is a thread-safe in-memory implementation of cbus.Runtime.
// It acts as a broker: Publish fans a message out to every channel subscribed to its type.
type Runtime struct {
	mu       sync.RWMutex
	channels map[string]*Channel
	started  bool
}

// Ensure Runtime implements the runtime and publisher contracts.
var (
	_ cbus.Runtime   = (*Runtime)(nil)
	_ cbus.Publisher = (*Runtime)(nil)
)

// New creates a new in-memory runtime instance.
func New() *Runtime { return &Runtime{channels: make(map[string]*Channel)} }

func (r *Runtime) CreateChannel(name string, configure func(cbus.ChannelConfig) error) error {
	if name == "" {
		return fmt.Errorf("create channel: empty name: %w", berr.ErrSubscribeFailed)
	}

	r.mu.RLock()
	_, exists := r.channels[name]
	r.mu.RUnlock()

	if exists {
		return fmt.Errorf("create channel %s: %w", name, berr.ErrChannelExists)
	}

	ch := newChannel(name)
	if configure != nil {
		if err := configure(ch); err != nil {
			return fmt.Errorf("create channel %s: %w", name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[name]; exists {
		return fmt.Errorf("create channel %s: %w", name, berr.ErrChannelExists)
	}

	r.channels[name] = ch

	return nil
}

// Channels lists channel names sorted alphabetically.
func (r *Runtime) Channels() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.channels))
	for name := range r.channels {
		out = append(out, name)
	}
	r.mu.RUnlock()

	sort.Strings(out)

	return out
}

// Channel returns the channel registered under name.
func (r *Runtime) Channel(name string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]

	return ch, ok
}

func (r *Runtime) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	return nil
}

func (r *Runtime) Close() error {
	r.mu.Lock()
	r.started = false
	r.mu.Unlock()

	return nil
}

// Publish delivers msg synchronously to every channel subscribed to its type,
// in channel name order. Options are ignored.
func (r *Runtime) Publish(ctx context.Context, msg cbus.Message, _ cbus.PublishOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()

	if !started {
		return fmt.Errorf("inmemory publish %T: runtime not started: %w", msg, berr.ErrNotConfigured)
	}

	name := codec.MessageName(msg)

	var errs []error

	for _, n := range r.Channels() {
		ch, _ := r.Channel(n)
		if !ch.accepts(name) {
			continue
		}

		if err := ch.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("deliver %s to %s: %w", name, n, err))
		}
	}

	return errors.Join(errs...)
}
