// Package dispatch holds the receive-endpoint bookkeeping shared by broker
// runtimes: subscriptions keyed by wire message name, decoded per subscriber.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

type subscription struct {
	t  reflect.Type
	fn cbus.DeliveryFunc
}

// Endpoint is a cbus.ChannelConfig that records subscriptions for later dispatch.
// It is not safe for concurrent Consume; runtimes configure it before Start.
type Endpoint struct {
	name  string
	label string
	subs  map[string][]subscription
	names []string
}

var _ cbus.ChannelConfig = (*Endpoint)(nil)

// New returns an empty endpoint. label prefixes error messages.
func New(label, name string) *Endpoint {
	return &Endpoint{name: name, label: label, subs: make(map[string][]subscription)}
}

func (e *Endpoint) Name() string { return e.name }

func (e *Endpoint) Consume(t reflect.Type, fn cbus.DeliveryFunc) error {
	if t == nil || fn == nil {
		return fmt.Errorf("%s consume on %s: %w", e.label, e.name, berr.ErrSubscribeFailed)
	}

	name := codec.TypeName(t)
	if _, ok := e.subs[name]; !ok {
		e.names = append(e.names, name)
	}

	e.subs[name] = append(e.subs[name], subscription{t: t, fn: fn})

	return nil
}

// MessageNames lists consumed wire names in subscription order.
func (e *Endpoint) MessageNames() []string {
	return append([]string(nil), e.names...)
}

// Dispatch decodes body once per subscribed type and invokes every subscriber.
// An unknown message name yields ErrHandlerNotFound.
func (e *Endpoint) Dispatch(ctx context.Context, messageName string, body []byte) error {
	subs := e.subs[messageName]
	if len(subs) == 0 {
		return fmt.Errorf("%s %s: no consumer for %q: %w", e.label, e.name, messageName, berr.ErrHandlerNotFound)
	}

	var errs []error

	for _, s := range subs {
		v, err := codec.Decode(body, s.t)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if err := s.fn(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
