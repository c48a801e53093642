package consumer

import (
	"context"
	"fmt"
	"reflect"

	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Descriptor is a HandlerDescriptor captured at a typed registration site.
type Descriptor struct {
	handlerType reflect.Type
	messageType reflect.Type
	factory     func() any
	invoke      func(ctx context.Context, h, msg any) error
}

var _ cbus.HandlerDescriptor = Descriptor{}

// Of registers h as the consumer of M. The same instance serves every delivery.
func Of[M any](h cbus.Consumer[M]) Descriptor {
	return Descriptor{
		handlerType: reflect.TypeOf(h),
		messageType: reflect.TypeFor[M](),
		factory:     func() any { return h },
		invoke:      invoker[M](),
	}
}

// Func registers a constructor for a consumer of M. The constructor runs once
// per delivery, so handlers may keep per-message state.
//
//	consumer.Func[ChargeCommand](NewChargeCard)
func Func[M any, H cbus.Consumer[M]](fn func() H) Descriptor {
	return Descriptor{
		handlerType: reflect.TypeFor[H](),
		messageType: reflect.TypeFor[M](),
		factory:     func() any { return fn() },
		invoke:      invoker[M](),
	}
}

func invoker[M any]() func(ctx context.Context, h, msg any) error {
	return func(ctx context.Context, h, msg any) error {
		c, ok := h.(cbus.Consumer[M])
		if !ok {
			return fmt.Errorf("invoke %T: %w", h, berr.ErrHandlerTypeMismatch)
		}

		m, ok := msg.(M)
		if !ok {
			return fmt.Errorf("invoke %T with %T: %w", h, msg, berr.ErrHandlerTypeMismatch)
		}

		return c.Consume(ctx, m)
	}
}

func (d Descriptor) HandlerType() reflect.Type { return d.handlerType }

func (d Descriptor) MessageType() reflect.Type { return d.messageType }

// New builds a handler instance using the registered factory.
func (d Descriptor) New() any {
	if d.factory == nil {
		return nil
	}

	return d.factory()
}

func (d Descriptor) Invoke(ctx context.Context, handler, msg any) error {
	if d.invoke == nil {
		return fmt.Errorf("invoke %s: %w", d.String(), berr.ErrHandlerTypeMismatch)
	}

	return d.invoke(ctx, handler, msg)
}

// HandlerName is the bare name of the handler type.
func (d Descriptor) HandlerName() string { return codec.TypeName(d.handlerType) }

// MessageName is the bare name of the message type.
func (d Descriptor) MessageName() string { return codec.TypeName(d.messageType) }

func (d Descriptor) String() string {
	return d.HandlerName() + "(" + d.MessageName() + ")"
}

// Set is the statically-known list of consumers a package exports.
type Set struct {
	Name      string
	Consumers []Descriptor
}

// NewSet groups descriptors under name. The name only appears in logs and errors.
func NewSet(name string, ds ...Descriptor) Set {
	return Set{Name: name, Consumers: ds}
}
