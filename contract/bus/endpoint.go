package bus

import (
	"context"
	"reflect"
)

// DeliveryFunc receives a decoded message from a channel.
type DeliveryFunc func(ctx context.Context, msg any) error

// ChannelConfig is the configuration handle of a single receive endpoint.
// It is only valid inside the configure callback passed to CreateChannel.
type ChannelConfig interface {
	Name() string

	// Consume subscribes fn to messages of type t arriving on this channel.
	// Several funcs may subscribe to the same type.
	Consume(t reflect.Type, fn DeliveryFunc) error
}

// ChannelFactory creates named receive endpoints on a messaging runtime.
// Library users provide an implementation backed by their broker.
type ChannelFactory interface {
	CreateChannel(name string, configure func(ChannelConfig) error) error
}

// Configurator wires a single handler onto a single channel.
type Configurator interface {
	Configure(d HandlerDescriptor, ch ChannelConfig, c Container) error
}

// ConfiguratorFunc adapts a function to Configurator.
type ConfiguratorFunc func(d HandlerDescriptor, ch ChannelConfig, c Container) error

func (f ConfiguratorFunc) Configure(d HandlerDescriptor, ch ChannelConfig, c Container) error {
	return f(d, ch, c)
}

// Runtime is a ChannelFactory that can also start and stop consumption.
//
// Start must not block; consumption runs until ctx is done or Close is called.
type Runtime interface {
	ChannelFactory
	Start(ctx context.Context) error
	Close() error
}

// Publisher sends a message to whatever channels are subscribed to its type.
type Publisher interface {
	Publish(ctx context.Context, msg Message, opts PublishOptions) error
}
