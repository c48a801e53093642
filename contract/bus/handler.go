package bus

import (
	"context"
	"reflect"
)

// Consumer consumes messages of type M.
// Implementations must be safe for concurrent use by multiple goroutines.
type Consumer[M any] interface {
	Consume(ctx context.Context, msg M) error
}

// HandlerDescriptor identifies a concrete handler and the single message type it consumes.
type HandlerDescriptor interface {
	HandlerType() reflect.Type
	MessageType() reflect.Type

	// Invoke calls handler with msg. Both must match the descriptor's types.
	Invoke(ctx context.Context, handler, msg any) error
}
