package bus

import "context"

// HeaderPropagator writes trace context from ctx into outgoing message headers.
// Runtimes call Inject on every Publish, so implementations must be safe for
// concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator leaves headers untouched. Runtimes use it when no
// propagator is configured.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(context.Context, map[string]string) {}
