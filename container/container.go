// Package container is a small type-keyed dependency-injection container.
// Handlers are registered once at startup and resolved per delivery.
package container

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Container is concurrency-safe and contains no global state.
type Container struct {
	mu        sync.RWMutex
	factories map[reflect.Type]func() any
}

var _ cbus.Container = (*Container)(nil)

// New constructs an empty Container.
func New() *Container {
	return &Container{factories: make(map[reflect.Type]func() any)}
}

// Register makes t resolvable through factory. Duplicate registrations are rejected.
func (c *Container) Register(t reflect.Type, factory func() any) error {
	if t == nil || factory == nil {
		return fmt.Errorf("register %v: %w", t, berr.ErrHandlerTypeMismatch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[t]; exists {
		return fmt.Errorf("register %s: %w", t.String(), berr.ErrHandlerExists)
	}

	c.factories[t] = factory

	return nil
}

// Resolve builds an instance of t.
func (c *Container) Resolve(t reflect.Type) (any, error) {
	c.mu.RLock()
	f, ok := c.factories[t]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("resolve %v: %w", t, berr.ErrHandlerNotFound)
	}

	return f(), nil
}

// Types lists registered types sorted by their string form.
func (c *Container) Types() []reflect.Type {
	c.mu.RLock()
	out := make([]reflect.Type, 0, len(c.factories))
	for t := range c.factories {
		out = append(out, t)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })

	return out
}
