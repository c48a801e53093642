package consumer

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Capability names the method through which a type declares it handles a message.
// A matching method has the shape func(context.Context, M) error.
type Capability string

const (
	// Consumes matches cbus.Consumer[M].
	Consumes Capability = "Consume"
	// Handles matches handler interfaces with a Handle(ctx, M) error method.
	Handles Capability = "Handle"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// FindMessageType returns the message type M that t declares through capability c.
//
// Methods promoted from embedded types count as declared by t. Interfaces only
// match when they declare the capability themselves. When two embedded types at
// the same depth both declare c, Go does not promote either and
// ErrAmbiguousConsumer is returned instead of ErrConsumerNotFound.
func FindMessageType(t reflect.Type, c Capability) (reflect.Type, error) {
	if t == nil {
		return nil, fmt.Errorf("find message type: %w", berr.ErrConsumerNotFound)
	}

	if t.Kind() == reflect.Interface {
		m, ok := t.MethodByName(string(c))
		if !ok {
			return nil, notFound(t, c)
		}

		return messageParam(t, c, m.Type, 0)
	}

	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	// the pointer method set is a superset of the value one
	if m, ok := reflect.PointerTo(base).MethodByName(string(c)); ok {
		return messageParam(t, c, m.Type, 1)
	}

	return nil, embeddedMatches(t, base, c)
}

func messageParam(t reflect.Type, c Capability, ft reflect.Type, recv int) (reflect.Type, error) {
	if ft.NumIn() != recv+2 || ft.In(recv) != contextType || ft.NumOut() != 1 || ft.Out(0) != errorType {
		return nil, fmt.Errorf("find message type %s: %s has signature %s: %w",
			t.String(), c, ft.String(), berr.ErrHandlerTypeMismatch)
	}

	return ft.In(recv + 1), nil
}

func hasCapability(t reflect.Type, c Capability) bool {
	if t.Kind() == reflect.Interface {
		_, ok := t.MethodByName(string(c))
		return ok
	}

	_, ok := reflect.PointerTo(t).MethodByName(string(c))

	return ok
}

// embeddedMatches walks embedded fields breadth-first to explain why c was not promoted.
func embeddedMatches(t, base reflect.Type, c Capability) error {
	seen := map[reflect.Type]bool{base: true}
	level := []reflect.Type{base}

	for len(level) > 0 {
		var (
			next  []reflect.Type
			found []string
		)

		for _, lt := range level {
			if lt.Kind() != reflect.Struct {
				continue
			}

			for i := range lt.NumField() {
				f := lt.Field(i)
				if !f.Anonymous {
					continue
				}

				ft := f.Type
				for ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}

				if seen[ft] {
					continue
				}

				seen[ft] = true

				if hasCapability(ft, c) {
					found = append(found, ft.String())
					continue
				}

				next = append(next, ft)
			}
		}

		switch {
		case len(found) > 1:
			return fmt.Errorf("find message type %s: %s declared by %s: %w",
				t.String(), c, strings.Join(found, ", "), berr.ErrAmbiguousConsumer)
		case len(found) == 1:
			// shadowed by a shallower field or method
			return notFound(t, c)
		}

		level = next
	}

	return notFound(t, c)
}

func notFound(t reflect.Type, c Capability) error {
	return fmt.Errorf("find message type %s: no %s method: %w", t.String(), c, berr.ErrConsumerNotFound)
}
