package consumer

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/next-trace/scg-consumer-bus/codec"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Naming derives an endpoint name from a Go type.
// Types implementing cbus.Named keep their explicit name under every strategy.
type Naming func(t reflect.Type) string

var (
	// TypeNaming uses the bare Go type name, e.g. "ChargeCommand".
	TypeNaming Naming = codec.TypeName
	// KebabNaming lowercases and dashes the type name, e.g. "charge-command".
	KebabNaming Naming = transformed(strcase.ToKebab)
	// SnakeNaming lowercases and underscores the type name, e.g. "charge_command".
	SnakeNaming Naming = transformed(strcase.ToSnake)
)

func transformed(fn func(string) string) Naming {
	return func(t reflect.Type) string {
		if name, ok := codec.ExplicitName(t); ok {
			return name
		}

		return fn(codec.TypeName(t))
	}
}

// NamingFor maps a configuration value to a Naming strategy.
func NamingFor(strategy string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "type":
		return TypeNaming, nil
	case "kebab":
		return KebabNaming, nil
	case "snake":
		return SnakeNaming, nil
	default:
		return nil, fmt.Errorf("endpoint naming %q: %w", strategy, berr.ErrNotConfigured)
	}
}
