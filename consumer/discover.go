package consumer

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Discover validates every registration in sets and registers its handler type
// with c. A nil container skips registration; a nil logger uses slog.Default.
//
// Interface handler types are skipped. Any other problem is a configuration
// error: all of them are joined and returned so startup fails loudly.
func Discover(c cbus.Container, logger *slog.Logger, sets ...Set) ([]Descriptor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	log := logger.With("component", "consumer.discover")

	var (
		out  []Descriptor
		errs []error
		seen = make(map[reflect.Type]string)
	)

	for _, set := range sets {
		for _, d := range set.Consumers {
			ht := d.HandlerType()
			if ht != nil && ht.Kind() == reflect.Interface {
				log.Warn("skipping abstract consumer", "set", set.Name, "handler", ht.String())
				continue
			}

			if err := validate(d); err != nil {
				errs = append(errs, fmt.Errorf("discover %s: %w", set.Name, err))
				continue
			}

			if prev, dup := seen[ht]; dup {
				errs = append(errs, fmt.Errorf("discover %s: %s already registered by %s: %w",
					set.Name, ht.String(), prev, berr.ErrHandlerExists))

				continue
			}

			seen[ht] = set.Name

			if c != nil {
				if err := c.Register(ht, d.New); err != nil {
					errs = append(errs, fmt.Errorf("discover %s: %w", set.Name, err))
					continue
				}
			}

			log.Debug("consumer discovered", "set", set.Name, "handler", d.HandlerName(), "message", d.MessageName())
			out = append(out, d)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return out, nil
}

func validate(d Descriptor) error {
	mt, err := FindMessageType(d.HandlerType(), Consumes)
	if err != nil {
		return err
	}

	if mt != d.MessageType() {
		return fmt.Errorf("%s consumes %s, registered for %s: %w",
			d.HandlerType().String(), mt.String(), d.MessageType(), berr.ErrHandlerTypeMismatch)
	}

	return nil
}

// Load discovers sets and builds the Registry.
func Load(c cbus.Container, logger *slog.Logger, sets ...Set) (*Registry, error) {
	ds, err := Discover(c, logger, sets...)
	if err != nil {
		return nil, err
	}

	return NewRegistry(ds...)
}
