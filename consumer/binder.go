package consumer

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/next-trace/scg-consumer-bus/codec"
	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
)

// Binding is one named receive endpoint and the handlers it delivers to.
type Binding struct {
	Name        string
	Kind        cbus.MessageKind
	MessageType reflect.Type
	Handlers    []Descriptor
}

// HandlerNames lists the bound handler names in binding order.
func (b Binding) HandlerNames() []string {
	out := make([]string, len(b.Handlers))
	for i, d := range b.Handlers {
		out[i] = d.HandlerName()
	}

	return out
}

// Binder maps a Registry onto receive endpoints of a ChannelFactory.
//
// Event consumers get one endpoint each, named after the handler, so every
// handler forms its own consumer group and sees every event. Command
// consumers share one endpoint per command type, named after the message.
type Binder struct {
	registry     *Registry
	container    cbus.Container
	configurator cbus.Configurator
	naming       Naming
	prefix       string
	logger       *slog.Logger
}

// BinderOption configures a Binder instance.
type BinderOption func(*Binder)

// WithConfigurator replaces the default DispatchConfigurator.
func WithConfigurator(c cbus.Configurator) BinderOption {
	return func(b *Binder) { b.configurator = c }
}

// WithNaming sets the endpoint naming strategy.
func WithNaming(n Naming) BinderOption {
	return func(b *Binder) { b.naming = n }
}

// WithPrefix prepends prefix to every endpoint name.
func WithPrefix(prefix string) BinderOption {
	return func(b *Binder) { b.prefix = prefix }
}

// WithLogger sets the logger used to report bound endpoints.
func WithLogger(l *slog.Logger) BinderOption {
	return func(b *Binder) { b.logger = l }
}

// NewBinder constructs a Binder over reg. Handlers are resolved from c.
func NewBinder(reg *Registry, c cbus.Container, opts ...BinderOption) *Binder {
	b := &Binder{
		registry:     reg,
		container:    c,
		configurator: DispatchConfigurator{},
		naming:       TypeNaming,
	}

	for _, o := range opts {
		o(b)
	}

	if b.naming == nil {
		b.naming = TypeNaming
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	b.logger = b.logger.With("component", "consumer.binder")

	return b
}

// Plan returns the endpoints BindEventEndpoints or BindCommandEndpoints would
// create for kind, sorted by name.
func (b *Binder) Plan(kind cbus.MessageKind) []Binding {
	entries := b.registry.OfKind(kind)

	var plan []Binding

	switch kind {
	case cbus.KindCommand:
		byMessage := make(map[reflect.Type]int)

		for _, e := range entries {
			i, ok := byMessage[e.MessageType()]
			if !ok {
				i = len(plan)
				byMessage[e.MessageType()] = i
				plan = append(plan, Binding{
					Name:        b.prefix + b.naming(e.MessageType()),
					Kind:        kind,
					MessageType: e.MessageType(),
				})
			}

			plan[i].Handlers = append(plan[i].Handlers, e.Descriptor)
		}
	default:
		for _, e := range entries {
			plan = append(plan, Binding{
				Name:        b.prefix + b.naming(e.HandlerType()),
				Kind:        kind,
				MessageType: e.MessageType(),
				Handlers:    []Descriptor{e.Descriptor},
			})
		}
	}

	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].Name != plan[j].Name {
			return plan[i].Name < plan[j].Name
		}

		return plan[i].MessageType.String() < plan[j].MessageType.String()
	})

	return plan
}

// BindEventEndpoints creates one endpoint per event handler.
func (b *Binder) BindEventEndpoints(f cbus.ChannelFactory) error {
	return b.bind(f, b.Plan(cbus.KindEvent))
}

// BindCommandEndpoints creates one endpoint per command type.
func (b *Binder) BindCommandEndpoints(f cbus.ChannelFactory) error {
	return b.bind(f, b.Plan(cbus.KindCommand))
}

// BindAll binds event endpoints, then command endpoints.
func (b *Binder) BindAll(f cbus.ChannelFactory) error {
	if err := b.BindEventEndpoints(f); err != nil {
		return err
	}

	return b.BindCommandEndpoints(f)
}

// bind stops at the first factory error; failures belong to the runtime.
func (b *Binder) bind(f cbus.ChannelFactory, plan []Binding) error {
	for _, bd := range plan {
		err := f.CreateChannel(bd.Name, func(ch cbus.ChannelConfig) error {
			for _, d := range bd.Handlers {
				if err := b.configurator.Configure(d, ch, b.container); err != nil {
					return fmt.Errorf("configure %s: %w", d.String(), err)
				}
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("bind %s endpoint %s: %w", bd.Kind, bd.Name, err)
		}

		b.logger.Info("endpoint bound",
			"endpoint", bd.Name,
			"kind", bd.Kind.String(),
			"message", codec.TypeName(bd.MessageType),
			"handlers", bd.HandlerNames(),
		)
	}

	return nil
}
