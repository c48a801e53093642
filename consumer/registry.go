package consumer

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// Entry is a registered consumer together with the kind of message it consumes.
type Entry struct {
	Descriptor
	Kind cbus.MessageKind
}

// Registry is an immutable snapshot of discovered consumers keyed by handler type.
// It is safe to share across goroutines without locking.
type Registry struct {
	entries []Entry
	index   map[reflect.Type]int
}

// Builder accumulates descriptors before the Registry is published.
type Builder struct {
	mu      sync.Mutex
	entries map[reflect.Type]Entry
}

// NewBuilder constructs an empty Builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[reflect.Type]Entry)}
}

// Add classifies d and records it. Duplicate handler types are rejected.
func (b *Builder) Add(d Descriptor) error {
	if d.HandlerType() == nil || d.MessageType() == nil {
		return fmt.Errorf("register %s: %w", d.String(), berr.ErrHandlerTypeMismatch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[d.HandlerType()]; exists {
		return fmt.Errorf("register %s: %w", d.HandlerType().String(), berr.ErrHandlerExists)
	}

	b.entries[d.HandlerType()] = Entry{Descriptor: d, Kind: Classify(d.MessageType())}

	return nil
}

// Build returns a snapshot of everything added so far. Later Add calls do not affect it.
func (b *Builder) Build() *Registry {
	b.mu.Lock()
	entries := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, e)
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entryLess(entries[i], entries[j]) })

	index := make(map[reflect.Type]int, len(entries))
	for i, e := range entries {
		index[e.HandlerType()] = i
	}

	return &Registry{entries: entries, index: index}
}

func entryLess(a, b Entry) bool {
	if an, bn := a.HandlerName(), b.HandlerName(); an != bn {
		return an < bn
	}

	return a.HandlerType().String() < b.HandlerType().String()
}

// NewRegistry builds a Registry from ds.
func NewRegistry(ds ...Descriptor) (*Registry, error) {
	b := NewBuilder()
	for _, d := range ds {
		if err := b.Add(d); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

// Len reports the number of registered consumers.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns all entries ordered by handler name.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Lookup finds the entry registered for handler type t.
func (r *Registry) Lookup(t reflect.Type) (Entry, bool) {
	i, ok := r.index[t]
	if !ok {
		return Entry{}, false
	}

	return r.entries[i], true
}

// OfKind returns the entries whose message is of the given kind, ordered by handler name.
func (r *Registry) OfKind(kind cbus.MessageKind) []Entry {
	var out []Entry

	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}
