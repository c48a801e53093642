// Package codec encodes messages for the wire and decodes them back into the
// Go type a channel subscribed to.
package codec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

// ContentType is the content type of every body produced by Marshal.
const ContentType = "application/json"

var namedType = reflect.TypeFor[cbus.Named]()

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, errors.Join(berr.ErrSerializationFailed, err))
	}

	return b, nil
}

// Decode decodes body into a new value of type t and returns it as t.
func Decode(body []byte, t reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("decode: %w", berr.ErrSerializationFailed)
	}

	p := reflect.New(t)
	if err := json.Unmarshal(body, p.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.String(), errors.Join(berr.ErrSerializationFailed, err))
	}

	return p.Elem().Interface(), nil
}

// TypeName returns the endpoint-facing name of t: the value of TypeName() when
// t implements cbus.Named, otherwise the bare Go type name with pointers removed.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}

	if name, ok := ExplicitName(t); ok {
		return name
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	if name == "" { // unnamed (e.g., map/struct literal)
		name = t.String()
	}

	return name
}

// ExplicitName reports the name chosen by a cbus.Named implementation, if any.
func ExplicitName(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() == reflect.Interface {
		return "", false
	}

	switch {
	case t.Implements(namedType):
		return reflect.Zero(t).Interface().(cbus.Named).TypeName(), true //nolint:forcetypeassert // checked above
	case reflect.PointerTo(t).Implements(namedType):
		return reflect.New(t).Interface().(cbus.Named).TypeName(), true //nolint:forcetypeassert // checked above
	}

	return "", false
}

// MessageName is TypeName for the dynamic type of v.
func MessageName(v any) string { return TypeName(reflect.TypeOf(v)) }
