package consumer

import (
	"reflect"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
)

var commandType = reflect.TypeFor[cbus.Command]()

// Classify returns KindCommand when t (or *t) satisfies cbus.Command, KindEvent otherwise.
func Classify(t reflect.Type) cbus.MessageKind {
	if t == nil {
		return cbus.KindEvent
	}

	if t.Implements(commandType) {
		return cbus.KindCommand
	}

	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(commandType) {
		return cbus.KindCommand
	}

	return cbus.KindEvent
}

// ClassifyOf is Classify for a static message type.
func ClassifyOf[M any]() cbus.MessageKind { return Classify(reflect.TypeFor[M]()) }
