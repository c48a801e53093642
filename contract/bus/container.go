package bus

import "reflect"

// Container is the dependency-injection collaborator that builds handler
// instances when a message is dispatched.
type Container interface {
	Register(t reflect.Type, factory func() any) error
	Resolve(t reflect.Type) (any, error)
}
