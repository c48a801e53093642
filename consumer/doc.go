/*
Package consumer discovers message consumers declared by handler packages,
classifies their messages as commands or events, and binds one receive
endpoint per command type and per event handler onto a messaging runtime.

Handler packages export a Set built from typed registrations:

	func Consumers() consumer.Set {
		return consumer.NewSet("billing",
			consumer.Of[ChargeCommand](ChargeCard{}),
			consumer.Func[UserRegistered](NewSendWelcomeEmail),
		)
	}

Startup code then loads a Registry and binds it:

	reg, err := consumer.Load(c, logger, billing.Consumers())
	binder := consumer.NewBinder(reg, c)
	err = binder.BindAll(runtime)

Discovery, registry construction and binding perform no I/O of their own.
*/
package consumer
