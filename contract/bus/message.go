package bus

// Message is any value carried by a channel. Messages are plain structs; the
// runtime decides how they are encoded on the wire.
type Message = any

// Command marks a message that has exactly one logical owner.
// A command is delivered point-to-point to a single consumer group.
//
// The marker is sealed: embed CommandMessage to opt a message type in.
type Command interface {
	isCommand()
}

// CommandMessage is embedded in command structs to satisfy Command.
//
//	type ChargeCommand struct {
//		bus.CommandMessage
//		OrderID string
//	}
type CommandMessage struct{}

func (CommandMessage) isCommand() {}

// Named lets a message or handler choose its own endpoint name instead of the
// name derived from its Go type.
type Named interface {
	TypeName() string
}
