package bus

// MessageKind tells whether a message is a command or an event.
type MessageKind int

const (
	// KindEvent messages are broadcast to every independent consumer group.
	KindEvent MessageKind = iota
	// KindCommand messages have a single consumer group per message type.
	KindCommand
)

func (k MessageKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}
