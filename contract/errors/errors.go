package errors

// Error codes for the bus contracts. Keep stable; used across runtimes, the binder and discovery.
const (
	ErrCodeHandlerExists       = "servicebus.handler_exists"
	ErrCodeHandlerNotFound     = "servicebus.handler_not_found"
	ErrCodeHandlerTypeMismatch = "servicebus.handler_type_mismatch"
	ErrCodeConsumerNotFound    = "servicebus.consumer_not_found"
	ErrCodeAmbiguousConsumer   = "servicebus.ambiguous_consumer"
	ErrCodeChannelExists       = "servicebus.channel_exists"
	ErrCodeSubscribeFailed     = "servicebus.subscribe_failed"
	ErrCodePublishFailed       = "servicebus.publish_failed"
	ErrCodeSerializationFailed = "servicebus.serialization_failed"
	ErrCodeNotConfigured       = "servicebus.not_configured"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerExists       = Code(ErrCodeHandlerExists)
	ErrHandlerNotFound     = Code(ErrCodeHandlerNotFound)
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrConsumerNotFound    = Code(ErrCodeConsumerNotFound)
	ErrAmbiguousConsumer   = Code(ErrCodeAmbiguousConsumer)
	ErrChannelExists       = Code(ErrCodeChannelExists)
	ErrSubscribeFailed     = Code(ErrCodeSubscribeFailed)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrNotConfigured       = Code(ErrCodeNotConfigured)
)
