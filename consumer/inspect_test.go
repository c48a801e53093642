package consumer_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
	"github.com/next-trace/scg-consumer-bus/consumer"
)

type baseHandler struct{}

func (*baseHandler) Consume(context.Context, UserRegisteredEvent) error { return nil }

type subHandler struct{ baseHandler }

type deepHandler struct{ *subHandler }

type notAHandler struct{ Name string }

type wrongSignature struct{}

func (wrongSignature) Consume(msg string) error { return nil }

type ambiguous struct {
	SendWelcomeEmail
	AuditCharge
}

type shadowed struct {
	SendWelcomeEmail
	Consume string
}

type createUser struct{ Name string }

type createUserHandler struct{}

func (createUserHandler) Handle(context.Context, createUser) error { return nil }

func TestFindMessageType_ConcreteTypes(t *testing.T) {
	mt, err := consumer.FindMessageType(reflect.TypeFor[SendWelcomeEmail](), consumer.Consumes)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[UserRegisteredEvent](), mt)

	// pointer receiver is found from both the value and the pointer type
	for _, ht := range []reflect.Type{reflect.TypeFor[ChargeCard](), reflect.TypeFor[*ChargeCard]()} {
		mt, err = consumer.FindMessageType(ht, consumer.Consumes)
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeFor[ChargeCommand](), mt)
	}
}

func TestFindMessageType_EmbeddedSupertype(t *testing.T) {
	for _, ht := range []reflect.Type{reflect.TypeFor[subHandler](), reflect.TypeFor[deepHandler]()} {
		mt, err := consumer.FindMessageType(ht, consumer.Consumes)
		require.NoError(t, err, ht.String())
		assert.Equal(t, reflect.TypeFor[UserRegisteredEvent](), mt)
	}
}

func TestFindMessageType_Interfaces(t *testing.T) {
	mt, err := consumer.FindMessageType(reflect.TypeFor[cbus.Consumer[ChargeCommand]](), consumer.Consumes)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[ChargeCommand](), mt)

	_, err = consumer.FindMessageType(reflect.TypeFor[io.Reader](), consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound), "got %v", err)
}

func TestFindMessageType_NotFoundAndMismatch(t *testing.T) {
	_, err := consumer.FindMessageType(reflect.TypeFor[notAHandler](), consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound), "got %v", err)

	_, err = consumer.FindMessageType(nil, consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound), "got %v", err)

	_, err = consumer.FindMessageType(reflect.TypeFor[wrongSignature](), consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrHandlerTypeMismatch), "got %v", err)

	_, err = consumer.FindMessageType(reflect.TypeFor[shadowed](), consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound), "got %v", err)
}

func TestFindMessageType_AmbiguousEmbedding(t *testing.T) {
	_, err := consumer.FindMessageType(reflect.TypeFor[ambiguous](), consumer.Consumes)
	require.Error(t, err)
	assert.True(t, errors.Is(err, berr.ErrAmbiguousConsumer), "got %v", err)
	assert.Contains(t, err.Error(), "SendWelcomeEmail")
	assert.Contains(t, err.Error(), "AuditCharge")
}

func TestFindMessageType_HandleCapability(t *testing.T) {
	mt, err := consumer.FindMessageType(reflect.TypeFor[createUserHandler](), consumer.Handles)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[createUser](), mt)

	_, err = consumer.FindMessageType(reflect.TypeFor[createUserHandler](), consumer.Consumes)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound))
}
