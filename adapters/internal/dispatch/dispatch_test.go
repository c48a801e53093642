package dispatch_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-trace/scg-consumer-bus/adapters/internal/dispatch"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

type Shipped struct{ Order string }

type Cancelled struct{ Order string }

func TestEndpoint_DispatchDecodesPerSubscriber(t *testing.T) {
	ep := dispatch.New("test", "shipping")

	var got []string

	record := func(tag string) func(context.Context, any) error {
		return func(_ context.Context, msg any) error {
			got = append(got, tag+":"+msg.(Shipped).Order)
			return nil
		}
	}

	require.NoError(t, ep.Consume(reflect.TypeFor[Shipped](), record("a")))
	require.NoError(t, ep.Consume(reflect.TypeFor[Shipped](), record("b")))
	require.NoError(t, ep.Consume(reflect.TypeFor[Cancelled](), func(context.Context, any) error { return nil }))

	assert.Equal(t, "shipping", ep.Name())
	assert.Equal(t, []string{"Shipped", "Cancelled"}, ep.MessageNames())

	require.NoError(t, ep.Dispatch(t.Context(), "Shipped", []byte(`{"Order":"o-9"}`)))
	assert.Equal(t, []string{"a:o-9", "b:o-9"}, got)
}

func TestEndpoint_DispatchErrors(t *testing.T) {
	ep := dispatch.New("test", "shipping")

	assert.ErrorIs(t, ep.Consume(nil, nil), berr.ErrSubscribeFailed)
	assert.ErrorIs(t, ep.Dispatch(t.Context(), "Shipped", nil), berr.ErrHandlerNotFound)

	boom := errors.New("boom")
	require.NoError(t, ep.Consume(reflect.TypeFor[Shipped](), func(context.Context, any) error { return boom }))

	assert.ErrorIs(t, ep.Dispatch(t.Context(), "Shipped", []byte(`{}`)), boom)
	assert.ErrorIs(t, ep.Dispatch(t.Context(), "Shipped", []byte(`not json`)), berr.ErrSerializationFailed)
}
