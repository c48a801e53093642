package consumer_test

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
	"github.com/next-trace/scg-consumer-bus/consumer"
	"github.com/next-trace/scg-consumer-bus/container"
)

func TestDiscover_RegistersWithContainer(t *testing.T) {
	c := container.New()
	builds := 0

	set := consumer.NewSet("billing",
		consumer.Of[UserRegisteredEvent](SendWelcomeEmail{}),
		consumer.Func[ChargeCommand](func() *ChargeCard { builds++; return &ChargeCard{} }),
	)

	ds, err := consumer.Discover(c, nil, set)
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Len(t, c.Types(), 2)

	h, err := c.Resolve(reflect.TypeFor[*ChargeCard]())
	require.NoError(t, err)
	require.NoError(t, ds[1].Invoke(t.Context(), h, ChargeCommand{OrderID: "o-1"}))
	assert.Equal(t, []string{"o-1"}, h.(*ChargeCard).charged)
	assert.Equal(t, 1, builds)
}

func TestDiscover_SkipsAbstractConsumers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	set := consumer.NewSet("abstract",
		consumer.Func[ChargeCommand](func() cbus.Consumer[ChargeCommand] { return &ChargeCard{} }),
		consumer.Of[UserRegisteredEvent](GrantTrial{}),
	)

	ds, err := consumer.Discover(nil, logger, set)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "GrantTrial", ds[0].HandlerName())

	assert.Contains(t, buf.String(), "skipping abstract consumer")
	assert.Contains(t, buf.String(), "component=consumer.discover")
	assert.Contains(t, buf.String(), "set=abstract")
}

func TestDiscover_FailsLoudlyAndJoinsErrors(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Register(reflect.TypeFor[GrantTrial](), func() any { return GrantTrial{} }))

	a := consumer.NewSet("a", consumer.Of[UserRegisteredEvent](SendWelcomeEmail{}))
	b := consumer.NewSet("b",
		consumer.Of[UserRegisteredEvent](SendWelcomeEmail{}),
		consumer.Of[UserRegisteredEvent](GrantTrial{}),
		consumer.Of[UserRegisteredEvent](nil),
	)

	ds, err := consumer.Discover(c, nil, a, b)
	assert.Nil(t, ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, berr.ErrHandlerExists), "got %v", err)
	assert.True(t, errors.Is(err, berr.ErrConsumerNotFound), "got %v", err)
	assert.Contains(t, err.Error(), "already registered by a")
}

func TestLoad_BuildsRegistry(t *testing.T) {
	reg, err := consumer.Load(container.New(), nil,
		consumer.NewSet("users", consumer.Of[UserRegisteredEvent](SendWelcomeEmail{})),
		consumer.NewSet("billing", consumer.Of[ChargeCommand](&ChargeCard{})),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}
