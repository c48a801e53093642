package codec_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/next-trace/scg-consumer-bus/codec"
	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Amount  int    `json:"amount"`
}

type renamed struct{}

func (renamed) TypeName() string { return "billing:renamed" }

type ptrRenamed struct{}

func (*ptrRenamed) TypeName() string { return "billing:ptr-renamed" }

func TestMarshalDecodeRoundTripIntoSubscribedType(t *testing.T) {
	body, err := codec.Marshal(orderPlaced{OrderID: "o-1", Amount: 12})
	require.NoError(t, err)

	v, err := codec.Decode(body, reflect.TypeFor[orderPlaced]())
	require.NoError(t, err)
	assert.Equal(t, orderPlaced{OrderID: "o-1", Amount: 12}, v)

	p, err := codec.Decode(body, reflect.TypeFor[*orderPlaced]())
	require.NoError(t, err)
	assert.Equal(t, &orderPlaced{OrderID: "o-1", Amount: 12}, p)
}

func TestDecodeFailuresCarrySerializationCode(t *testing.T) {
	_, err := codec.Decode([]byte("{not json"), reflect.TypeFor[orderPlaced]())
	require.Error(t, err)
	assert.True(t, errors.Is(err, berr.ErrSerializationFailed))

	_, err = codec.Decode([]byte("{}"), nil)
	assert.True(t, errors.Is(err, berr.ErrSerializationFailed))

	_, err = codec.Marshal(make(chan int))
	assert.True(t, errors.Is(err, berr.ErrSerializationFailed))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "orderPlaced", codec.TypeName(reflect.TypeFor[orderPlaced]()))
	assert.Equal(t, "orderPlaced", codec.TypeName(reflect.TypeFor[**orderPlaced]()))
	assert.Equal(t, "billing:renamed", codec.MessageName(renamed{}))
	assert.Equal(t, "billing:ptr-renamed", codec.MessageName(ptrRenamed{}))
	assert.Equal(t, "map[string]int", codec.MessageName(map[string]int{}))
	assert.Equal(t, "", codec.TypeName(nil))
}
