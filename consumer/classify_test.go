package consumer_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	cbus "github.com/next-trace/scg-consumer-bus/contract/bus"
	"github.com/next-trace/scg-consumer-bus/consumer"
)

type ptrCommand struct{ *cbus.CommandMessage }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		t    reflect.Type
		want cbus.MessageKind
	}{
		{"command value", reflect.TypeFor[ChargeCommand](), cbus.KindCommand},
		{"command pointer", reflect.TypeFor[*ChargeCommand](), cbus.KindCommand},
		{"command via embedded pointer", reflect.TypeFor[ptrCommand](), cbus.KindCommand},
		{"marker interface", reflect.TypeFor[cbus.Command](), cbus.KindCommand},
		{"event", reflect.TypeFor[UserRegisteredEvent](), cbus.KindEvent},
		{"event pointer", reflect.TypeFor[*UserRegisteredEvent](), cbus.KindEvent},
		{"builtin", reflect.TypeFor[string](), cbus.KindEvent},
		{"any", reflect.TypeFor[any](), cbus.KindEvent},
		{"nil", nil, cbus.KindEvent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, consumer.Classify(tc.t))
			// deterministic
			assert.Equal(t, consumer.Classify(tc.t), consumer.Classify(tc.t))
		})
	}

	assert.Equal(t, cbus.KindCommand, consumer.ClassifyOf[ChargeCommand]())
	assert.Equal(t, cbus.KindEvent, consumer.ClassifyOf[UserRegisteredEvent]())
}
