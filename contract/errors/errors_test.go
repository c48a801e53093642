package errors_test

import (
	"errors"
	"fmt"
	"testing"

	berr "github.com/next-trace/scg-consumer-bus/contract/errors"
)

func TestCodeAndVars(t *testing.T) {
	e := berr.Code(berr.ErrCodePublishFailed)
	if e.Error() != berr.ErrCodePublishFailed {
		t.Fatalf("unexpected error string: %s", e.Error())
	}

	// exported variables must carry their codes
	tests := []struct {
		err  error
		code string
	}{
		{berr.ErrHandlerExists, berr.ErrCodeHandlerExists},
		{berr.ErrHandlerNotFound, berr.ErrCodeHandlerNotFound},
		{berr.ErrHandlerTypeMismatch, berr.ErrCodeHandlerTypeMismatch},
		{berr.ErrConsumerNotFound, berr.ErrCodeConsumerNotFound},
		{berr.ErrAmbiguousConsumer, berr.ErrCodeAmbiguousConsumer},
		{berr.ErrChannelExists, berr.ErrCodeChannelExists},
		{berr.ErrSubscribeFailed, berr.ErrCodeSubscribeFailed},
		{berr.ErrPublishFailed, berr.ErrCodePublishFailed},
		{berr.ErrSerializationFailed, berr.ErrCodeSerializationFailed},
		{berr.ErrNotConfigured, berr.ErrCodeNotConfigured},
	}

	for _, tc := range tests {
		if !errors.Is(tc.err, berr.Code(tc.code)) {
			t.Fatalf("expected %s to be %s", tc.err, tc.code)
		}
	}
}

func TestWrappedCodeStillMatches(t *testing.T) {
	err := fmt.Errorf("bind endpoint %s: %w", "ChargeCommand", berr.ErrChannelExists)
	if !errors.Is(err, berr.ErrChannelExists) {
		t.Fatalf("wrapped error lost its code: %v", err)
	}
}
