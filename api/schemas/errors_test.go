// File: api/schemas/errors_test.go
package schemas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepErrorMessages(t *testing.T) {
	cause := errors.New("timed out")

	testCases := []struct {
		name     string
		err      *StepError
		contains string
	}{
		{"element not found", NewElementNotFound("#login", cause), "no element matching selector '#login'"},
		{"click error", NewClickError("#buy", cause), "'#buy' is not clickable"},
		{"fill error", NewFillError("#email", cause), "'#email' does not accept input"},
		{"custom error", NewCustomError(cause), "custom step function failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, tc.err.Error(), tc.contains)
			assert.Contains(t, tc.err.Error(), "timed out")
			assert.Equal(t, cause, errors.Unwrap(tc.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrAdapterFatal))
	assert.True(t, IsFatal(fmt.Errorf("%w: websocket closed", ErrAdapterFatal)))
	assert.False(t, IsFatal(NewClickError("#buy", errors.New("nope"))))
	assert.False(t, IsFatal(errors.New("plain error")))
	assert.False(t, IsFatal(nil))
}

func TestValidationErrorMessage(t *testing.T) {
	verr := &ValidationError{StepIndex: 2, StepName: "fill email", Field: "value", Reason: "fill requires a value"}
	assert.Equal(t, "invalid step 2 (fill email): field 'value': fill requires a value", verr.Error())

	anon := &ValidationError{Field: "steps", Reason: "flow contains no steps"}
	assert.Equal(t, "invalid step: field 'steps': flow contains no steps", anon.Error())
}
