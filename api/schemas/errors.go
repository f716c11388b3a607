// File: api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
)

// StepErrorKind classifies expected, step-local interaction failures.
type StepErrorKind string

const (
	KindElementNotFound StepErrorKind = "element_not_found"
	KindClickError      StepErrorKind = "click_error"
	KindFillError       StepErrorKind = "fill_error"
	KindCustomError     StepErrorKind = "custom_error"
)

// ErrAdapterFatal marks the browser session as unusable (crashed,
// disconnected). Errors wrapping it always abort the run regardless of the
// step's critical flag.
var ErrAdapterFatal = errors.New("browser session is unusable")

// StepError is an expected interaction failure local to one step. The
// interpreter converts these into failed StepResults; they never propagate to
// the engine as raw errors.
type StepError struct {
	Kind     StepErrorKind
	Selector string
	Cause    error
}

func (e *StepError) Error() string {
	msg := string(e.Kind)
	switch e.Kind {
	case KindElementNotFound:
		msg = fmt.Sprintf("no element matching selector '%s' appeared in time", e.Selector)
	case KindClickError:
		msg = fmt.Sprintf("element '%s' is not clickable", e.Selector)
	case KindFillError:
		msg = fmt.Sprintf("element '%s' does not accept input", e.Selector)
	case KindCustomError:
		msg = "custom step function failed"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *StepError) Unwrap() error { return e.Cause }

// NewElementNotFound reports that no element matched the selector before the
// step's timeout elapsed.
func NewElementNotFound(selector string, cause error) *StepError {
	return &StepError{Kind: KindElementNotFound, Selector: selector, Cause: cause}
}

// NewClickError reports that a resolved element could not be clicked.
func NewClickError(selector string, cause error) *StepError {
	return &StepError{Kind: KindClickError, Selector: selector, Cause: cause}
}

// NewFillError reports that a resolved element rejected text input.
func NewFillError(selector string, cause error) *StepError {
	return &StepError{Kind: KindFillError, Selector: selector, Cause: cause}
}

// NewCustomError wraps a failure raised by a registered custom function.
func NewCustomError(cause error) *StepError {
	return &StepError{Kind: KindCustomError, Cause: cause}
}

// ValidationError reports a malformed step descriptor. It is raised before any
// step executes; a run that fails validation attempts zero steps.
type ValidationError struct {
	StepIndex int
	StepName  string
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.StepName != "" {
		return fmt.Sprintf("invalid step %d (%s): field '%s': %s", e.StepIndex, e.StepName, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid step: field '%s': %s", e.Field, e.Reason)
}

// IsFatal reports whether err indicates the adapter session is beyond
// recovery and the run must abort.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAdapterFatal)
}
