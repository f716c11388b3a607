// File: internal/runner/interpreter.go
package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
)

// Interpreter executes one step at a time against a driver adapter. Expected
// interaction failures are converted into failed StepResults here; only
// adapter-fatal errors propagate to the engine.
type Interpreter struct {
	logger   *zap.Logger
	registry *Registry
}

// NewInterpreter creates a step interpreter. The registry may be nil when the
// flow contains no custom steps.
func NewInterpreter(logger *zap.Logger, registry *Registry) *Interpreter {
	return &Interpreter{
		logger:   logger.With(zap.String("component", "interpreter")),
		registry: registry,
	}
}

// Execute runs a single validated step. The returned error is non-nil only
// when the adapter session is unusable; every other failure is recorded on
// the StepResult.
func (i *Interpreter) Execute(ctx context.Context, adapter schemas.DriverAdapter, step schemas.Step) (schemas.StepResult, error) {
	result := schemas.StepResult{
		StepName: step.Name,
		Action:   step.Action,
		Status:   schemas.StepPassed,
	}

	i.logger.Info("Executing step",
		zap.String("step", step.Name),
		zap.String("action", string(step.Action)),
		zap.Duration("timeout", step.Timeout))

	start := time.Now()
	err := i.dispatch(ctx, adapter, step)
	result.Duration = time.Since(start)

	if err == nil {
		i.logger.Info("Step completed", zap.String("step", step.Name), zap.Duration("duration", result.Duration))
		return result, nil
	}

	result.Status = schemas.StepFailed
	result.Error = err.Error()
	i.logger.Error("Step failed",
		zap.String("step", step.Name),
		zap.Duration("duration", result.Duration),
		zap.Error(err))

	if schemas.IsFatal(err) {
		return result, err
	}
	return result, nil
}

// dispatch routes the step to the adapter call its action requires. The
// switch is exhaustive over schemas.KnownActions; validation upstream
// guarantees no other value reaches here.
func (i *Interpreter) dispatch(ctx context.Context, adapter schemas.DriverAdapter, step schemas.Step) (err error) {
	// A panicking custom function must fail its step, not kill the run loop.
	defer func() {
		if r := recover(); r != nil {
			err = schemas.NewCustomError(fmt.Errorf("panic in step handler: %v", r))
		}
	}()

	switch step.Action {
	case schemas.ActionNavigate:
		return adapter.Navigate(ctx, step.URL)
	case schemas.ActionClick:
		return adapter.Click(ctx, step.Selector, step.Timeout)
	case schemas.ActionFill:
		return adapter.Fill(ctx, step.Selector, step.Value, step.Timeout)
	case schemas.ActionWait:
		return adapter.WaitFor(ctx, step.Selector, step.Timeout)
	case schemas.ActionCustom:
		return i.runCustom(ctx, adapter, step)
	default:
		return fmt.Errorf("no handler for action '%s'", step.Action)
	}
}

// runCustom resolves and invokes a registered custom function. A missing
// registration fails at run time with a validation-style message; the flow
// was parseable, but the binding does not exist in this process.
func (i *Interpreter) runCustom(ctx context.Context, adapter schemas.DriverAdapter, step schemas.Step) error {
	if i.registry == nil {
		return schemas.NewCustomError(fmt.Errorf("custom function '%s' is not registered (no registry configured)", step.Function))
	}
	fn, ok := i.registry.Lookup(step.Function)
	if !ok {
		return schemas.NewCustomError(fmt.Errorf("custom function '%s' is not registered", step.Function))
	}

	customCtx, cancel := context.WithTimeout(ctx, step.Timeout)
	defer cancel()

	if err := fn(customCtx, adapter); err != nil {
		if schemas.IsFatal(err) {
			return err
		}
		return schemas.NewCustomError(err)
	}
	return nil
}
