// File: internal/runner/engine.go
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

// finalSuccessTag labels the artifact bundle captured after a clean run.
const finalSuccessTag = "final-success"

// Collector gathers a diagnostic bundle from the adapter. Capture is
// best-effort by contract: it never returns an error that could mask the
// step failure that triggered it.
type Collector interface {
	Capture(ctx context.Context, adapter schemas.DriverAdapter, tag string) *schemas.ArtifactBundle
}

// Engine walks a flow's steps strictly in order, records per-step results,
// and decides whether a failure ends the run. It owns adapter teardown on
// every exit path.
type Engine struct {
	cfg         config.RunnerConfig
	logger      *zap.Logger
	interpreter *Interpreter
	collector   Collector
	sink        schemas.ArtifactSink
}

// New creates a run engine. Collector and sink may be nil together to disable
// artifact capture entirely (validation-only callers).
func New(
	cfg config.RunnerConfig,
	logger *zap.Logger,
	interpreter *Interpreter,
	collector Collector,
	sink schemas.ArtifactSink,
) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if interpreter == nil {
		return nil, errors.New("interpreter cannot be nil")
	}
	return &Engine{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "engine")),
		interpreter: interpreter,
		collector:   collector,
		sink:        sink,
	}, nil
}

// Run executes the steps against the adapter and returns the run report.
// A non-nil error is returned only for validation failures, in which case
// zero steps were attempted. Failed runs with attempted steps report through
// RunResult alone.
func (e *Engine) Run(ctx context.Context, adapter schemas.DriverAdapter, project schemas.ProjectConfig, steps []schemas.Step) (schemas.RunResult, error) {
	result := schemas.RunResult{
		RunID:     uuid.New().String(),
		Project:   project.Name,
		Status:    schemas.RunPassed,
		Steps:     make([]schemas.StepResult, 0, len(steps)),
		StartedAt: time.Now().UTC(),
	}
	logger := e.logger.With(zap.String("run_id", result.RunID), zap.String("project", project.Name))

	// Fail fast: a malformed descriptor aborts before anything executes.
	if err := validateSteps(steps); err != nil {
		result.Status = schemas.RunFailed
		result.Error = err.Error()
		result.EndedAt = time.Now().UTC()
		logger.Error("Flow validation failed, no steps attempted.", zap.Error(err))
		e.teardown(adapter, logger)
		return result, err
	}

	// Teardown is guaranteed on every exit path, including a panic out of
	// the step loop.
	defer e.teardown(adapter, logger)

	logger.Info("Run started", zap.Int("steps", len(steps)))

	for idx, step := range steps {
		stepResult, fatalErr := e.interpreter.Execute(ctx, adapter, step)

		if stepResult.Status == schemas.StepFailed {
			result.Status = schemas.RunFailed
			// Skip capture when the session itself is gone; there is
			// nothing left to photograph.
			if fatalErr == nil {
				stepResult.ArtifactRef = e.captureArtifacts(ctx, adapter, result.RunID, step.EffectiveArtifactTag()+"-failed", logger)
			}
		}
		result.Steps = append(result.Steps, stepResult)

		if fatalErr != nil {
			abortedAt := idx
			result.AbortedAtStep = &abortedAt
			result.Error = fatalErr.Error()
			logger.Error("Aborting run: browser session is unusable.", zap.Int("step_index", idx), zap.Error(fatalErr))
			break
		}
		if stepResult.Status == schemas.StepFailed && step.Critical {
			abortedAt := idx
			result.AbortedAtStep = &abortedAt
			result.Error = stepResult.Error
			logger.Error("Aborting run: critical step failed.",
				zap.Int("step_index", idx), zap.String("step", step.Name))
			break
		}
	}

	if result.Status == schemas.RunPassed && e.cfg.FinalArtifacts {
		e.captureArtifacts(ctx, adapter, result.RunID, finalSuccessTag, logger)
	}

	result.EndedAt = time.Now().UTC()
	logger.Info("Run finished",
		zap.String("status", string(result.Status)),
		zap.Int("total", result.TotalSteps()),
		zap.Int("passed", result.PassedSteps()),
		zap.Int("failed", result.FailedSteps()))
	return result, nil
}

// captureArtifacts gathers and persists a diagnostic bundle. Capture and
// persistence problems are logged and otherwise swallowed; diagnostics never
// amplify the failure they document.
func (e *Engine) captureArtifacts(ctx context.Context, adapter schemas.DriverAdapter, runID, tag string, logger *zap.Logger) string {
	if e.collector == nil {
		return ""
	}

	bundle := e.collector.Capture(ctx, adapter, tag)
	if bundle == nil {
		return ""
	}
	if e.sink == nil {
		return ""
	}

	ref, err := e.sink.Persist(ctx, runID, bundle)
	if err != nil {
		logger.Warn("Failed to persist artifact bundle.", zap.String("tag", tag), zap.Error(err))
		return ""
	}
	logger.Info("Artifacts persisted.", zap.String("tag", tag), zap.String("ref", ref))
	return ref
}

// teardown closes the adapter session. Session Close is idempotent, so the
// validation path and the deferred path cannot double-close.
func (e *Engine) teardown(adapter schemas.DriverAdapter, logger *zap.Logger) {
	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := adapter.Close(closeCtx); err != nil {
		logger.Warn("Error during adapter teardown.", zap.Error(err))
	}
}

// validateSteps checks every descriptor before execution begins.
func validateSteps(steps []schemas.Step) error {
	if len(steps) == 0 {
		return &schemas.ValidationError{Field: "steps", Reason: "flow contains no steps"}
	}
	for idx := range steps {
		if verr := steps[idx].Validate(); verr != nil {
			verr.StepIndex = idx
			verr.StepName = steps[idx].Name
			return verr
		}
	}
	return nil
}
