// File: api/schemas/schemas.go
// Canonical data model for flows, steps, and run results. Both the runner and
// the browser adapter depend on this package, never on each other directly.
package schemas

import (
	"time"
)

// StepAction identifies the kind of interaction a step performs.
type StepAction string

const (
	ActionNavigate StepAction = "navigate"
	ActionClick    StepAction = "click"
	ActionFill     StepAction = "fill"
	ActionWait     StepAction = "wait"
	ActionCustom   StepAction = "custom"
)

// DefaultStepTimeout bounds element resolution when a step does not carry its
// own budget.
const DefaultStepTimeout = 40 * time.Second

// KnownActions lists every action the interpreter can dispatch.
var KnownActions = []StepAction{ActionNavigate, ActionClick, ActionFill, ActionWait, ActionCustom}

// Valid reports whether the action is one the interpreter knows how to run.
func (a StepAction) Valid() bool {
	for _, known := range KnownActions {
		if a == known {
			return true
		}
	}
	return false
}

// Step is one fully resolved action in a flow. The flow loader produces Steps
// with defaults applied and credential tokens already substituted; by the time
// a Step reaches the engine it must pass Validate.
type Step struct {
	Name        string        `json:"name" yaml:"name"`
	Action      StepAction    `json:"action" yaml:"action"`
	Selector    string        `json:"selector,omitempty" yaml:"selector,omitempty"`
	URL         string        `json:"url,omitempty" yaml:"url,omitempty"`
	Value       string        `json:"value,omitempty" yaml:"value,omitempty"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	Critical    bool          `json:"critical" yaml:"critical"`
	ArtifactTag string        `json:"artifact_tag,omitempty" yaml:"artifact_tag,omitempty"`
	// Function names a registered custom handler; only set for ActionCustom.
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
}

// Validate enforces the shape invariant: the action determines which of
// selector/url/value are required. Violations surface before any step runs.
func (s *Step) Validate() *ValidationError {
	if s.Name == "" {
		return &ValidationError{Field: "name", Reason: "step name must not be empty"}
	}
	if !s.Action.Valid() {
		return &ValidationError{Field: "action", Reason: "unknown action '" + string(s.Action) + "'"}
	}
	if s.Timeout <= 0 {
		return &ValidationError{Field: "timeout", Reason: "timeout must be positive"}
	}

	switch s.Action {
	case ActionNavigate:
		if s.URL == "" {
			return &ValidationError{Field: "url", Reason: "navigate requires a url"}
		}
		if s.Selector != "" {
			return &ValidationError{Field: "selector", Reason: "navigate does not take a selector"}
		}
	case ActionClick, ActionWait:
		if s.Selector == "" {
			return &ValidationError{Field: "selector", Reason: string(s.Action) + " requires a selector"}
		}
	case ActionFill:
		// An empty value is legal here: credential tokens may resolve to the
		// empty string, and filling with "" clears the field. The flow loader
		// enforces that the value key itself was present.
		if s.Selector == "" {
			return &ValidationError{Field: "selector", Reason: "fill requires a selector"}
		}
	case ActionCustom:
		if s.Function == "" {
			return &ValidationError{Field: "function", Reason: "custom requires a function name"}
		}
	}
	return nil
}

// EffectiveArtifactTag returns the tag under which this step's failure
// artifacts are filed.
func (s *Step) EffectiveArtifactTag() string {
	if s.ArtifactTag != "" {
		return s.ArtifactTag
	}
	return slugify(s.Name)
}

// ProjectConfig carries the per-project target and credentials. Email and
// password may be empty strings but are never "unset" once a flow referencing
// them has been loaded.
type ProjectConfig struct {
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// RunStatus is the overall outcome of a run.
type RunStatus string

const (
	RunPassed RunStatus = "passed"
	RunFailed RunStatus = "failed"
)

// StepResult records the outcome of executing one step.
type StepResult struct {
	StepName    string        `json:"name"`
	Action      StepAction    `json:"action"`
	Status      StepStatus    `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	ArtifactRef string        `json:"artifact_ref,omitempty"`
}

// RunResult is the complete, ordered report of a run. It is the sole contract
// consumers see; expected failure kinds appear here as step errors, never as
// raw stack traces.
type RunResult struct {
	RunID         string       `json:"run_id"`
	Project       string       `json:"project"`
	Status        RunStatus    `json:"status"`
	Steps         []StepResult `json:"steps"`
	AbortedAtStep *int         `json:"aborted_at_step,omitempty"`
	Error         string       `json:"error,omitempty"`
	StartedAt     time.Time    `json:"started_at"`
	EndedAt       time.Time    `json:"ended_at"`
}

// TotalSteps returns the number of steps that were attempted.
func (r *RunResult) TotalSteps() int { return len(r.Steps) }

// PassedSteps counts steps that completed successfully.
func (r *RunResult) PassedSteps() int { return r.countStatus(StepPassed) }

// FailedSteps counts steps that failed.
func (r *RunResult) FailedSteps() int { return r.countStatus(StepFailed) }

func (r *RunResult) countStatus(status StepStatus) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

func slugify(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r == ' ' || r == '_' || r == '-':
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	for len(out) > 0 && out[len(out)-1] == '-' {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "step"
	}
	return string(out)
}
