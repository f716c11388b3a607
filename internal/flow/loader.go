// File: internal/flow/loader.go
// Flow files describe a project and its ordered steps in JSON or YAML. The
// loader resolves every default, injects credentials from the environment,
// and validates each step, so the engine only ever sees runnable flows.
package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Credential tokens replaced in fill values at load time. Flow files stay
// committable; secrets arrive through the environment.
const (
	tokenEmail    = "$EMAIL"
	tokenPassword = "$PASSWORD"
)

// Flow is a fully resolved flow: project settings plus validated steps.
type Flow struct {
	Project schemas.ProjectConfig
	Steps   []schemas.Step
}

// fileDocument is the on-disk shape. Current files use `project`/`steps`;
// `project_config` and the uppercase PROJECT_CONFIG/TEST_STEPS keys from older
// flow files are still accepted.
type fileDocument struct {
	Project       *fileProject `json:"project" yaml:"project"`
	ProjectConfig *fileProject `json:"project_config" yaml:"project_config"`
	Steps         []fileStep   `json:"steps" yaml:"steps"`
	LegacyProject *fileProject `json:"PROJECT_CONFIG" yaml:"PROJECT_CONFIG"`
	LegacySteps   []fileStep   `json:"TEST_STEPS" yaml:"TEST_STEPS"`
}

type fileProject struct {
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url" yaml:"url"`
	Email     string `json:"email" yaml:"email"`
	Password  string `json:"password" yaml:"password"`
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// fileStep mirrors a step on disk: timeouts are plain seconds and critical
// defaults to true when omitted. Value is a pointer so an omitted key is
// distinguishable from a token that resolves to the empty string.
type fileStep struct {
	Name        string   `json:"name" yaml:"name"`
	Action      string   `json:"action" yaml:"action"`
	Selector    string   `json:"selector" yaml:"selector"`
	URL         string   `json:"url" yaml:"url"`
	Value       *string  `json:"value" yaml:"value"`
	TimeoutSecs *float64 `json:"timeout" yaml:"timeout"`
	Critical    *bool    `json:"critical" yaml:"critical"`
	ArtifactTag string   `json:"artifact_tag" yaml:"artifact_tag"`
	Function    string   `json:"function" yaml:"function"`
}

// Loader parses flow files into runnable flows.
type Loader struct {
	defaultTimeout time.Duration
	// lookupEnv is swappable for tests; defaults to os.LookupEnv.
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a flow loader. defaultTimeout applies to steps that do
// not carry their own budget.
func NewLoader(defaultTimeout time.Duration) *Loader {
	if defaultTimeout <= 0 {
		defaultTimeout = schemas.DefaultStepTimeout
	}
	return &Loader{
		defaultTimeout: defaultTimeout,
		lookupEnv:      os.LookupEnv,
	}
}

// Load reads, resolves, and validates the flow at path. projectName overrides
// the file's project name when non-empty; it also selects the environment
// prefix for credential injection.
func (l *Loader) Load(path, projectName string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file '%s': %w", path, err)
	}

	var doc fileDocument
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse flow file '%s': %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse flow file '%s': %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported flow file extension '%s' (want .json, .yaml, or .yml)", ext)
	}

	return l.resolve(&doc, projectName)
}

// resolve applies defaults, environment credentials, and token substitution,
// then validates every step.
func (l *Loader) resolve(doc *fileDocument, projectName string) (*Flow, error) {
	fp := doc.Project
	if fp == nil {
		fp = doc.ProjectConfig
	}
	if fp == nil {
		fp = doc.LegacyProject
	}
	if fp == nil {
		fp = &fileProject{}
	}
	fileSteps := doc.Steps
	if len(fileSteps) == 0 {
		fileSteps = doc.LegacySteps
	}

	project := schemas.ProjectConfig{
		Name:      fp.Name,
		URL:       fp.URL,
		Email:     fp.Email,
		Password:  fp.Password,
		UserAgent: fp.UserAgent,
	}
	if projectName != "" {
		project.Name = projectName
	}
	if project.Name == "" {
		return nil, fmt.Errorf("flow does not name a project and no project override was given")
	}

	l.injectEnvironment(&project)
	if project.UserAgent == "" {
		project.UserAgent = config.DefaultUserAgent
	}

	if len(fileSteps) == 0 {
		return nil, fmt.Errorf("flow for project '%s' contains no steps", project.Name)
	}

	steps := make([]schemas.Step, 0, len(fileSteps))
	for idx, fs := range fileSteps {
		step := schemas.Step{
			Name:        fs.Name,
			Action:      schemas.StepAction(strings.ToLower(strings.TrimSpace(fs.Action))),
			Selector:    fs.Selector,
			URL:         fs.URL,
			Timeout:     l.defaultTimeout,
			Critical:    true,
			ArtifactTag: fs.ArtifactTag,
			Function:    fs.Function,
		}
		if fs.Value != nil {
			step.Value = substituteTokens(*fs.Value, &project)
		}
		if fs.TimeoutSecs != nil {
			step.Timeout = time.Duration(*fs.TimeoutSecs * float64(time.Second))
		}
		if fs.Critical != nil {
			step.Critical = *fs.Critical
		}

		// The value key must be present for fill, but a token resolving to ""
		// is a runnable step that clears the field.
		if step.Action == schemas.ActionFill && fs.Value == nil {
			return nil, &schemas.ValidationError{
				StepIndex: idx,
				StepName:  step.Name,
				Field:     "value",
				Reason:    "fill requires a value",
			}
		}

		if verr := step.Validate(); verr != nil {
			verr.StepIndex = idx
			verr.StepName = step.Name
			return nil, verr
		}
		steps = append(steps, step)
	}

	return &Flow{Project: project, Steps: steps}, nil
}

// injectEnvironment overlays credentials from <PREFIX>_EMAIL, <PREFIX>_PASSWORD,
// and <PREFIX>_USER_AGENT, where PREFIX is the uppercased project name.
// Environment values win over file values so checked-in flows never need to
// carry real credentials.
func (l *Loader) injectEnvironment(project *schemas.ProjectConfig) {
	prefix := EnvPrefix(project.Name)
	if v, ok := l.lookupEnv(prefix + "_EMAIL"); ok {
		project.Email = v
	}
	if v, ok := l.lookupEnv(prefix + "_PASSWORD"); ok {
		project.Password = v
	}
	if v, ok := l.lookupEnv(prefix + "_USER_AGENT"); ok {
		project.UserAgent = v
	}
}

// EnvPrefix derives the environment variable prefix for a project name:
// uppercased, with spaces and dashes folded to underscores.
func EnvPrefix(projectName string) string {
	prefix := strings.ToUpper(strings.TrimSpace(projectName))
	prefix = strings.NewReplacer(" ", "_", "-", "_").Replace(prefix)
	return prefix
}

// substituteTokens replaces credential placeholders in a fill value.
func substituteTokens(value string, project *schemas.ProjectConfig) string {
	if value == "" {
		return value
	}
	value = strings.ReplaceAll(value, tokenEmail, project.Email)
	value = strings.ReplaceAll(value, tokenPassword, project.Password)
	return value
}
