// File: internal/artifacts/sink.go
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
	// runDirTimeLayout prefixes run directories so a plain directory listing
	// sorts chronologically.
	runDirTimeLayout = "20060102-150405"
)

// FSSink persists artifact bundles and run summaries under a per-run
// directory on the local filesystem. It implements schemas.ArtifactSink.
type FSSink struct {
	logger *zap.Logger
	cfg    config.ArtifactsConfig

	mu      sync.Mutex
	runDirs map[string]string
}

var _ schemas.ArtifactSink = (*FSSink)(nil)

// NewFSSink creates a filesystem sink rooted at cfg.Dir, creating the root if
// needed.
func NewFSSink(cfg config.ArtifactsConfig, logger *zap.Logger) (*FSSink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("artifacts directory cannot be empty")
	}
	if err := os.MkdirAll(cfg.Dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create artifacts root '%s': %w", cfg.Dir, err)
	}
	return &FSSink{
		logger:  logger.With(zap.String("component", "artifact_sink")),
		cfg:     cfg,
		runDirs: make(map[string]string),
	}, nil
}

// Persist writes the bundle's channels into the run's directory. Files share
// the bundle tag as a prefix: <tag>.png, <tag>-console.json,
// <tag>-network-errors.json, <tag>-page-analysis.json. The returned ref is
// that shared prefix path.
func (s *FSSink) Persist(ctx context.Context, runID string, bundle *schemas.ArtifactBundle) (string, error) {
	if bundle == nil {
		return "", fmt.Errorf("artifact bundle cannot be nil")
	}

	runDir, err := s.runDir(runID)
	if err != nil {
		return "", err
	}

	g, _ := errgroup.WithContext(ctx)
	prefix := filepath.Join(runDir, bundle.Tag)

	if len(bundle.Screenshot) > 0 {
		g.Go(func() error {
			return writeFile(prefix+".png", bundle.Screenshot)
		})
	}
	g.Go(func() error {
		return writeJSON(prefix+"-console.json", bundle.ConsoleLogs)
	})
	g.Go(func() error {
		return writeJSON(prefix+"-network-errors.json", bundle.Network)
	})
	g.Go(func() error {
		return writeJSON(prefix+"-page-analysis.json", bundle.Page)
	})

	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to persist artifact bundle '%s': %w", bundle.Tag, err)
	}

	s.logger.Debug("Artifact bundle written.",
		zap.String("run_id", runID),
		zap.String("tag", bundle.Tag),
		zap.String("dir", runDir))
	return prefix, nil
}

// runSummary is the on-disk shape of summary.json.
type runSummary struct {
	RunID         string                `json:"run_id"`
	Project       string                `json:"project"`
	Status        schemas.RunStatus     `json:"status"`
	Error         string                `json:"error,omitempty"`
	Timestamp     string                `json:"timestamp"`
	DurationMS    int64                 `json:"duration_ms"`
	TotalSteps    int                   `json:"total_steps"`
	PassedSteps   int                   `json:"passed_steps"`
	FailedSteps   int                   `json:"failed_steps"`
	AbortedAtStep *int                  `json:"aborted_at_step,omitempty"`
	Steps         []runSummaryStepEntry `json:"steps"`
}

type runSummaryStepEntry struct {
	Name       string             `json:"name"`
	Action     schemas.StepAction `json:"action"`
	Status     schemas.StepStatus `json:"status"`
	DurationMS int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
	Artifact   string             `json:"artifact,omitempty"`
}

// WriteSummary writes the run's summary.json into the run directory and then
// applies the retention policy to the artifacts root.
func (s *FSSink) WriteSummary(result *schemas.RunResult) (string, error) {
	runDir, err := s.runDir(result.RunID)
	if err != nil {
		return "", err
	}

	summary := runSummary{
		RunID:         result.RunID,
		Project:       result.Project,
		Status:        result.Status,
		Error:         result.Error,
		Timestamp:     result.StartedAt.Format(time.RFC3339),
		DurationMS:    result.EndedAt.Sub(result.StartedAt).Milliseconds(),
		TotalSteps:    result.TotalSteps(),
		PassedSteps:   result.PassedSteps(),
		FailedSteps:   result.FailedSteps(),
		AbortedAtStep: result.AbortedAtStep,
		Steps:         make([]runSummaryStepEntry, 0, len(result.Steps)),
	}
	for _, step := range result.Steps {
		summary.Steps = append(summary.Steps, runSummaryStepEntry{
			Name:       step.StepName,
			Action:     step.Action,
			Status:     step.Status,
			DurationMS: step.Duration.Milliseconds(),
			Error:      step.Error,
			Artifact:   step.ArtifactRef,
		})
	}

	path := filepath.Join(runDir, "summary.json")
	if err := writeJSON(path, summary); err != nil {
		return "", fmt.Errorf("failed to write run summary: %w", err)
	}

	if err := s.PruneOldRuns(s.cfg.MaxRuns); err != nil {
		// Retention failure is worth a warning but must not fail the run
		// whose summary just landed.
		s.logger.Warn("Failed to prune old run directories.", zap.Error(err))
	}
	return path, nil
}

// PruneOldRuns deletes run directories beyond the newest max entries. A
// non-positive max disables retention.
func (s *FSSink) PruneOldRuns(max int) error {
	if max <= 0 {
		return nil
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to read artifacts root: %w", err)
	}

	type runEntry struct {
		name    string
		modTime time.Time
	}
	runs := make([]runEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		runs = append(runs, runEntry{name: entry.Name(), modTime: info.ModTime()})
	}
	if len(runs) <= max {
		return nil
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime.After(runs[j].modTime) })

	for _, stale := range runs[max:] {
		path := filepath.Join(s.cfg.Dir, stale.name)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove stale run directory '%s': %w", path, err)
		}
		s.logger.Debug("Pruned stale run directory.", zap.String("dir", path))
	}
	return nil
}

// runDir returns the directory for runID, creating it on first use. The name
// carries a timestamp prefix so listings sort by recency.
func (s *FSSink) runDir(runID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir, ok := s.runDirs[runID]; ok {
		return dir, nil
	}

	shortID := runID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	dir := filepath.Join(s.cfg.Dir, fmt.Sprintf("%s-%s", time.Now().Format(runDirTimeLayout), shortID))
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("failed to create run directory '%s': %w", dir, err)
	}
	s.runDirs[runID] = dir
	return dir, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}
	return nil
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal '%s': %w", path, err)
	}
	return writeFile(path, data)
}
