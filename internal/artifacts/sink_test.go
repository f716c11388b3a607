// File: internal/artifacts/sink_test.go
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

func newTestSink(t *testing.T, maxRuns int) (*FSSink, string) {
	t.Helper()
	dir := t.TempDir()
	sink, err := NewFSSink(config.ArtifactsConfig{Dir: dir, MaxRuns: maxRuns}, zap.NewNop())
	require.NoError(t, err)
	return sink, dir
}

func sampleBundle(tag string) *schemas.ArtifactBundle {
	return &schemas.ArtifactBundle{
		Tag:        tag,
		CapturedAt: time.Now(),
		Screenshot: []byte{0x89, 0x50, 0x4e, 0x47},
		ConsoleLogs: []schemas.ConsoleLog{
			{Type: "error", Text: "Uncaught TypeError", Source: "runtime"},
		},
		Network: schemas.NetworkSummary{
			TotalRequests: 7,
			ServerErrors:  1,
			Errors: []schemas.NetworkError{
				{URL: "https://shop.test/api/cart", Status: 500, StatusText: "Internal Server Error"},
			},
		},
		Page: schemas.PageSnapshot{URL: "https://shop.test/cart", Title: "Cart", HasCartElements: true},
	}
}

func TestFSSinkPersist_WritesBundleFiles(t *testing.T) {
	sink, root := newTestSink(t, 0)

	ref, err := sink.Persist(context.Background(), "11112222-3333-4444-5555-666677778888", sampleBundle("add-to-cart-failed"))
	require.NoError(t, err)

	runDir := filepath.Dir(ref)
	assert.Equal(t, root, filepath.Dir(runDir), "run dir must live directly under the artifacts root")
	assert.Contains(t, filepath.Base(runDir), "11112222", "run dir carries the short run id")

	assert.FileExists(t, ref+".png")
	assert.FileExists(t, ref+"-console.json")
	assert.FileExists(t, ref+"-network-errors.json")
	assert.FileExists(t, ref+"-page-analysis.json")

	// Page analysis keeps its diagnostic field names.
	data, err := os.ReadFile(ref + "-page-analysis.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"current_url"`)
	assert.Contains(t, string(data), `"has_cart_elements"`)
}

func TestFSSinkPersist_NoScreenshotSkipsImage(t *testing.T) {
	sink, _ := newTestSink(t, 0)

	bundle := sampleBundle("checkout-failed")
	bundle.Screenshot = nil

	ref, err := sink.Persist(context.Background(), "run-a", bundle)
	require.NoError(t, err)

	assert.NoFileExists(t, ref+".png")
	assert.FileExists(t, ref+"-console.json")
}

func TestFSSinkPersist_SameRunSharesDirectory(t *testing.T) {
	sink, _ := newTestSink(t, 0)

	refA, err := sink.Persist(context.Background(), "run-a", sampleBundle("login-failed"))
	require.NoError(t, err)
	refB, err := sink.Persist(context.Background(), "run-a", sampleBundle("final-success"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(refA), filepath.Dir(refB))
}

func TestFSSinkWriteSummary(t *testing.T) {
	sink, _ := newTestSink(t, 0)

	_, err := sink.Persist(context.Background(), "run-a", sampleBundle("add-to-cart-failed"))
	require.NoError(t, err)

	aborted := 1
	started := time.Now().Add(-3 * time.Second)
	result := &schemas.RunResult{
		RunID:   "run-a",
		Project: "shop",
		Status:  schemas.RunFailed,
		Steps: []schemas.StepResult{
			{StepName: "open home", Action: schemas.ActionNavigate, Status: schemas.StepPassed, Duration: time.Second},
			{StepName: "add to cart", Action: schemas.ActionClick, Status: schemas.StepFailed, Duration: 2 * time.Second, Error: "element '#add' is not clickable"},
		},
		AbortedAtStep: &aborted,
		Error:         "element '#add' is not clickable",
		StartedAt:     started,
		EndedAt:       time.Now(),
	}

	path, err := sink.WriteSummary(result)
	require.NoError(t, err)
	assert.Equal(t, "summary.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var summary runSummary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "shop", summary.Project)
	assert.Equal(t, schemas.RunFailed, summary.Status)
	assert.Equal(t, 2, summary.TotalSteps)
	assert.Equal(t, 1, summary.PassedSteps)
	assert.Equal(t, 1, summary.FailedSteps)
	require.NotNil(t, summary.AbortedAtStep)
	assert.Equal(t, 1, *summary.AbortedAtStep)
	require.Len(t, summary.Steps, 2)
	assert.Equal(t, "add to cart", summary.Steps[1].Name)
	assert.Equal(t, int64(2000), summary.Steps[1].DurationMS)
}

func TestFSSinkPruneOldRuns(t *testing.T) {
	sink, root := newTestSink(t, 2)

	// Seed five run directories with ascending mtimes.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		dir := filepath.Join(root, fmt.Sprintf("2026010%d-120000-run%d", i+1, i))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		stamp := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(dir, stamp, stamp))
	}

	require.NoError(t, sink.PruneOldRuns(2))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// The two newest survive.
	names := []string{entries[0].Name(), entries[1].Name()}
	assert.ElementsMatch(t, []string{"20260104-120000-run3", "20260105-120000-run4"}, names)
}

func TestFSSinkPruneOldRuns_DisabledRetention(t *testing.T) {
	sink, root := newTestSink(t, 0)

	dir := filepath.Join(root, "20260101-120000-keep")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	require.NoError(t, sink.PruneOldRuns(0))
	assert.DirExists(t, dir)
}

func TestNewFSSink_RequiresDirectory(t *testing.T) {
	_, err := NewFSSink(config.ArtifactsConfig{}, zap.NewNop())
	assert.Error(t, err)
}
