// File: internal/runner/helpers_test.go
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/stepwright/stepwright/api/schemas"
)

// -- Fake Implementations --

// fakeAdapter is a scripted stand-in for the browser session. Each operation
// succeeds unless a per-test func overrides it; every call is recorded.
type fakeAdapter struct {
	mu    sync.Mutex
	calls []string

	navigateFunc func(ctx context.Context, url string) error
	clickFunc    func(ctx context.Context, selector string, timeout time.Duration) error
	fillFunc     func(ctx context.Context, selector, value string, timeout time.Duration) error
	waitFunc     func(ctx context.Context, selector string, timeout time.Duration) error

	screenshotFunc func(ctx context.Context) ([]byte, error)

	closeCount int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{}
}

func (f *fakeAdapter) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAdapter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeAdapter) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakeAdapter) Navigate(ctx context.Context, url string) error {
	f.record("navigate:" + url)
	if f.navigateFunc != nil {
		return f.navigateFunc(ctx, url)
	}
	return nil
}

func (f *fakeAdapter) Find(ctx context.Context, selector string, timeout time.Duration) error {
	f.record("find:" + selector)
	return nil
}

func (f *fakeAdapter) Click(ctx context.Context, selector string, timeout time.Duration) error {
	f.record("click:" + selector)
	if f.clickFunc != nil {
		return f.clickFunc(ctx, selector, timeout)
	}
	return nil
}

func (f *fakeAdapter) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	f.record("fill:" + selector)
	if f.fillFunc != nil {
		return f.fillFunc(ctx, selector, value, timeout)
	}
	return nil
}

func (f *fakeAdapter) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	f.record("wait:" + selector)
	if f.waitFunc != nil {
		return f.waitFunc(ctx, selector, timeout)
	}
	return nil
}

func (f *fakeAdapter) Screenshot(ctx context.Context) ([]byte, error) {
	f.record("screenshot")
	if f.screenshotFunc != nil {
		return f.screenshotFunc(ctx)
	}
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func (f *fakeAdapter) ConsoleLogs(ctx context.Context) ([]schemas.ConsoleLog, error) {
	f.record("console_logs")
	return nil, nil
}

func (f *fakeAdapter) NetworkSummary(ctx context.Context) (schemas.NetworkSummary, error) {
	f.record("network_summary")
	return schemas.NetworkSummary{}, nil
}

func (f *fakeAdapter) PageSnapshot(ctx context.Context) (schemas.PageSnapshot, error) {
	f.record("page_snapshot")
	return schemas.PageSnapshot{}, nil
}

func (f *fakeAdapter) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCount++
	return nil
}

// fakeCollector records the tags it was asked to capture.
type fakeCollector struct {
	mu   sync.Mutex
	tags []string
}

func (f *fakeCollector) Capture(ctx context.Context, adapter schemas.DriverAdapter, tag string) *schemas.ArtifactBundle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, tag)
	return &schemas.ArtifactBundle{Tag: tag, CapturedAt: time.Now()}
}

func (f *fakeCollector) Tags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.tags))
	copy(out, f.tags)
	return out
}

// fakeSink records persisted bundles; persistErr makes every Persist fail.
type fakeSink struct {
	mu         sync.Mutex
	persisted  []string
	persistErr error
}

func (f *fakeSink) Persist(ctx context.Context, runID string, bundle *schemas.ArtifactBundle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistErr != nil {
		return "", f.persistErr
	}
	f.persisted = append(f.persisted, bundle.Tag)
	return "logs/" + runID + "/" + bundle.Tag, nil
}

func (f *fakeSink) Persisted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.persisted))
	copy(out, f.persisted)
	return out
}

// -- Step builders --

func navigateStep(name, url string) schemas.Step {
	return schemas.Step{
		Name:     name,
		Action:   schemas.ActionNavigate,
		URL:      url,
		Timeout:  5 * time.Second,
		Critical: true,
	}
}

func clickStep(name, selector string, critical bool) schemas.Step {
	return schemas.Step{
		Name:     name,
		Action:   schemas.ActionClick,
		Selector: selector,
		Timeout:  5 * time.Second,
		Critical: critical,
	}
}

func waitStep(name, selector string) schemas.Step {
	return schemas.Step{
		Name:     name,
		Action:   schemas.ActionWait,
		Selector: selector,
		Timeout:  5 * time.Second,
		Critical: true,
	}
}
