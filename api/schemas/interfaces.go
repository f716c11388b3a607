// File: api/schemas/interfaces.go
// Canonical interfaces shared across packages. Defining them here keeps the
// runner, browser, and artifact packages free of cross-dependencies.
package schemas

import (
	"context"
	"time"
)

// DriverAdapter is the capability surface the runner drives a browser
// through. The chromedp session in internal/browser is the production
// implementation; tests substitute scripted fakes.
//
// Interaction methods return *StepError values for expected failures and
// errors wrapping ErrAdapterFatal when the underlying session is gone.
type DriverAdapter interface {
	// Navigate loads the URL and waits for the document to become ready.
	Navigate(ctx context.Context, url string) error
	// Find polls for an element matching the CSS selector until it appears
	// or the timeout elapses.
	Find(ctx context.Context, selector string, timeout time.Duration) error
	// Click resolves the element and clicks it.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// Fill resolves the element, clears it, and types the value.
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	// WaitFor blocks until the selector matches or the timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// ConsoleLogs returns the console entries collected so far.
	ConsoleLogs(ctx context.Context) ([]ConsoleLog, error)
	// NetworkSummary returns the request outcome tallies collected so far.
	NetworkSummary(ctx context.Context) (NetworkSummary, error)
	// PageSnapshot summarizes the current page state.
	PageSnapshot(ctx context.Context) (PageSnapshot, error)

	// Close tears the browser session down. Safe to call more than once.
	Close(ctx context.Context) error
}

// ArtifactSink persists a captured bundle and returns a reference (typically
// a directory or file path) recorded on the failing StepResult.
type ArtifactSink interface {
	Persist(ctx context.Context, runID string, bundle *ArtifactBundle) (string, error)
}

// CustomFunc is a registered handler for steps with action "custom". Any
// returned error fails the step.
type CustomFunc func(ctx context.Context, adapter DriverAdapter) error
