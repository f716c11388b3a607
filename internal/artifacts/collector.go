// File: internal/artifacts/collector.go
// Artifact capture at failure points. Every diagnostic channel is gathered
// independently and best-effort; a capture problem degrades to a missing
// field in the bundle, never to a run failure.
package artifacts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
)

// captureTimeout bounds the whole capture pass so a wedged page cannot stall
// the run report.
const captureTimeout = 30 * time.Second

// Collector gathers diagnostic bundles from a driver adapter.
type Collector struct {
	logger *zap.Logger
}

// NewCollector creates an artifact collector.
func NewCollector(logger *zap.Logger) *Collector {
	return &Collector{logger: logger.With(zap.String("component", "collector"))}
}

// Capture gathers a screenshot, console log snapshot, network summary, and
// page-state snapshot. The screenshot goes first: it is the most perishable
// signal, and the adapter handles its own fallback path.
func (c *Collector) Capture(ctx context.Context, adapter schemas.DriverAdapter, tag string) *schemas.ArtifactBundle {
	capCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	logger := c.logger.With(zap.String("tag", tag))
	bundle := &schemas.ArtifactBundle{
		Tag:        tag,
		CapturedAt: time.Now().UTC(),
	}

	screenshot, err := adapter.Screenshot(capCtx)
	if err != nil {
		logger.Warn("Screenshot capture failed; bundle will have no image.", zap.Error(err))
	} else {
		bundle.Screenshot = screenshot
	}

	consoleLogs, err := adapter.ConsoleLogs(capCtx)
	if err != nil {
		logger.Warn("Console log capture failed; bundle will have an empty log.", zap.Error(err))
	} else {
		bundle.ConsoleLogs = consoleLogs
	}

	network, err := adapter.NetworkSummary(capCtx)
	if err != nil {
		logger.Warn("Network summary capture failed; bundle will have empty tallies.", zap.Error(err))
	} else {
		bundle.Network = network
	}

	page, err := adapter.PageSnapshot(capCtx)
	if err != nil {
		logger.Warn("Page snapshot capture failed; bundle will have no page state.", zap.Error(err))
	} else {
		bundle.Page = page
	}

	return bundle
}
