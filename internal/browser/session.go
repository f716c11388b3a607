// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

// Session drives one browser tab and implements schemas.DriverAdapter. It is
// exclusively owned by a single run for its whole lifetime.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	harvester *Harvester

	onClose   func()
	closeOnce sync.Once
}

var _ schemas.DriverAdapter = (*Session)(nil)

// newSession connects the tab and starts event harvesting.
func newSession(tabCtx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()

	s := &Session{
		id:     sessionID,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.With(zap.String("session_id", sessionID)),
		cfg:    cfg,
	}

	// Force target creation so the CDP connection exists before the first
	// navigation, and so event listeners see everything from the start.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to connect browser target: %w", err)
	}

	s.harvester = NewHarvester(tabCtx, s.logger)
	if err := s.harvester.Start(); err != nil {
		return nil, fmt.Errorf("failed to start event harvester: %w", err)
	}

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating", zap.String("url", url))

	navCtx, cancel := s.operationContext(ctx, s.cfg.Browser.NavigationTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return fatalErr
		}
		return fmt.Errorf("navigation to '%s' failed: %w", url, err)
	}
	return nil
}

// Find polls for an element matching the selector until it appears or the
// timeout elapses. One resolution attempt per step: the timeout is the step's
// entire retry budget.
func (s *Session) Find(ctx context.Context, selector string, timeout time.Duration) error {
	findCtx, cancel := s.operationContext(ctx, timeout)
	defer cancel()

	interval := s.cfg.Browser.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}

	var lastErr error
	for {
		var found bool
		script := fmt.Sprintf("document.querySelector(%q) !== null", selector)
		err := chromedp.Run(findCtx, chromedp.Evaluate(script, &found))
		if err == nil && found {
			return nil
		}
		if err != nil {
			if fatalErr := s.classifyFatal(err); fatalErr != nil {
				return fatalErr
			}
			lastErr = err
		}

		select {
		case <-findCtx.Done():
			if cause := s.classifyFatal(findCtx.Err()); cause != nil && s.ctx.Err() != nil {
				return cause
			}
			if lastErr == nil {
				lastErr = findCtx.Err()
			}
			return schemas.NewElementNotFound(selector, lastErr)
		case <-time.After(interval):
		}
	}
}

// Click resolves the element and clicks it. The timeout covers both
// resolution and the click itself.
func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if err := s.Find(ctx, selector, timeout); err != nil {
		return err
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return schemas.NewClickError(selector, context.DeadlineExceeded)
	}

	clickCtx, cancel := s.operationContext(ctx, remaining)
	defer cancel()

	err := chromedp.Run(clickCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return fatalErr
		}
		return schemas.NewClickError(selector, err)
	}
	return nil
}

// Fill resolves the element, clears it, and types the value.
func (s *Session) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	if err := s.Find(ctx, selector, timeout); err != nil {
		return err
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return schemas.NewFillError(selector, context.DeadlineExceeded)
	}

	fillCtx, cancel := s.operationContext(ctx, remaining)
	defer cancel()

	// The element must actually accept text before we type into it.
	var editable bool
	editableScript := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el || el.disabled || el.readOnly) { return false; }
		const tag = el.tagName.toLowerCase();
		return tag === 'input' || tag === 'textarea' || el.isContentEditable;
	})()`, selector)
	if err := chromedp.Run(fillCtx, chromedp.Evaluate(editableScript, &editable)); err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return fatalErr
		}
		return schemas.NewFillError(selector, err)
	}
	if !editable {
		return schemas.NewFillError(selector, fmt.Errorf("element is not an editable input"))
	}

	actions := []chromedp.Action{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
	}
	// An empty value clears the field; there is nothing to type.
	if value != "" {
		actions = append(actions, chromedp.SendKeys(selector, value, chromedp.ByQuery))
	}
	err := chromedp.Run(fillCtx, actions...)
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return fatalErr
		}
		return schemas.NewFillError(selector, err)
	}
	return nil
}

// WaitFor blocks until the selector matches or the timeout elapses.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return s.Find(ctx, selector, timeout)
}

// Screenshot captures the viewport as PNG. Headless compositors can silently
// produce empty captures through the high-level API, so an explicit CDP
// capture from the surface is kept as the fallback path.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	shotCtx, cancel := s.operationContext(ctx, 15*time.Second)
	defer cancel()

	var buf []byte
	err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf))
	if err == nil && len(buf) > 0 {
		return buf, nil
	}
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return nil, fatalErr
		}
		s.logger.Warn("Primary screenshot capture failed, trying CDP fallback.", zap.Error(err))
	} else {
		s.logger.Warn("Primary screenshot capture returned no data, trying CDP fallback.")
	}

	err = chromedp.Run(shotCtx, chromedp.ActionFunc(func(c context.Context) error {
		data, captureErr := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithFromSurface(true).
			Do(c)
		if captureErr != nil {
			return captureErr
		}
		buf = data
		return nil
	}))
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return nil, fatalErr
		}
		return nil, fmt.Errorf("screenshot capture failed on both paths: %w", err)
	}
	return buf, nil
}

// ConsoleLogs returns the console entries harvested so far.
func (s *Session) ConsoleLogs(ctx context.Context) ([]schemas.ConsoleLog, error) {
	if s.ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrAdapterFatal, s.ctx.Err())
	}
	return s.harvester.ConsoleLogs(), nil
}

// NetworkSummary returns the request outcome tallies harvested so far.
func (s *Session) NetworkSummary(ctx context.Context) (schemas.NetworkSummary, error) {
	if s.ctx.Err() != nil {
		return schemas.NetworkSummary{}, fmt.Errorf("%w: %v", schemas.ErrAdapterFatal, s.ctx.Err())
	}
	return s.harvester.NetworkSummary(), nil
}

// PageSnapshot summarizes the current page state: URL, title, and the
// landmark indicators persisted into page-analysis artifacts.
func (s *Session) PageSnapshot(ctx context.Context) (schemas.PageSnapshot, error) {
	snapCtx, cancel := s.operationContext(ctx, 10*time.Second)
	defer cancel()

	var currentURL, title, html string
	err := chromedp.Run(snapCtx,
		chromedp.Location(&currentURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if fatalErr := s.classifyFatal(err); fatalErr != nil {
			return schemas.PageSnapshot{}, fatalErr
		}
		return schemas.PageSnapshot{}, fmt.Errorf("failed to capture page snapshot: %w", err)
	}

	return buildPageSnapshot(currentURL, title, html), nil
}

// buildPageSnapshot derives the landmark flags from raw page content.
func buildPageSnapshot(currentURL, title, html string) schemas.PageSnapshot {
	lower := strings.ToLower(html)
	hasAny := func(needles ...string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}

	return schemas.PageSnapshot{
		URL:              currentURL,
		Title:            title,
		ContentLength:    len(html),
		HasLoginFields:   hasAny("login", "email"),
		HasCartElements:  hasAny("cart"),
		HasCheckout:      hasAny("checkout"),
		HasPaymentFields: hasAny("cardnumber", "payment"),
		HasErrorMessages: hasAny("error", "failed", "invalid", "not found"),
	}
}

// Close tears the tab down. Safe to call more than once; the run engine calls
// it on every exit path.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		if s.harvester != nil {
			s.harvester.Stop()
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// operationContext combines the session lifetime, the caller's context, and
// an operation timeout into one context.
func (s *Session) operationContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, opCancel := CombineContext(s.ctx, ctx)
	if timeout <= 0 {
		return opCtx, opCancel
	}
	timeoutCtx, timeoutCancel := context.WithTimeout(opCtx, timeout)
	return timeoutCtx, func() {
		timeoutCancel()
		opCancel()
	}
}

// classifyFatal maps errors that indicate a dead browser session to
// ErrAdapterFatal. A fatal session error always aborts the run, regardless of
// the failing step's critical flag.
func (s *Session) classifyFatal(err error) error {
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("%w: %v", schemas.ErrAdapterFatal, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "websocket") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "chrome failed to start") ||
		strings.Contains(msg, "target closed") {
		return fmt.Errorf("%w: %v", schemas.ErrAdapterFatal, err)
	}
	return nil
}
