// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/config"
)

// Manager owns the browser process (the chromedp exec allocator) and hands
// out Sessions. One Session drives one tab and is exclusively owned by a
// single run; callers create a fresh Session per run.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session

	initOnce sync.Once
	initErr  error
}

// NewManager creates a browser manager. The browser process itself is not
// launched until the first session is requested.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// initialize builds the exec allocator with the launch flags the target
// project requires. User agent and window size come from config; the rest are
// stability flags for containerized Chrome.
func (m *Manager) initialize(ctx context.Context, userAgent string) error {
	m.initOnce.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Browser.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(m.cfg.Browser.WindowWidth, m.cfg.Browser.WindowHeight),
		)
		if m.cfg.Browser.NoSandbox {
			opts = append(opts, chromedp.NoSandbox)
		}
		if userAgent != "" {
			opts = append(opts, chromedp.UserAgent(userAgent))
		}
		for _, arg := range m.cfg.Browser.Args {
			opts = append(opts, chromedp.Flag(arg, true))
		}

		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
		m.logger.Info("Browser allocator initialized.",
			zap.Bool("headless", m.cfg.Browser.Headless),
			zap.Int("window_width", m.cfg.Browser.WindowWidth),
			zap.Int("window_height", m.cfg.Browser.WindowHeight))
	})
	return m.initErr
}

// NewSession launches a tab configured for the given project and returns it
// as a schemas.DriverAdapter implementation. The session is connected and
// harvesting console/network events before this returns.
func (m *Manager) NewSession(ctx context.Context, project schemas.ProjectConfig) (*Session, error) {
	userAgent := project.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	if err := m.initialize(ctx, userAgent); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	session, err := newSession(tabCtx, tabCancel, m.cfg, m.logger)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to create browser session: %w", err)
	}

	session.onClose = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.sessions, session.ID())
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.logger.Info("New browser session created.", zap.String("session_id", session.ID()))
	return session, nil
}

// Shutdown closes any remaining sessions and kills the browser process.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		if err := s.Close(ctx); err != nil {
			m.logger.Warn("Error closing session during shutdown.",
				zap.String("session_id", s.ID()), zap.Error(err))
		}
	}

	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.logger.Info("Browser manager shut down.")
}
