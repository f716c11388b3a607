// File: internal/browser/harvester.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
)

// Harvester listens to CDP events on one tab and accumulates the console log
// and network outcome summary that end up in failure artifacts. Collection is
// passive: it never interferes with step execution.
type Harvester struct {
	logger *zap.Logger

	sessionCtx     context.Context
	listenerCtx    context.Context
	cancelListener context.CancelFunc

	lock        sync.RWMutex
	consoleLogs []schemas.ConsoleLog
	network     schemas.NetworkSummary

	isStarted bool
}

// NewHarvester creates an event harvester for the given tab context.
func NewHarvester(sessionCtx context.Context, logger *zap.Logger) *Harvester {
	return &Harvester{
		sessionCtx:  sessionCtx,
		logger:      logger.Named("harvester"),
		consoleLogs: make([]schemas.ConsoleLog, 0),
	}
}

// Start enables the CDP domains of interest and begins listening.
func (h *Harvester) Start() error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.isStarted {
		return nil
	}

	h.listenerCtx, h.cancelListener = context.WithCancel(h.sessionCtx)
	go h.listen()

	err := chromedp.Run(h.sessionCtx,
		network.Enable(),
		runtime.Enable(),
		cdplog.Enable(),
	)
	if err != nil {
		h.cancelListener()
		return err
	}

	h.isStarted = true
	h.logger.Debug("Harvester started and listening for events.")
	return nil
}

// Stop halts event collection. Collected data stays readable afterwards.
func (h *Harvester) Stop() {
	h.lock.Lock()
	defer h.lock.Unlock()

	if !h.isStarted {
		return
	}
	if h.cancelListener != nil {
		h.cancelListener()
		h.cancelListener = nil
	}
	h.isStarted = false
}

// listen is the event loop dispatching CDP events to handlers.
func (h *Harvester) listen() {
	chromedp.ListenTarget(h.listenerCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			h.handleResponseReceived(e)
		case *network.EventLoadingFailed:
			h.handleLoadingFailed(e)
		case *runtime.EventConsoleAPICalled:
			h.handleConsoleAPICalled(e)
		case *cdplog.EventEntryAdded:
			h.handleLogEntryAdded(e)
		case *runtime.EventExceptionThrown:
			h.handleExceptionThrown(e)
		}
	})
}

// ConsoleLogs returns a copy of the console entries collected so far.
func (h *Harvester) ConsoleLogs() []schemas.ConsoleLog {
	h.lock.RLock()
	defer h.lock.RUnlock()
	logs := make([]schemas.ConsoleLog, len(h.consoleLogs))
	copy(logs, h.consoleLogs)
	return logs
}

// NetworkSummary returns a copy of the request outcome tallies.
func (h *Harvester) NetworkSummary() schemas.NetworkSummary {
	h.lock.RLock()
	defer h.lock.RUnlock()
	summary := h.network
	summary.Errors = make([]schemas.NetworkError, len(h.network.Errors))
	copy(summary.Errors, h.network.Errors)
	return summary
}

// -- Event Handlers --

func (h *Harvester) handleResponseReceived(e *network.EventResponseReceived) {
	if e.Response == nil {
		return
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.network.TotalRequests++
	status := int(e.Response.Status)
	switch {
	case status >= 500:
		h.network.ServerErrors++
	case status >= 400:
		h.network.ClientErrors++
	default:
		return
	}

	h.network.Errors = append(h.network.Errors, schemas.NetworkError{
		URL:        e.Response.URL,
		Status:     status,
		StatusText: e.Response.StatusText,
		MimeType:   e.Response.MimeType,
	})
}

func (h *Harvester) handleLoadingFailed(e *network.EventLoadingFailed) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.network.Failed++
}

func (h *Harvester) handleConsoleAPICalled(e *runtime.EventConsoleAPICalled) {
	var textBuilder strings.Builder
	for i, arg := range e.Args {
		if i > 0 {
			textBuilder.WriteString(" ")
		}
		// Prefer the JSON value, fall back to the remote object description.
		var val interface{}
		if arg.Value != nil && json.Unmarshal(arg.Value, &val) == nil {
			textBuilder.WriteString(fmt.Sprintf("%v", val))
		} else if arg.Description != "" {
			textBuilder.WriteString(arg.Description)
		} else {
			textBuilder.WriteString(fmt.Sprintf("[%s]", arg.Type))
		}
	}

	entry := schemas.ConsoleLog{
		Timestamp: e.Timestamp.Time(),
		Type:      string(e.Type),
		Text:      textBuilder.String(),
		Source:    "console-api",
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.consoleLogs = append(h.consoleLogs, entry)
}

func (h *Harvester) handleLogEntryAdded(e *cdplog.EventEntryAdded) {
	if e.Entry == nil {
		return
	}
	entry := schemas.ConsoleLog{
		Timestamp: e.Entry.Timestamp.Time(),
		Type:      string(e.Entry.Level),
		Text:      e.Entry.Text,
		Source:    string(e.Entry.Source),
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.consoleLogs = append(h.consoleLogs, entry)
}

func (h *Harvester) handleExceptionThrown(e *runtime.EventExceptionThrown) {
	if e.ExceptionDetails == nil {
		return
	}
	// The description carries the stack trace when one exists.
	text := e.ExceptionDetails.Text
	if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
		text = e.ExceptionDetails.Exception.Description
	}

	entry := schemas.ConsoleLog{
		Timestamp: e.Timestamp.Time(),
		Type:      "exception",
		Text:      text,
		Source:    "runtime",
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	h.consoleLogs = append(h.consoleLogs, entry)
}
