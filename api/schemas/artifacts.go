// File: api/schemas/artifacts.go
package schemas

import "time"

// ConsoleLog is a single browser console entry captured during a run.
type ConsoleLog struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
}

// NetworkError is one request that completed with an error status.
type NetworkError struct {
	URL        string `json:"url"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
}

// NetworkSummary tallies request outcomes observed by the harvester. Only
// error responses are listed individually; the counters cover everything.
type NetworkSummary struct {
	TotalRequests int            `json:"total_requests"`
	ClientErrors  int            `json:"client_errors"`
	ServerErrors  int            `json:"server_errors"`
	Failed        int            `json:"failed"`
	Errors        []NetworkError `json:"errors,omitempty"`
}

// PageSnapshot is a structured summary of the page state at capture time.
// Landmark flags mirror what a human debugging a failed checkout flow looks
// for first.
type PageSnapshot struct {
	URL              string `json:"current_url"`
	Title            string `json:"title"`
	ContentLength    int    `json:"page_length"`
	HasLoginFields   bool   `json:"has_login_elements"`
	HasCartElements  bool   `json:"has_cart_elements"`
	HasCheckout      bool   `json:"has_checkout_elements"`
	HasPaymentFields bool   `json:"has_payment_fields"`
	HasErrorMessages bool   `json:"has_error_messages"`
}

// ArtifactBundle is the diagnostic payload gathered at a failure point. Every
// channel is best-effort: a nil screenshot or empty log slice means capture
// failed, never that the run should.
type ArtifactBundle struct {
	Tag         string         `json:"tag"`
	CapturedAt  time.Time      `json:"captured_at"`
	Screenshot  []byte         `json:"-"`
	ConsoleLogs []ConsoleLog   `json:"console_logs"`
	Network     NetworkSummary `json:"network_summary"`
	Page        PageSnapshot   `json:"page_snapshot"`
}
