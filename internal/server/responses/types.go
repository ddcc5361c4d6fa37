// Package responses defines API response types used by the webhookcatcher HTTP handlers.
package responses

import (
	"encoding/json"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/search"
)

// Timestamp renders a stored timestamp for machines and for people.
type Timestamp struct {
	ISO     string `json:"iso"`
	Display string `json:"display"`
}

// Metadata summarises request details taken from captured headers.
type Metadata struct {
	IP        string  `json:"ip"`
	UserAgent string  `json:"user_agent"`
	Source    string  `json:"source"`
	Timestamp *string `json:"timestamp"`
}

// LogEntry is one event as shown when browsing. Sensitive headers are redacted.
type LogEntry struct {
	ID        int64              `json:"id"`
	Timestamp Timestamp          `json:"timestamp"`
	Headers   eventstore.Headers `json:"headers"`
	Metadata  Metadata           `json:"metadata"`
	Body      string             `json:"body"`
	// ParsedBody holds the body verbatim when it is valid JSON, else null.
	ParsedBody json.RawMessage `json:"parsed_body"`
	Matches    []search.Match  `json:"matches"`
}

// LogsResponse is the JSON form of /logs.
type LogsResponse struct {
	Logs       []LogEntry `json:"logs"`
	Count      int64      `json:"count"`
	TotalCount int64      `json:"total_count"`
	HasMore    bool       `json:"has_more"`
	Empty      bool       `json:"empty"`
	Offset     int        `json:"offset"`
	Limit      int        `json:"limit"`
}

// WebhookSummary is one entry of /webhooks.
type WebhookSummary struct {
	ID          int64  `json:"id"`
	Timestamp   string `json:"timestamp"`
	BodyPreview string `json:"body_preview"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
}

// WebhooksResponse is the /webhooks listing.
type WebhooksResponse struct {
	Webhooks   []WebhookSummary `json:"webhooks"`
	Count      int              `json:"count"`
	TotalCount int64            `json:"total_count"`
}

// ClearResponse reports a bulk delete.
type ClearResponse struct {
	Status  string `json:"status"`
	Deleted int64  `json:"deleted"`
}

// ConfigResponse reports feature flags.
type ConfigResponse struct {
	ForwardingEnabled         bool    `json:"forwarding_enabled"`
	ForwardingURL             *string `json:"forwarding_url"`
	AuthenticationEnabled     bool    `json:"authentication_enabled"`
	AdminProtectionEnabled    bool    `json:"admin_protection_enabled"`
	PasswordProtectionEnabled bool    `json:"password_protection_enabled"`
	NotificationsEnabled      bool    `json:"notifications_enabled"`
	TotalWebhooks             int64   `json:"total_webhooks"`
	Version                   string  `json:"version"`
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status         string `json:"status"`
	AdminProtected bool   `json:"admin_protected"`
	Error          string `json:"error,omitempty"`
}

// TestResponse reports a synthetic delivery sent by /test.
type TestResponse struct {
	Status         string `json:"status"`
	ResponseStatus int    `json:"response_status"`
	URL            string `json:"url"`
	Payload        any    `json:"payload"`
}
