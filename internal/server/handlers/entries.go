package handlers

import (
	"encoding/json"
	"unicode/utf8"

	"git.home.luguber.info/inful/webhookcatcher/internal/capture"
	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/search"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
)

const (
	displayLayout   = "2006-01-02 15:04:05"
	unknownValue    = "Unknown"
	previewRunes    = 100
	previewEllipsis = "..."
)

// logEntry decorates a stored event for browsing.
func logEntry(e eventstore.Event, sensitive headerpolicy.Policy, query string) responses.LogEntry {
	entry := responses.LogEntry{
		ID:        e.ID,
		Timestamp: formatTimestamp(e.Timestamp),
		Headers:   sensitive.Redact(e.Headers),
		Metadata:  metadata(e.Headers),
		Body:      e.Body,
	}
	if capture.IsJSON(e.Body) {
		entry.ParsedBody = json.RawMessage(e.Body)
	}
	if search.Active(query) {
		entry.Matches = search.Highlight(e.Body, query)
		if entry.Matches == nil {
			entry.Matches = []search.Match{}
		}
	}
	return entry
}

func formatTimestamp(ts string) responses.Timestamp {
	t, err := eventstore.ParseTimestamp(ts)
	if err != nil {
		return responses.Timestamp{ISO: ts, Display: ts}
	}
	return responses.Timestamp{ISO: ts, Display: t.Format(displayLayout)}
}

func metadata(h eventstore.Headers) responses.Metadata {
	m := responses.Metadata{
		IP:        firstNonEmpty(h.Value("x-real-ip"), h.Value("x-forwarded-for"), unknownValue),
		UserAgent: valueOr(h, "user-agent", unknownValue),
		Source:    valueOr(h, "x-webhook-source", unknownValue),
	}
	if v, ok := h.Get("x-request-start"); ok {
		m.Timestamp = &v
	}
	return m
}

func summary(e eventstore.Event) responses.WebhookSummary {
	return responses.WebhookSummary{
		ID:          e.ID,
		Timestamp:   e.Timestamp,
		BodyPreview: preview(e.Body),
		ContentType: valueOr(e.Headers, "content-type", "unknown"),
		SizeBytes:   len(e.Body),
	}
}

// preview keeps the first previewRunes characters of body.
func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewRunes {
		return body
	}
	return string([]rune(body)[:previewRunes]) + previewEllipsis
}

func valueOr(h eventstore.Headers, name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
