package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
	"git.home.luguber.info/inful/webhookcatcher/internal/version"
)

// StatusStore is the part of the event store monitoring needs.
type StatusStore interface {
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Features describes which optional behaviours are configured.
type Features struct {
	ForwardingURL        string
	ForwardingToken      bool
	AdminProtected       bool
	PasswordProtected    bool
	NotificationsEnabled bool
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	store        StatusStore
	features     Features
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(store StatusStore, features Features) *MonitoringHandlers {
	return &MonitoringHandlers{
		store:        store,
		features:     features,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleConfig reports which features are enabled and how many events are stored.
func (h *MonitoringHandlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.Count(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	resp := responses.ConfigResponse{
		ForwardingEnabled:         h.features.ForwardingURL != "",
		AuthenticationEnabled:     h.features.ForwardingToken,
		AdminProtectionEnabled:    h.features.AdminProtected,
		PasswordProtectionEnabled: h.features.PasswordProtected,
		NotificationsEnabled:      h.features.NotificationsEnabled,
		TotalWebhooks:             total,
		Version:                   version.Version,
	}
	if h.features.ForwardingURL != "" {
		u := h.features.ForwardingURL
		resp.ForwardingURL = &u
	}
	writeOrFail(w, r, h.errorAdapter, http.StatusOK, resp)
}

// HandleHealthCheck reports liveness; it answers 503 when the database is unreachable.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := responses.HealthResponse{Status: "ok", AdminProtected: h.features.AdminProtected}
	status := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "Health check failed", logfields.Error(err))
		health.Status = "error"
		health.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeOrFail(w, r, h.errorAdapter, status, health)
}
