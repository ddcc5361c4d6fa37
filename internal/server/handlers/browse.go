package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/export"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
)

const (
	// ViewLimit is the page size of the full /logs/view page.
	ViewLimit = 10
	// WebhooksDefaultLimit is the /webhooks page size when none is given.
	WebhooksDefaultLimit = 50
)

// EventReader is the read side of the event store.
type EventReader interface {
	Query(ctx context.Context, q eventstore.Query) (eventstore.Page, error)
	All(ctx context.Context) ([]eventstore.Event, error)
}

// BrowseHandlers serves the read-only browsing endpoints.
type BrowseHandlers struct {
	store        EventReader
	sensitive    headerpolicy.Policy
	errorAdapter *errors.HTTPErrorAdapter
}

// NewBrowseHandlers creates browse handlers redacting the given header policy.
func NewBrowseHandlers(store EventReader, sensitive headerpolicy.Policy) *BrowseHandlers {
	return &BrowseHandlers{
		store:        store,
		sensitive:    sensitive,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleLogs returns one page of events, as JSON or as an HTML fragment.
func (h *BrowseHandlers) HandleLogs(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", eventstore.DefaultLimit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	q := eventstore.Query{Offset: offset, Limit: limit, Search: r.URL.Query().Get("search")}.Normalized()

	resp, err := h.page(r.Context(), q)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeOrFail(w, r, h.errorAdapter, http.StatusOK, resp)
		return
	}
	h.render(w, r, "list", newLogsView(resp, q.Search))
}

// HandleLogsView renders the full page with the newest events.
func (h *BrowseHandlers) HandleLogsView(w http.ResponseWriter, r *http.Request) {
	resp, err := h.page(r.Context(), eventstore.Query{Limit: ViewLimit})
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	view := newLogsView(resp, "")
	view.Count = int64(len(resp.Logs))
	h.render(w, r, "page", view)
}

func (h *BrowseHandlers) page(ctx context.Context, q eventstore.Query) (responses.LogsResponse, error) {
	page, err := h.store.Query(ctx, q)
	if err != nil {
		return responses.LogsResponse{}, err
	}
	logs := make([]responses.LogEntry, 0, len(page.Events))
	for _, e := range page.Events {
		logs = append(logs, logEntry(e, h.sensitive, q.Search))
	}
	slog.DebugContext(ctx, "Logs page served",
		logfields.Count(int64(len(logs))),
		logfields.Search(q.Search))
	return responses.LogsResponse{
		Logs:       logs,
		Count:      page.Total,
		TotalCount: page.Total,
		HasMore:    page.HasMore,
		Empty:      len(logs) == 0,
		Offset:     q.Offset,
		Limit:      q.Limit,
	}, nil
}

func (h *BrowseHandlers) render(w http.ResponseWriter, r *http.Request, name string, view logsView) {
	var buf bytes.Buffer
	if err := logsTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to render logs template").
			WithContext("template", name).
			Build())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing HTML response body", logfields.Error(err))
	}
}

// HandleExport downloads every event as JSON or CSV.
func (h *BrowseHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	events, err := h.store.All(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, format, events); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to encode export").
			WithContext("format", string(format)).
			Build())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+format.Filename())
	w.Header().Set("X-Total-Count", strconv.Itoa(len(events)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing export body", logfields.Error(err))
		return
	}
	slog.InfoContext(r.Context(), "Events exported",
		logfields.Format(string(format)),
		logfields.Count(int64(len(events))))
}

// HandleWebhooks lists the newest events with short body previews.
func (h *BrowseHandlers) HandleWebhooks(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", WebhooksDefaultLimit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if limit <= 0 {
		limit = WebhooksDefaultLimit
	}
	page, err := h.store.Query(r.Context(), eventstore.Query{Limit: limit}.Normalized())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	list := make([]responses.WebhookSummary, 0, len(page.Events))
	for _, e := range page.Events {
		list = append(list, summary(e))
	}
	writeOrFail(w, r, h.errorAdapter, http.StatusOK, responses.WebhooksResponse{
		Webhooks:   list,
		Count:      len(list),
		TotalCount: page.Total,
	})
}
