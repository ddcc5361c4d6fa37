package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	"git.home.luguber.info/inful/webhookcatcher/internal/replay"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
)

// Replayer re-sends a stored event.
type Replayer interface {
	Replay(ctx context.Context, id int64, target string) (replay.Outcome, error)
}

// Clearer deletes every stored event.
type Clearer interface {
	Clear(ctx context.Context) (int64, error)
}

// AdminHandlers serves the state-changing admin endpoints.
type AdminHandlers struct {
	replayer     Replayer
	store        Clearer
	recorder     metrics.Recorder
	errorAdapter *errors.HTTPErrorAdapter
}

// NewAdminHandlers creates admin handlers.
func NewAdminHandlers(replayer Replayer, store Clearer, recorder metrics.Recorder) *AdminHandlers {
	return &AdminHandlers{
		replayer:     replayer,
		store:        store,
		recorder:     metrics.OrNoop(recorder),
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

type replayBody struct {
	TargetURL string `json:"target_url"`
}

// HandleReplay re-sends event {id} to target_url, taken from the query string
// or from a JSON body.
func (h *AdminHandlers) HandleReplay(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("invalid webhook id").
			WithContext("webhook_id", rawID).
			Build())
		return
	}

	target, err := replayTarget(r)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	outcome, err := h.replayer.Replay(r.Context(), id, target)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(w, r, h.errorAdapter, http.StatusOK, outcome)
}

func replayTarget(r *http.Request) (string, error) {
	if target := strings.TrimSpace(r.URL.Query().Get("target_url")); target != "" {
		return target, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", errors.ValidationError("failed to read request body").WithCause(err).Build()
	}
	if strings.TrimSpace(string(raw)) == "" {
		return "", nil
	}
	var body replayBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", errors.ValidationError("invalid JSON body").WithCause(err).Build()
	}
	return strings.TrimSpace(body.TargetURL), nil
}

// HandleClear deletes every stored event.
func (h *AdminHandlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.Clear(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	h.recorder.SetStoredEvents(0)
	slog.InfoContext(r.Context(), "Webhooks cleared", logfields.Count(deleted))
	writeOrFail(w, r, h.errorAdapter, http.StatusOK, responses.ClearResponse{Status: "cleared", Deleted: deleted})
}
