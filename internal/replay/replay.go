// Package replay re-sends a stored event to an operator supplied URL.
package replay

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/idna"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	"git.home.luguber.info/inful/webhookcatcher/internal/observability"
)

// Timeout bounds a single replay.
const Timeout = 30 * time.Second

// StatusReplayed is the status of a completed replay.
const StatusReplayed = "replayed"

// EventGetter loads stored events.
type EventGetter interface {
	Get(ctx context.Context, id int64) (eventstore.Event, error)
}

// Outcome is returned when the target accepted the replay.
type Outcome struct {
	Status         string `json:"status"`
	ResponseStatus int    `json:"response_status"`
	TargetURL      string `json:"target_url"`
	WebhookID      int64  `json:"webhook_id"`
}

// Replayer re-sends stored events. It never retries.
type Replayer struct {
	store    EventGetter
	client   *http.Client
	strip    headerpolicy.Policy
	recorder metrics.Recorder
	timeout  time.Duration
}

// New creates a Replayer. A nil client uses a default http.Client.
func New(store EventGetter, client *http.Client, recorder metrics.Recorder) *Replayer {
	if client == nil {
		client = &http.Client{}
	}
	return &Replayer{
		store:    store,
		client:   client,
		strip:    headerpolicy.Connection(),
		recorder: metrics.OrNoop(recorder),
		timeout:  Timeout,
	}
}

// Replay validates target, loads event id and posts its body and headers to target.
// Validation happens before any storage or network access.
func (r *Replayer) Replay(ctx context.Context, id int64, target string) (Outcome, error) {
	if err := ValidateTargetURL(target); err != nil {
		return Outcome{}, err
	}

	ctx = observability.WithEventID(observability.WithOperation(ctx, "replay"), id)

	event, err := r.store.Get(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBufferString(event.Body))
	if err != nil {
		return Outcome{}, r.upstreamError(ctx, id, target, 0, 0, err)
	}
	for _, h := range r.strip.Strip(event.Headers) {
		req.Header.Set(h.Name, h.Value)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{}, r.upstreamError(ctx, id, target, 0, elapsed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, r.upstreamError(ctx, id, target, resp.StatusCode, elapsed, nil)
	}

	r.recorder.ObserveReplay(metrics.ResultSuccess, elapsed)
	observability.InfoContext(ctx, "Webhook replayed",
		logfields.TargetURL(target),
		logfields.Status(resp.StatusCode),
		logfields.DurationMS(elapsed.Milliseconds()))

	return Outcome{
		Status:         StatusReplayed,
		ResponseStatus: resp.StatusCode,
		TargetURL:      target,
		WebhookID:      id,
	}, nil
}

func (r *Replayer) upstreamError(ctx context.Context, id int64, target string, status int, elapsed time.Duration, cause error) error {
	r.recorder.ObserveReplay(metrics.ResultError, elapsed)

	b := errors.UpstreamError("Failed to replay webhook").
		WithContext("webhook_id", id).
		WithContext("target_url", target)
	if status != 0 {
		b = b.WithContext("response_status", status)
	}
	if cause != nil {
		b = b.WithCause(cause).WithContext("reason", cause.Error())
	}
	err := b.Build()

	observability.WarnContext(ctx, "Webhook replay failed",
		logfields.TargetURL(target),
		logfields.Status(status),
		logfields.Error(err))
	return err
}

// ValidateTargetURL accepts absolute http(s) URLs with a valid host name or IP literal.
func ValidateTargetURL(raw string) error {
	if raw == "" {
		return errors.ValidationError(`target_url is required. Provide it as a query parameter (?target_url=...) or in request body as JSON {"target_url": "..."}`).Build()
	}

	invalid := func(reason string) error {
		return errors.ValidationError("Invalid target URL. Must be http(s)://...").
			WithContext("target_url", raw).
			WithContext("reason", reason).
			Build()
	}

	u, err := url.Parse(raw)
	if err != nil {
		return invalid(err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("scheme must be http or https")
	}
	host := u.Hostname()
	if host == "" {
		return invalid("missing host")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if _, err := idna.Lookup.ToASCII(host); err != nil {
		slog.Debug("Rejected replay host", slog.String("host", host), logfields.Error(err))
		return invalid("invalid host name")
	}
	return nil
}
