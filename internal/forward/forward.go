// Package forward relays freshly captured webhooks to one configured
// downstream URL. Relays are best effort: failures are reported in the
// Result, never returned as errors, and never retried.
package forward

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
)

// Timeout bounds a single relay.
const Timeout = 10 * time.Second

// Result statuses.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// Outbound header names.
const (
	HeaderForwardedFrom     = "X-Forwarded-From"
	HeaderOriginalTimestamp = "X-Original-Timestamp"
	HeaderDeliveryID        = "X-Webhook-Delivery-ID"
	originalHeaderPrefix    = "X-Original-"
)

// Result describes the outcome of one relay attempt.
type Result struct {
	Status         string `json:"status"`
	TargetURL      string `json:"target_url,omitempty"`
	ResponseStatus int    `json:"response_status,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms,omitempty"`
	DeliveryID     string `json:"delivery_id,omitempty"`
	Error          string `json:"error,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Options configures a Forwarder.
type Options struct {
	URL       string
	Token     string
	Sensitive headerpolicy.Policy
	Client    *http.Client
	Recorder  metrics.Recorder
	Now       func() time.Time
}

// Forwarder relays captured events.
type Forwarder struct {
	url       string
	token     string
	sensitive headerpolicy.Policy
	client    *http.Client
	recorder  metrics.Recorder
	now       func() time.Time
	timeout   time.Duration
}

// New creates a Forwarder. An empty URL yields a Forwarder that reports "disabled".
func New(opts Options) *Forwarder {
	f := &Forwarder{
		url:       opts.URL,
		token:     opts.Token,
		sensitive: opts.Sensitive,
		client:    opts.Client,
		recorder:  metrics.OrNoop(opts.Recorder),
		now:       opts.Now,
		timeout:   Timeout,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Enabled reports whether a destination is configured.
func (f *Forwarder) Enabled() bool {
	return f != nil && f.url != ""
}

// TargetURL returns the configured destination.
func (f *Forwarder) TargetURL() string {
	if f == nil {
		return ""
	}
	return f.url
}

// Relay posts body to the configured destination. The caller's cancellation
// does not stop an in-flight relay; only the fixed timeout does.
func (f *Forwarder) Relay(ctx context.Context, headers eventstore.Headers, body, originalURL string) Result {
	if !f.Enabled() {
		f.recorder.ObserveForward(metrics.ResultDisabled, 0)
		return Result{Status: StatusDisabled, Message: "Forwarding not configured"}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	deliveryID := uuid.NewString()
	result := Result{TargetURL: f.url, DeliveryID: deliveryID}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewBufferString(body))
	if err != nil {
		return f.fail(result, 0, err)
	}
	f.decorate(req, headers, originalURL, deliveryID)

	start := time.Now()
	resp, err := f.client.Do(req)
	elapsed := time.Since(start)
	result.ResponseTimeMS = elapsed.Milliseconds()
	if err != nil {
		return f.fail(result, elapsed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.ResponseStatus = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return f.fail(result, elapsed, fmt.Errorf("downstream responded with status %d", resp.StatusCode))
	}

	result.Status = StatusSuccess
	f.recorder.ObserveForward(metrics.ResultSuccess, elapsed)
	slog.Debug("Webhook forwarded",
		logfields.TargetURL(f.url),
		logfields.Status(resp.StatusCode),
		logfields.DurationMS(result.ResponseTimeMS))
	return result
}

func (f *Forwarder) decorate(req *http.Request, headers eventstore.Headers, originalURL, deliveryID string) {
	for _, h := range f.sensitive.Strip(headers) {
		req.Header.Set(originalHeaderPrefix+h.Name, h.Value)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderForwardedFrom, originalURL)
	req.Header.Set(HeaderOriginalTimestamp, f.now().UTC().Format(time.RFC3339Nano))
	req.Header.Set(HeaderDeliveryID, deliveryID)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
}

func (f *Forwarder) fail(result Result, elapsed time.Duration, err error) Result {
	result.Status = StatusError
	result.Error = err.Error()
	f.recorder.ObserveForward(metrics.ResultError, elapsed)
	slog.Warn("Webhook forward failed",
		logfields.TargetURL(f.url),
		logfields.Status(result.ResponseStatus),
		logfields.Error(err))
	return result
}
