// Package capture persists inbound webhooks and relays them downstream.
// Append and relay run concurrently; the caller gets both outcomes.
package capture

import (
	"context"
	"log/slog"
	"strings"

	"github.com/valyala/fastjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/forward"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/metrics"
	"git.home.luguber.info/inful/webhookcatcher/internal/notify"
	"git.home.luguber.info/inful/webhookcatcher/internal/observability"
)

// StatusSuccess is reported once the event is persisted.
const StatusSuccess = "success"

// Appender persists events.
type Appender interface {
	Append(ctx context.Context, headers eventstore.Headers, body string) (eventstore.Event, error)
}

// Relayer forwards events downstream.
type Relayer interface {
	Relay(ctx context.Context, headers eventstore.Headers, body, originalURL string) forward.Result
}

// Request is one inbound delivery.
type Request struct {
	Headers eventstore.Headers
	Body    []byte
	// URL is the full inbound URL, passed downstream as X-Forwarded-From.
	URL string
}

// Result is the capture response.
type Result struct {
	Status       string         `json:"status"`
	ID           int64          `json:"id"`
	Timestamp    string         `json:"timestamp"`
	ReceivedBody string         `json:"received_body"`
	IsJSON       bool           `json:"is_json"`
	Forwarding   forward.Result `json:"forwarding"`
}

// Service runs the capture pipeline.
type Service struct {
	store     Appender
	forwarder Relayer
	notifier  notify.Notifier
	recorder  metrics.Recorder
}

// NewService wires the pipeline. notifier and recorder may be nil.
func NewService(store Appender, forwarder Relayer, notifier notify.Notifier, recorder metrics.Recorder) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		store:     store,
		forwarder: forwarder,
		notifier:  notifier,
		recorder:  metrics.OrNoop(recorder),
	}
}

// Capture stores the delivery and relays it. A storage failure is returned as
// an error; a relay failure is only reported in Result.Forwarding.
func (s *Service) Capture(ctx context.Context, req Request) (Result, error) {
	ctx = observability.WithOperation(ctx, "capture")
	body := DecodeBody(req.Body)

	var (
		event     eventstore.Event
		forwarded forward.Result
		g         errgroup.Group
	)
	g.Go(func() error {
		var err error
		event, err = s.store.Append(ctx, req.Headers, body)
		return err
	})
	g.Go(func() error {
		forwarded = s.forwarder.Relay(ctx, req.Headers, body, req.URL)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.recorder.IncCapture(metrics.ResultError)
		observability.ErrorContext(ctx, "Failed to persist webhook", logfields.Error(err))
		return Result{}, err
	}

	s.recorder.IncCapture(metrics.ResultSuccess)
	s.recorder.IncStoredEvents()
	ctx = observability.WithEventID(ctx, event.ID)
	isJSON := IsJSON(body)

	observability.InfoContext(ctx, "Webhook captured",
		logfields.BodySize(len(req.Body)),
		slog.String("forwarding", forwarded.Status))

	s.notifier.Notify(ctx, notify.CapturedEvent{
		ID:          event.ID,
		Timestamp:   event.Timestamp,
		ContentType: req.Headers.Value("content-type"),
		Source:      req.Headers.Value("x-webhook-source"),
		SizeBytes:   len(req.Body),
		IsJSON:      isJSON,
	})

	return Result{
		Status:       StatusSuccess,
		ID:           event.ID,
		Timestamp:    event.Timestamp,
		ReceivedBody: body,
		IsJSON:       isJSON,
		Forwarding:   forwarded,
	}, nil
}

// DecodeBody decodes raw bytes as UTF-8, replacing invalid sequences with U+FFFD.
func DecodeBody(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(out)
}

// IsJSON reports whether body is a non-blank, well-formed JSON document.
func IsJSON(body string) bool {
	if strings.TrimSpace(body) == "" {
		return false
	}
	return fastjson.Validate(body) == nil
}
