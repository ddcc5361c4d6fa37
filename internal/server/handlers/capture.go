package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valyala/fastjson"

	"git.home.luguber.info/inful/webhookcatcher/internal/capture"
	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
	"git.home.luguber.info/inful/webhookcatcher/internal/server/responses"
)

// TestTimeout bounds the synthetic delivery sent by /test.
const TestTimeout = 10 * time.Second

const invalidTestPayload = "Invalid JSON payload. Example: {'event': 'test', 'message': 'Hello'}"

// Capturer runs the capture pipeline.
type Capturer interface {
	Capture(ctx context.Context, req capture.Request) (capture.Result, error)
}

// CaptureHandlers serves inbound deliveries and the /test helper.
type CaptureHandlers struct {
	capturer     Capturer
	publicURL    string
	localURL     atomic.Pointer[string]
	client       *http.Client
	errorAdapter *errors.HTTPErrorAdapter
	now          func() time.Time
}

// NewCaptureHandlers creates capture handlers. publicURL overrides the base URL
// /test posts to; when empty the bound listener is used, see SetLocalAddr.
func NewCaptureHandlers(capturer Capturer, publicURL string, client *http.Client) *CaptureHandlers {
	if client == nil {
		client = &http.Client{Timeout: TestTimeout}
	}
	return &CaptureHandlers{
		capturer:     capturer,
		publicURL:    strings.TrimRight(publicURL, "/"),
		client:       client,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
		now:          time.Now,
	}
}

// HandleWebhook captures any POST body, whatever its content type.
func (h *CaptureHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("failed to read request body").
			WithCause(err).
			Build())
		return
	}

	headers := eventstore.HeadersFromHTTP(r.Header)
	if _, ok := headers.Get("host"); !ok && r.Host != "" {
		headers = append(eventstore.Headers{{Name: "host", Value: r.Host}}, headers...)
	}

	result, err := h.capturer.Capture(r.Context(), capture.Request{
		Headers: headers,
		Body:    raw,
		URL:     requestURL(r),
	})
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(w, r, h.errorAdapter, http.StatusOK, result)
}

type defaultTestPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// HandleTest posts a sample payload to this service's own /webhook endpoint.
func (h *CaptureHandlers) HandleTest(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError(invalidTestPayload).WithCause(err).Build())
		return
	}

	payload, err := h.testPayload(raw)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	target := h.baseURL(r) + "/webhook"
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), TestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, h.sendFailed(target, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", "webhookcatcher-test")

	resp, err := h.client.Do(req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, h.sendFailed(target, err))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	slog.InfoContext(r.Context(), "Test webhook sent",
		logfields.TargetURL(target),
		logfields.Status(resp.StatusCode))

	writeOrFail(w, r, h.errorAdapter, http.StatusOK, responses.TestResponse{
		Status:         "sent",
		ResponseStatus: resp.StatusCode,
		URL:            target,
		Payload:        json.RawMessage(payload),
	})
}

// testPayload returns the body to send: the caller's JSON, or the default
// payload when the body is empty or an empty object.
func (h *CaptureHandlers) testPayload(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) > 0 {
		v, err := fastjson.ParseBytes(raw)
		if err != nil {
			return nil, errors.ValidationError(invalidTestPayload).WithCause(err).Build()
		}
		if obj, oerr := v.Object(); oerr != nil || obj.Len() > 0 {
			return raw, nil
		}
	}
	return json.Marshal(defaultTestPayload{
		Event:     "test",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		Message:   "Test webhook payload",
	})
}

// SetLocalAddr records the listener /test falls back to when no public URL is
// configured. Unspecified hosts are dialed on loopback.
func (h *CaptureHandlers) SetLocalAddr(addr net.Addr) {
	if addr == nil {
		return
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	u := "http://" + net.JoinHostPort(host, port)
	h.localURL.Store(&u)
}

// baseURL never trusts the client's Host header once a listener is known.
func (h *CaptureHandlers) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	if u := h.localURL.Load(); u != nil {
		return *u
	}
	return requestScheme(r) + "://" + r.Host
}

func (h *CaptureHandlers) sendFailed(target string, err error) error {
	return errors.UpstreamError("Failed to send test webhook: "+err.Error()).
		WithContext("url", target).
		WithCause(err).
		Build()
}
