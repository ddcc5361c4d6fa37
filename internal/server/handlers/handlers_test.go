package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/webhookcatcher/internal/capture"
	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/forward"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
	"git.home.luguber.info/inful/webhookcatcher/internal/replay"
)

func newStore(t *testing.T) *eventstore.SQLiteStore {
	t.Helper()
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandleWebhook_CapturesBody(t *testing.T) {
	store := newStore(t)
	svc := capture.NewService(store, forward.New(forward.Options{}), nil, nil)
	h := NewCaptureHandlers(svc, "", nil)

	req := httptest.NewRequest(http.MethodPost, "http://catcher.local/webhook", strings.NewReader(`{"event":"push"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, true, out["is_json"])
	assert.Equal(t, `{"event":"push"}`, out["received_body"])
	assert.Equal(t, "disabled", out["forwarding"].(map[string]any)["status"])

	stored, err := store.Get(testContext(t), int64(out["id"].(float64)))
	require.NoError(t, err)
	assert.Equal(t, "catcher.local", stored.Headers.Value("host"))
	assert.Equal(t, "application/json", stored.Headers.Value("content-type"))
}

func TestHandleWebhook_EmptyBody(t *testing.T) {
	store := newStore(t)
	h := NewCaptureHandlers(capture.NewService(store, forward.New(forward.Options{}), nil, nil), "", nil)

	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "", out["received_body"])
	assert.Equal(t, false, out["is_json"])

	stored, err := store.Get(testContext(t), int64(out["id"].(float64)))
	require.NoError(t, err)
	assert.Empty(t, stored.Body)
}

type failingCapturer struct{}

func (failingCapturer) Capture(context.Context, capture.Request) (capture.Result, error) {
	return capture.Result{}, eventstore.ErrEventAppendFailed
}

func TestHandleWebhook_StorageFailure(t *testing.T) {
	h := NewCaptureHandlers(failingCapturer{}, "", nil)
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("x")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage", decode(t, rec)["code"])
}

type recordingServer struct {
	mu     sync.Mutex
	bodies []string
	paths  []string
}

func (s *recordingServer) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, string(b))
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestHandleTest_DefaultPayload(t *testing.T) {
	rs := &recordingServer{}
	srv := httptest.NewServer(rs.handler(http.StatusOK))
	defer srv.Close()

	h := NewCaptureHandlers(failingCapturer{}, srv.URL+"/", srv.Client())
	h.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	for _, body := range []string{"", "{}", "  {} "} {
		rec := httptest.NewRecorder()
		h.HandleTest(rec, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		out := decode(t, rec)
		assert.Equal(t, "sent", out["status"])
		assert.Equal(t, srv.URL+"/webhook", out["url"])
		assert.InDelta(t, 200, out["response_status"], 0)
		payload := out["payload"].(map[string]any)
		assert.Equal(t, "test", payload["event"])
		assert.Equal(t, "Test webhook payload", payload["message"])
		assert.Equal(t, "2024-01-02T03:04:05Z", payload["timestamp"])
	}
	assert.Equal(t, []string{"/webhook", "/webhook", "/webhook"}, rs.paths)
}

func TestHandleTest_CustomPayload(t *testing.T) {
	rs := &recordingServer{}
	srv := httptest.NewServer(rs.handler(http.StatusAccepted))
	defer srv.Close()

	h := NewCaptureHandlers(failingCapturer{}, srv.URL, srv.Client())
	rec := httptest.NewRecorder()
	h.HandleTest(rec, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"event":"custom"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 202, decode(t, rec)["response_status"], 0)
	assert.Equal(t, []string{`{"event":"custom"}`}, rs.bodies)
}

func TestHandleTest_IgnoresClientHostOnceListenerKnown(t *testing.T) {
	rs := &recordingServer{}
	srv := httptest.NewServer(rs.handler(http.StatusOK))
	defer srv.Close()

	h := NewCaptureHandlers(failingCapturer{}, "", srv.Client())
	h.SetLocalAddr(srv.Listener.Addr())

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Host = "attacker.example:9999"
	rec := httptest.NewRecorder()
	h.HandleTest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, srv.URL+"/webhook", decode(t, rec)["url"])
	assert.Equal(t, []string{"/webhook"}, rs.paths)
}

func TestSetLocalAddrUsesLoopbackForUnspecifiedHost(t *testing.T) {
	h := NewCaptureHandlers(failingCapturer{}, "", nil)
	h.SetLocalAddr(&net.TCPAddr{IP: net.IPv4zero, Port: 8000})

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Host = "attacker.example"
	assert.Equal(t, "http://127.0.0.1:8000", h.baseURL(req))

	withPublic := NewCaptureHandlers(failingCapturer{}, "https://hooks.example.com/", nil)
	withPublic.SetLocalAddr(&net.TCPAddr{IP: net.IPv4zero, Port: 8000})
	assert.Equal(t, "https://hooks.example.com", withPublic.baseURL(req))
}

func TestHandleTest_InvalidJSON(t *testing.T) {
	h := NewCaptureHandlers(failingCapturer{}, "http://unused.invalid", nil)
	rec := httptest.NewRecorder()
	h.HandleTest(rec, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, invalidTestPayload, decode(t, rec)["error"])
}

func TestHandleTest_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h := NewCaptureHandlers(failingCapturer{}, url, nil)
	rec := httptest.NewRecorder()
	h.HandleTest(rec, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Failed to send test webhook")
}

func seedEvents(t *testing.T, store eventstore.Store, bodies ...string) {
	t.Helper()
	for _, b := range bodies {
		_, err := store.Append(testContext(t), eventstore.Headers{
			{Name: "authorization", Value: "Bearer secret"},
			{Name: "content-type", Value: "application/json"},
			{Name: "user-agent", Value: "curl/8"},
			{Name: "x-forwarded-for", Value: "10.0.0.1"},
		}, b)
		require.NoError(t, err)
	}
}

func TestHandleLogs_JSON(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, `{"n":1}`, "plain text", `{"n":3}`)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	req := httptest.NewRequest(http.MethodGet, "/logs?limit=2", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleLogs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.InDelta(t, 3, out["total_count"], 0)
	assert.InDelta(t, 3, out["count"], 0)
	assert.Equal(t, true, out["has_more"])
	assert.Equal(t, false, out["empty"])

	logs := out["logs"].([]any)
	require.Len(t, logs, 2)
	first := logs[0].(map[string]any)
	assert.Equal(t, `{"n":3}`, first["body"])
	assert.Equal(t, map[string]any{"n": float64(3)}, first["parsed_body"])
	assert.Nil(t, first["matches"])

	headers := first["headers"].(map[string]any)
	assert.Equal(t, headerpolicy.RedactedValue, headers["authorization"])
	assert.Equal(t, "application/json", headers["content-type"])

	meta := first["metadata"].(map[string]any)
	assert.Equal(t, "10.0.0.1", meta["ip"])
	assert.Equal(t, "curl/8", meta["user_agent"])
	assert.Equal(t, "Unknown", meta["source"])
	assert.Nil(t, meta["timestamp"])

	second := logs[1].(map[string]any)
	assert.Nil(t, second["parsed_body"])
}

func TestHandleLogs_SearchMatches(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, `{"order":"alpha"}`, `{"order":"beta"}`)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	req := httptest.NewRequest(http.MethodGet, "/logs?search=beta", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleLogs(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.InDelta(t, 1, out["total_count"], 0)
	logs := out["logs"].([]any)
	require.Len(t, logs, 1)
	matches := logs[0].(map[string]any)["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "beta", matches[0].(map[string]any)["term"])
}

func TestHandleLogs_HTMLFragment(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, `<script>alert(1)</script>`)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	rec := httptest.NewRecorder()
	h.HandleLogs(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `id="log-1"`)
	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "Bearer secret")
	assert.NotContains(t, body, "<!DOCTYPE html>")
}

func TestHandleLogs_EmptyHTML(t *testing.T) {
	h := NewBrowseHandlers(newStore(t), headerpolicy.Sensitive())
	rec := httptest.NewRecorder()
	h.HandleLogs(rec, httptest.NewRequest(http.MethodGet, "/logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No webhooks captured yet.")
}

func TestHandleLogs_InvalidParams(t *testing.T) {
	h := NewBrowseHandlers(newStore(t), headerpolicy.Sensitive())
	for _, target := range []string{"/logs?offset=abc", "/logs?limit=1.5"} {
		rec := httptest.NewRecorder()
		h.HandleLogs(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandleLogsView(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 12; i++ {
		seedEvents(t, store, "x")
	}
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	rec := httptest.NewRecorder()
	h.HandleLogsView(rec, httptest.NewRequest(http.MethodGet, "/logs/view", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, "Showing 10 of 12")
	assert.Equal(t, ViewLimit, strings.Count(body, `<article class="log"`))
	assert.Contains(t, body, "offset=10")
}

func TestHandleExport(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, `{"a":1}`, `{"a":2}`)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	rec := httptest.NewRecorder()
	h.HandleExport(rec, httptest.NewRequest(http.MethodGet, "/export?format=csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=webhooks.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,timestamp,headers,body\n"))

	rec = httptest.NewRecorder()
	h.HandleExport(rec, httptest.NewRequest(http.MethodGet, "/export", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var events []eventstore.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 2)
}

func TestHandleExport_UnsupportedFormat(t *testing.T) {
	h := NewBrowseHandlers(newStore(t), headerpolicy.Sensitive())
	rec := httptest.NewRecorder()
	h.HandleExport(rec, httptest.NewRequest(http.MethodGet, "/export?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhooks(t *testing.T) {
	store := newStore(t)
	long := strings.Repeat("é", 150)
	seedEvents(t, store, "short", long)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	rec := httptest.NewRecorder()
	h.HandleWebhooks(rec, httptest.NewRequest(http.MethodGet, "/webhooks?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.InDelta(t, 1, out["count"], 0)
	assert.InDelta(t, 2, out["total_count"], 0)
	entry := out["webhooks"].([]any)[0].(map[string]any)
	assert.Equal(t, strings.Repeat("é", 100)+"...", entry["body_preview"])
	assert.Equal(t, "application/json", entry["content_type"])
	assert.InDelta(t, len(long), entry["size_bytes"], 0)
}

func TestHandleWebhooks_NonPositiveLimitUsesEndpointDefault(t *testing.T) {
	store := newStore(t)
	bodies := make([]string, WebhooksDefaultLimit+5)
	for i := range bodies {
		bodies[i] = fmt.Sprintf(`{"n":%d}`, i)
	}
	seedEvents(t, store, bodies...)
	h := NewBrowseHandlers(store, headerpolicy.Sensitive())

	for _, q := range []string{"", "?limit=0", "?limit=-3"} {
		rec := httptest.NewRecorder()
		h.HandleWebhooks(rec, httptest.NewRequest(http.MethodGet, "/webhooks"+q, nil))

		require.Equal(t, http.StatusOK, rec.Code, q)
		out := decode(t, rec)
		assert.InDelta(t, WebhooksDefaultLimit, out["count"], 0, q)
		assert.InDelta(t, len(bodies), out["total_count"], 0, q)
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", preview(""))
	assert.Equal(t, strings.Repeat("a", 100), preview(strings.Repeat("a", 100)))
	assert.Equal(t, strings.Repeat("a", 100)+"...", preview(strings.Repeat("a", 101)))
}

func replayRouter(h *AdminHandlers) http.Handler {
	r := chi.NewRouter()
	r.Post("/replay/{id}", h.HandleReplay)
	r.Post("/clear", h.HandleClear)
	return r
}

func TestHandleReplay(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, `{"replay":true}`)

	rs := &recordingServer{}
	srv := httptest.NewServer(rs.handler(http.StatusOK))
	defer srv.Close()

	router := replayRouter(NewAdminHandlers(replay.New(store, srv.Client(), nil), store, nil))

	t.Run("query target", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/replay/1?target_url="+srv.URL, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		out := decode(t, rec)
		assert.Equal(t, "replayed", out["status"])
		assert.InDelta(t, 1, out["webhook_id"], 0)
		assert.Equal(t, srv.URL, out["target_url"])
	})

	t.Run("json body target", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/replay/1",
			strings.NewReader(`{"target_url":"`+srv.URL+`"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	assert.Equal(t, []string{`{"replay":true}`, `{"replay":true}`}, rs.bodies)

	cases := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"missing target", "/replay/1", "", http.StatusBadRequest},
		{"invalid target", "/replay/1?target_url=not-a-url", "", http.StatusBadRequest},
		{"bad json", "/replay/1", "{", http.StatusBadRequest},
		{"bad id", "/replay/abc?target_url=" + srv.URL, "", http.StatusBadRequest},
		{"unknown id", "/replay/999?target_url=" + srv.URL, "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleReplay_DownstreamFailure(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, "x")
	srv := httptest.NewServer((&recordingServer{}).handler(http.StatusBadGateway))
	defer srv.Close()

	router := replayRouter(NewAdminHandlers(replay.New(store, srv.Client(), nil), store, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/replay/1?target_url="+srv.URL, nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "upstream", decode(t, rec)["code"])
}

func TestHandleClear(t *testing.T) {
	store := newStore(t)
	seedEvents(t, store, "a", "b")
	router := replayRouter(NewAdminHandlers(replay.New(store, nil, nil), store, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "cleared", out["status"])
	assert.InDelta(t, 2, out["deleted"], 0)

	n, err := store.Count(testContext(t))
	require.NoError(t, err)
	assert.Zero(t, n)
}

type pingStore struct {
	count int64
	err   error
}

func (s pingStore) Count(context.Context) (int64, error) { return s.count, nil }
func (s pingStore) Ping(context.Context) error           { return s.err }

func TestHandleConfig(t *testing.T) {
	h := NewMonitoringHandlers(pingStore{count: 7}, Features{
		ForwardingURL:   "https://downstream.example/hook",
		ForwardingToken: true,
		AdminProtected:  true,
	})
	rec := httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, true, out["forwarding_enabled"])
	assert.Equal(t, "https://downstream.example/hook", out["forwarding_url"])
	assert.Equal(t, true, out["authentication_enabled"])
	assert.Equal(t, true, out["admin_protection_enabled"])
	assert.Equal(t, false, out["password_protection_enabled"])
	assert.InDelta(t, 7, out["total_webhooks"], 0)

	h = NewMonitoringHandlers(pingStore{}, Features{})
	rec = httptest.NewRecorder()
	h.HandleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	out = decode(t, rec)
	assert.Equal(t, false, out["forwarding_enabled"])
	assert.Nil(t, out["forwarding_url"])
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewMonitoringHandlers(pingStore{}, Features{AdminProtected: true})
	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, true, out["admin_protected"])

	h = NewMonitoringHandlers(pingStore{err: errors.New("disk gone")}, Features{})
	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
}
