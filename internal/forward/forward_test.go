package forward

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/webhookcatcher/internal/eventstore"
	"git.home.luguber.info/inful/webhookcatcher/internal/headerpolicy"
)

type captured struct {
	mu      sync.Mutex
	headers http.Header
	body    string
}

func (c *captured) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.headers = r.Header.Clone()
		c.body = string(b)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func TestRelayDisabled(t *testing.T) {
	f := New(Options{})

	res := f.Relay(context.Background(), nil, "{}", "http://catcher/webhook")

	assert.Equal(t, Result{Status: StatusDisabled, Message: "Forwarding not configured"}, res)
	assert.False(t, f.Enabled())
}

func TestRelaySuccessCarriesBodyAndHeaders(t *testing.T) {
	var got captured
	srv := httptest.NewServer(got.handler(http.StatusAccepted))
	defer srv.Close()

	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f := New(Options{
		URL:       srv.URL,
		Token:     "downstream-token",
		Sensitive: headerpolicy.Sensitive(),
		Now:       func() time.Time { return fixed },
	})
	headers := eventstore.Headers{
		{Name: "content-type", Value: "text/plain"},
		{Name: "authorization", Value: "Bearer inbound"},
		{Name: "cookie", Value: "session=1"},
		{Name: "x-github-event", Value: "push"},
	}

	res := f.Relay(context.Background(), headers, `{"a":1}`, "http://catcher/webhook?x=1")

	require.Equal(t, StatusSuccess, res.Status, res.Error)
	assert.Equal(t, srv.URL, res.TargetURL)
	assert.Equal(t, http.StatusAccepted, res.ResponseStatus)
	assert.NotEmpty(t, res.DeliveryID)
	assert.GreaterOrEqual(t, res.ResponseTimeMS, int64(0))

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, `{"a":1}`, got.body)
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "http://catcher/webhook?x=1", got.headers.Get(HeaderForwardedFrom))
	assert.Equal(t, "2024-06-01T10:00:00Z", got.headers.Get(HeaderOriginalTimestamp))
	assert.Equal(t, "Bearer downstream-token", got.headers.Get("Authorization"))
	assert.Equal(t, res.DeliveryID, got.headers.Get(HeaderDeliveryID))
	assert.Equal(t, "push", got.headers.Get("X-Original-X-Github-Event"))
	assert.Equal(t, "text/plain", got.headers.Get("X-Original-Content-Type"))
	// Sensitive headers never leave the service.
	assert.Empty(t, got.headers.Get("X-Original-Authorization"))
	assert.Empty(t, got.headers.Get("X-Original-Cookie"))
}

func TestRelayWithoutTokenSendsNoAuthorization(t *testing.T) {
	var got captured
	srv := httptest.NewServer(got.handler(http.StatusOK))
	defer srv.Close()

	res := New(Options{URL: srv.URL, Sensitive: headerpolicy.Sensitive()}).
		Relay(context.Background(), eventstore.Headers{{Name: "authorization", Value: "x"}}, "", "u")

	require.Equal(t, StatusSuccess, res.Status)
	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Empty(t, got.headers.Get("Authorization"))
}

func TestRelayNon2xxIsError(t *testing.T) {
	var got captured
	srv := httptest.NewServer(got.handler(http.StatusBadGateway))
	defer srv.Close()

	res := New(Options{URL: srv.URL}).Relay(context.Background(), nil, "{}", "u")

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, http.StatusBadGateway, res.ResponseStatus)
	assert.Contains(t, res.Error, "502")
}

func TestRelayNetworkFailureIsReported(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := New(Options{URL: url}).Relay(context.Background(), nil, "{}", "u")

	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, url, res.TargetURL)
	assert.NotEmpty(t, res.Error)
}

func TestRelayTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := New(Options{URL: srv.URL})
	f.timeout = 50 * time.Millisecond

	res := f.Relay(context.Background(), nil, "{}", "u")

	assert.Equal(t, StatusError, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestRelayIgnoresCallerCancellation(t *testing.T) {
	var got captured
	srv := httptest.NewServer(got.handler(http.StatusOK))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(Options{URL: srv.URL}).Relay(ctx, nil, "{}", "u")

	assert.Equal(t, StatusSuccess, res.Status)
}
