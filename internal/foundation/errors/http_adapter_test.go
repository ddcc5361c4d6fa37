package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("invalid target URL").Build(), http.StatusBadRequest},
		{"auth", AuthError("unauthorized").Build(), http.StatusUnauthorized},
		{"not found", NotFoundError("webhook 9 not found").Build(), http.StatusNotFound},
		{"upstream", UpstreamError("failed to replay webhook").Build(), http.StatusInternalServerError},
		{"storage", StorageError("failed to append").Build(), http.StatusInternalServerError},
		{"unclassified", &customHTTPError{msg: "unknown error"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	t.Run("auth error carries challenge header", func(t *testing.T) {
		err := AuthError("admin token required").WithChallenge("Bearer").Build()
		req := httptest.NewRequest(http.MethodPost, "/clear", nil)
		w := httptest.NewRecorder()

		adapter.WriteErrorResponse(w, req, err)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp HTTPErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "admin token required", resp.Error)
		assert.Equal(t, "auth", resp.Code)
		assert.Nil(t, resp.Details, "challenge must not leak into details")
	})

	t.Run("context becomes details", func(t *testing.T) {
		err := ValidationError("invalid target URL").WithContext("target_url", "not-a-url").Build()
		w := httptest.NewRecorder()

		adapter.WriteErrorResponse(w, nil, err)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp HTTPErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "not-a-url", resp.Details["target_url"])
	})

	t.Run("unclassified error", func(t *testing.T) {
		w := httptest.NewRecorder()
		adapter.WriteErrorResponse(w, nil, &customHTTPError{msg: "boom"})

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var resp HTTPErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "boom", resp.Error)
		assert.Equal(t, "internal", resp.Code)
	})
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 2, adapter.ExitCodeFor(ValidationError("bad flag").Build()))
	assert.Equal(t, 7, adapter.ExitCodeFor(ConfigError("bad env").Build()))
	assert.Equal(t, 11, adapter.ExitCodeFor(StorageError("disk full").Build()))
	assert.Equal(t, 1, adapter.ExitCodeFor(&customHTTPError{msg: "x"}))
}

// customHTTPError is a test helper for unclassified errors
type customHTTPError struct {
	msg string
}

func (e *customHTTPError) Error() string {
	return e.msg
}
