package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotinc/api"
)

// logEntry decodes the single JSON line the Logger middleware wrote.
func logEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		method, path string
		wantStatus   float64
		wantLevel    string
		wantRoute    any
	}{
		"matched route": {
			method:     http.MethodGet,
			path:       "/organizations/1234",
			wantStatus: http.StatusOK,
			wantLevel:  "INFO",
			wantRoute:  "/organizations/{id}",
		},
		"invalid parameter": {
			method:     http.MethodGet,
			path:       "/organizations/abc",
			wantStatus: http.StatusBadRequest,
			wantLevel:  "WARN",
			wantRoute:  "/organizations/{id}",
		},
		"unmatched path": {
			method:     http.MethodGet,
			path:       "/nonexistent",
			wantStatus: http.StatusNotFound,
			wantLevel:  "WARN",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			r := api.MustRouter(orgRegistry())
			r.Use(api.Logger(slog.New(slog.NewJSONHandler(&buf, nil))))

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			entry := logEntry(t, &buf)
			assert.Equal(t, "request", entry["msg"])
			assert.Equal(t, tc.wantLevel, entry["level"])
			assert.Equal(t, tc.method, entry["method"])
			assert.Equal(t, tc.path, entry["path"])
			assert.Equal(t, tc.wantStatus, entry["status"])
			assert.Equal(t, tc.wantRoute, entry["route"])
			assert.InDelta(t, rec.Body.Len(), entry["size"], 0)
		})
	}
}

func TestLogger_serverError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := api.Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/upstream", nil))

	entry := logEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.NotContains(t, entry, "route")
}

func TestLogger_unwrapResponseController(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := api.Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			// Flush reaches the recorder through Unwrap.
			require.NoError(t, http.NewResponseController(w).Flush())
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/flush", nil))

	assert.True(t, rec.Flushed)
	assert.Equal(t, "request", logEntry(t, &buf)["msg"])
}

func TestLogger_withRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := api.MustRouter(orgRegistry())
	r.Use(api.RequestID(), api.Logger(slog.New(slog.NewJSONHandler(&buf, nil))))

	req := httptest.NewRequest(http.MethodGet, "/organizations/1", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "req-abc", logEntry(t, &buf)["request_id"])
}
