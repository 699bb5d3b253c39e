package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotinc/api"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		opts      []api.RequestIDOption
		reqHeader http.Header
		header    string
		check     func(t *testing.T, id string)
	}{
		"generated when absent": {
			header: "X-Request-ID",
			check: func(t *testing.T, id string) {
				t.Helper()
				assert.Len(t, id, 32)
			},
		},
		"incoming id is kept": {
			reqHeader: http.Header{"X-Request-Id": {"my-custom-id-123"}},
			header:    "X-Request-ID",
			check: func(t *testing.T, id string) {
				t.Helper()
				assert.Equal(t, "my-custom-id-123", id)
			},
		},
		"custom header": {
			opts:   []api.RequestIDOption{api.RequestIDHeader("X-Trace-ID")},
			header: "X-Trace-ID",
			check: func(t *testing.T, id string) {
				t.Helper()
				assert.Len(t, id, 32)
			},
		},
		"custom generator": {
			opts:   []api.RequestIDOption{api.RequestIDGenerator(func() string { return "fixed" })},
			header: "X-Request-ID",
			check: func(t *testing.T, id string) {
				t.Helper()
				assert.Equal(t, "fixed", id)
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var seen string
			handler := api.RequestID(tc.opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = api.GetRequestID(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, vs := range tc.reqHeader {
				req.Header[k] = vs
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			id := rec.Header().Get(tc.header)
			tc.check(t, id)
			assert.Equal(t, id, seen)
		})
	}
}

func TestRequestID_unique(t *testing.T) {
	t.Parallel()

	handler := api.RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	seen := make(map[string]bool)
	for range 50 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get("X-Request-ID")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGetRequestID_reachesHandler(t *testing.T) {
	t.Parallel()

	d := api.MustRoute(http.MethodGet, "/whoami", api.Request{},
		api.Responses{http.StatusOK: api.JSON(api.Object(api.Field("requestId", api.String())), "")})

	type reqIDKey struct{}
	h := api.Bind(func(ctx context.Context, _ *api.Void) (*map[string]string, error) {
		id, _ := ctx.Value(reqIDKey{}).(string)
		return &map[string]string{"requestId": id}, nil
	})

	r := api.MustRouter(api.NewRegistry().Register(d, h))
	r.Use(api.RequestID(), func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), reqIDKey{}, api.GetRequestID(req))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requestId":"abc"}`, rec.Body.String())
	assert.Empty(t, api.GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil)))
}
