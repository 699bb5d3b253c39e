package api_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotinc/api"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := api.MustRouter(orgRegistry())
	r.Use(
		api.Recovery(slog.New(slog.NewJSONHandler(&buf, nil))),
		func(http.Handler) http.Handler {
			return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic("auth backend down")
			})
		},
	)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/organizations/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, api.ContentTypeProblem, rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "auth backend down")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "auth backend down")
}

func TestRecovery_nilLogger(t *testing.T) {
	t.Parallel()

	handler := api.Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_ordering(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) api.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				order = append(order, name)
				w.Header().Add("X-Chain", name)
				next.ServeHTTP(w, req)
			})
		}
	}

	r := api.MustRouter(orgRegistry())
	r.Use(mark("first"))
	r.Use(mark("second"), mark("third"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/organizations/1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, []string{"first", "second", "third"}, rec.Header().Values("X-Chain"))
}
