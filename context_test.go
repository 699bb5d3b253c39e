package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chotinc/api"
	"github.com/chotinc/api/apitest"
)

func TestGetValue(t *testing.T) {
	t.Parallel()

	type tenantID string
	type callerID string

	r := httptest.NewRequest(http.MethodGet, "/organizations", nil)

	_, ok := api.GetValue[tenantID](r.Context())
	assert.False(t, ok)

	r = api.SetValue[tenantID](r, "tenant-1")
	r = api.SetValue[callerID](r, "caller-9")
	r = api.SetValue[int](r, 42)

	tenant, ok := api.GetValue[tenantID](r.Context())
	assert.True(t, ok)
	assert.Equal(t, tenantID("tenant-1"), tenant)

	caller, ok := api.GetValue[callerID](r.Context())
	assert.True(t, ok)
	assert.Equal(t, callerID("caller-9"), caller)

	n, ok := api.GetValue[int](r.Context())
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	s, ok := api.GetValue[string](r.Context())
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestSetValue_reachesHandler(t *testing.T) {
	t.Parallel()

	type principal struct {
		Subject string
		Admin   bool
	}

	d := api.MustRoute(http.MethodGet, "/userinfo", api.Request{},
		api.Responses{http.StatusOK: api.JSON(api.Object(api.Field("sub", api.String())), "")})
	h := api.Bind(func(ctx context.Context, _ *api.Void) (*map[string]string, error) {
		p, ok := api.GetValue[principal](ctx)
		if !ok {
			return nil, api.Error(http.StatusUnauthorized, "no principal")
		}
		return &map[string]string{"sub": p.Subject}, nil
	})

	r := api.MustRouter(api.NewRegistry().Register(d, h))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, api.SetValue(req, principal{Subject: "auth0|42", Admin: true}))
		})
	})

	resp := apitest.Get[map[string]string](t, apitest.NewClient(t, r), "/userinfo")
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "auth0|42", (*resp.Body)["sub"])
}

func TestRouteFromContext_outsideDispatch(t *testing.T) {
	t.Parallel()

	d, ok := api.RouteFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, d)
}
