package api_test

import (
	"bytes"
	"math"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chotinc/api"
)

func registered(t *testing.T, d *api.RouteDescriptor) *api.RegisteredRoute {
	t.Helper()
	reg := api.NewRegistry().Register(d, noop)
	require.NoError(t, reg.Err())
	return reg.Routes()[0]
}

func updateRoute(body *api.Body) *api.RouteDescriptor {
	return api.MustRoute(http.MethodPut, "/organizations/{id}",
		api.Request{
			Path: api.Object(api.Field("id", api.Integer(api.Positive()))),
			Query: api.Object(
				api.Optional("limit", api.Integer(api.Minimum(1), api.Maximum(100), api.Default(20))),
				api.Optional("fields", api.Array(api.String())),
				api.Optional("dryRun", api.Boolean()),
			),
			Body: body,
		},
		api.Responses{http.StatusOK: api.NoContent("OK")},
	)
}

var updateBody = api.Object(
	api.Field("name", api.String(api.MinLength(1))),
	api.Optional("displayName", api.String(api.MaxLength(8))),
)

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(api.JSONBody(updateBody)))

	vr, err := api.ValidateRequest(rr, api.Incoming{
		Method:      http.MethodPut,
		Path:        "/organizations/1234",
		Query:       url.Values{"fields": {"a", "b"}, "dryRun": {"true"}, "ignored": {"x"}},
		Body:        []byte(`{"name":"chot-inc","extra":1}`),
		ContentType: "application/json; charset=utf-8",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"id": int64(1234)}, vr.Path)
	assert.Equal(t, map[string]any{"limit": int64(20), "fields": []any{"a", "b"}, "dryRun": true}, vr.Query)
	assert.Equal(t, map[string]any{"name": "chot-inc"}, vr.Body)
}

func TestValidateRequest_aggregatesViolations(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(api.JSONBody(updateBody)))

	_, err := api.ValidateRequest(rr, api.Incoming{
		Path:  "/organizations/abc",
		Query: url.Values{"limit": {"500"}},
		Body:  []byte(`{"displayName":"much too long"}`),
	})

	var pd *api.ProblemDetail
	require.ErrorAs(t, err, &pd)
	assert.Equal(t, http.StatusBadRequest, pd.Status)

	fields := make([]string, len(pd.Errors))
	for i, e := range pd.Errors {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"path.id", "query.limit", "body.name", "body.displayName"}, fields)
}

func TestValidateRequest_paramsTakePrecedence(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(nil))

	vr, err := api.ValidateRequest(rr, api.Incoming{
		Path:   "/ignored",
		Params: map[string]string{"id": "9"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), vr.Path["id"])
}

func TestValidateRequest_pathMismatch(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(nil))

	_, err := api.ValidateRequest(rr, api.Incoming{Path: "/users/1"})
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestValidateRequest_methodMismatch(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(nil))

	_, err := api.ValidateRequest(rr, api.Incoming{Method: http.MethodDelete, Path: "/organizations/1"})
	require.ErrorIs(t, err, api.ErrMethodNotAllowed)
	assert.Equal(t, http.StatusMethodNotAllowed, api.ErrorStatus(err))
}

func TestValidateRequest_body(t *testing.T) {
	t.Parallel()

	packed, err := msgpack.Marshal(map[string]any{"name": "packed"})
	require.NoError(t, err)

	tests := map[string]struct {
		body        *api.Body
		payload     []byte
		contentType string
		want        any
		constraint  string
	}{
		"missing required body": {
			body:       api.JSONBody(updateBody),
			constraint: "required",
		},
		"whitespace is empty": {
			body:       api.JSONBody(updateBody),
			payload:    []byte("  \n"),
			constraint: "required",
		},
		"omitted optional body": {
			body: &api.Body{Schema: updateBody, Optional: true},
		},
		"malformed json": {
			body:       api.JSONBody(updateBody),
			payload:    []byte(`{"name":`),
			constraint: "syntax",
		},
		"trailing data": {
			body:       api.JSONBody(updateBody),
			payload:    []byte(`{"name":"a"} {}`),
			constraint: "syntax",
		},
		"wrong content type": {
			body:        api.JSONBody(updateBody),
			payload:     []byte(`name=a`),
			contentType: api.ContentTypeForm,
			constraint:  "contentType",
		},
		"yaml": {
			body:        &api.Body{Schema: updateBody, ContentType: api.ContentTypeYAML},
			payload:     []byte("name: from-yaml\n"),
			contentType: api.ContentTypeYAML,
			want:        map[string]any{"name": "from-yaml"},
		},
		"msgpack": {
			body:        &api.Body{Schema: updateBody, ContentType: api.ContentTypeMsgPack},
			payload:     packed,
			contentType: api.ContentTypeMsgPack,
			want:        map[string]any{"name": "packed"},
		},
		"form": {
			body:        &api.Body{Schema: updateBody, ContentType: api.ContentTypeForm},
			payload:     []byte("name=formed&displayName=F"),
			contentType: api.ContentTypeForm,
			want:        map[string]any{"name": "formed", "displayName": "F"},
		},
		"json number is coerced": {
			body:    api.JSONBody(api.Object(api.Field("count", api.Integer()))),
			payload: []byte(`{"count": 12}`),
			want:    map[string]any{"count": int64(12)},
		},
		"array body": {
			body:    api.JSONBody(api.Array(api.Integer())),
			payload: []byte(`[1, "2", 3.0]`),
			want:    []any{int64(1), int64(2), int64(3)},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rr := registered(t, updateRoute(tc.body))
			vr, err := api.ValidateRequest(rr, api.Incoming{
				Path:        "/organizations/1",
				Body:        tc.payload,
				ContentType: tc.contentType,
			})

			if tc.constraint != "" {
				var pd *api.ProblemDetail
				require.ErrorAs(t, err, &pd)
				require.Len(t, pd.Errors, 1)
				assert.Equal(t, "body", pd.Errors[0].Field)
				assert.Equal(t, tc.constraint, pd.Errors[0].Constraint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, vr.Body)
		})
	}
}

func TestValidateRequest_msgpackIntegerRange(t *testing.T) {
	t.Parallel()

	body := &api.Body{
		Schema:      api.Object(api.Field("n", api.Integer())),
		ContentType: api.ContentTypeMsgPack,
	}
	rr := registered(t, updateRoute(body))

	tests := map[string]struct {
		n     uint64
		want  int64
		field string
	}{
		"fits int64": {n: math.MaxInt64, want: math.MaxInt64},
		"overflows":  {n: math.MaxUint64, field: "body.n"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			packed, err := msgpack.Marshal(map[string]uint64{"n": tc.n})
			require.NoError(t, err)

			vr, err := api.ValidateRequest(rr, api.Incoming{
				Path:        "/organizations/1",
				Body:        packed,
				ContentType: api.ContentTypeMsgPack,
			})
			if tc.field != "" {
				var pd *api.ProblemDetail
				require.ErrorAs(t, err, &pd)
				assert.Equal(t, []string{tc.field}, api.ValidationErrors(pd.Errors).Fields())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"n": tc.want}, vr.Body)
		})
	}
}

func TestValidateRequest_doesNotMutateInput(t *testing.T) {
	t.Parallel()

	rr := registered(t, updateRoute(api.JSONBody(updateBody)))
	payload := []byte(`{"name":"x"}`)
	original := bytes.Clone(payload)
	query := url.Values{"limit": {"5"}}

	_, err := api.ValidateRequest(rr, api.Incoming{Path: "/organizations/1", Query: query, Body: payload})
	require.NoError(t, err)

	assert.Equal(t, original, payload)
	assert.Equal(t, url.Values{"limit": {"5"}}, query)
}
