// Package apitest provides typed test helpers for routers built with the
// api package.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chotinc/api"
)

// Client wraps an httptest.Server for convenient API testing.
type Client struct {
	Server *httptest.Server
	Header http.Header
}

// NewClient starts a test server for h, closed when the test ends.
func NewClient(t testing.TB, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{Server: srv, Header: make(http.Header)}
}

// Response holds a decoded API response. Body is set for successful JSON
// responses and Problem for problem documents.
type Response[T any] struct {
	Status  int
	Headers http.Header
	Body    *T
	Problem *api.ProblemDetail
	Raw     []byte
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodGet, path, nil)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPost, path, payload(body))
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPut, path, payload(body))
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodPatch, path, payload(body))
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string) *Response[Resp] {
	t.Helper()
	return do[Resp](t, c, http.MethodDelete, path, nil)
}

// Raw sends body as-is with the given content type, for requests a typed
// helper cannot express (malformed JSON, other media types).
func Raw[Resp any](t testing.TB, c *Client, method, path, contentType string, body []byte) *Response[Resp] {
	t.Helper()
	return send[Resp](t, c, method, path, contentType, bytes.NewReader(body))
}

// payload keeps a nil *Req from being sent as a JSON null.
func payload[Req any](body *Req) any {
	if body == nil {
		return nil
	}
	return body
}

func do[Resp any](t testing.TB, c *Client, method, path string, body any) *Response[Resp] {
	t.Helper()

	if body == nil {
		return send[Resp](t, c, method, path, "", nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("apitest: marshal request body: %v", err)
	}
	return send[Resp](t, c, method, path, api.ContentTypeJSON, bytes.NewReader(b))
}

func send[Resp any](t testing.TB, c *Client, method, path, contentType string, body io.Reader) *Response[Resp] {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, c.Server.URL+path, body)
	if err != nil {
		t.Fatalf("apitest: create request: %v", err)
	}
	for k, vs := range c.Header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("apitest: execute request: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("apitest: close body: %v", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("apitest: read body: %v", err)
	}

	result := &Response[Resp]{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Raw:     raw,
	}
	if len(raw) == 0 {
		return result
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), api.ContentTypeProblem) {
		var p api.ProblemDetail
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("apitest: decode problem: %v", err)
		}
		result.Problem = &p
		return result
	}

	var decoded Resp
	if err := json.Unmarshal(raw, &decoded); err == nil {
		result.Body = &decoded
	}
	return result
}
