package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type requestID string

// RequestIDOption configures the RequestID middleware.
type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	header    string
	generator func() string
}

// RequestIDHeader sets the header carrying the ID. Default: X-Request-ID.
func RequestIDHeader(name string) RequestIDOption {
	return func(c *requestIDConfig) {
		c.header = name
	}
}

// RequestIDGenerator sets the ID generator. Default: 16 random bytes, hex.
func RequestIDGenerator(fn func() string) RequestIDOption {
	return func(c *requestIDConfig) {
		c.generator = fn
	}
}

// RequestID returns middleware that assigns an ID to each request. An ID
// already present in the request header is kept. The ID is echoed in the
// response header and is available to handlers and the Logger middleware.
func RequestID(opts ...RequestIDOption) Middleware {
	c := requestIDConfig{
		header:    "X-Request-ID",
		generator: randomID,
	}
	for _, opt := range opts {
		opt(&c)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(c.header)
			if id == "" {
				id = c.generator()
			}
			w.Header().Set(c.header, id)
			next.ServeHTTP(w, SetValue(r, requestID(id)))
		})
	}
}

// GetRequestID extracts the request ID from the request context.
func GetRequestID(r *http.Request) string {
	id, _ := GetValue[requestID](r.Context())
	return string(id)
}

func randomID() string {
	b := make([]byte, 16)
	//nolint:errcheck,gosec // crypto/rand.Read always returns nil error
	rand.Read(b)
	return hex.EncodeToString(b)
}
