package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// defaultMaxBodySize bounds request bodies of routes without WithBodyLimit.
const defaultMaxBodySize = 1 << 20

// Router dispatches HTTP requests to the routes of a Registry. It is
// built once from a finished registry and is safe for concurrent use.
// It implements http.Handler.
type Router struct {
	registry   *Registry
	table      *routeTable
	middleware []Middleware

	title       string
	version     string
	description string
	servers     []Server
	tagDescs    map[string]string
	basePath    string
	specPaths   map[string]string

	validator         Validator
	errorHandler      ErrorHandler
	validateResponses bool
	maxBodySize       int64

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry

	tracer  SpanStarter
	logger  *slog.Logger
	metrics *Metrics

	specOnce sync.Once
	spec     *Document
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTitle sets the API title (used in OpenAPI spec).
func WithTitle(title string) RouterOption {
	return func(r *Router) {
		r.title = title
	}
}

// WithVersion sets the API version (used in OpenAPI spec).
func WithVersion(version string) RouterOption {
	return func(r *Router) {
		r.version = version
	}
}

// WithAPIDescription sets the API description (used in OpenAPI spec).
func WithAPIDescription(desc string) RouterOption {
	return func(r *Router) {
		r.description = desc
	}
}

// WithServers sets the OpenAPI servers array.
func WithServers(servers ...Server) RouterOption {
	return func(r *Router) {
		r.servers = servers
	}
}

// WithTagDescriptions sets tag descriptions for the OpenAPI spec.
func WithTagDescriptions(descs map[string]string) RouterOption {
	return func(r *Router) {
		r.tagDescs = descs
	}
}

// WithBasePath mounts every route below prefix, e.g. "/api/v2". Requests
// outside the prefix are answered with 404. The generated document lists
// prefix as its server URL unless WithServers is given.
func WithBasePath(prefix string) RouterOption {
	return func(r *Router) {
		r.basePath = strings.TrimSuffix(prefix, "/")
	}
}

// WithSpec serves the generated OpenAPI document on GET path, relative to
// the base path. Paths ending in .yaml or .yml are served as YAML, all
// others as JSON. It may be given more than once.
func WithSpec(path string) RouterOption {
	return func(r *Router) {
		if r.specPaths == nil {
			r.specPaths = make(map[string]string)
		}
		format := ContentTypeJSON
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			format = ContentTypeYAML
		}
		r.specPaths[path] = format
	}
}

// WithValidator sets a validator that runs on every projected request
// before its handler.
func WithValidator(v Validator) RouterOption {
	return func(r *Router) {
		r.validator = v
	}
}

// ErrorHandler is a custom error response writer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithErrorHandler sets a custom error handler for the router.
func WithErrorHandler(h ErrorHandler) RouterOption {
	return func(r *Router) {
		r.errorHandler = h
	}
}

// WithResponseValidation checks every handler payload against its declared
// response schema. A mismatch is logged and answered with 500.
func WithResponseValidation() RouterOption {
	return func(r *Router) {
		r.validateResponses = true
	}
}

// WithMaxBodySize sets the request body limit for routes that do not set
// their own with WithBodyLimit. The default is 1 MiB.
func WithMaxBodySize(maxBytes int64) RouterOption {
	return func(r *Router) {
		r.maxBodySize = maxBytes
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) RouterOption {
	return func(r *Router) {
		r.encoders = append(r.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) RouterOption {
	return func(r *Router) {
		r.decoders = append(r.decoders, dec)
	}
}

// SpanStarter is a tracing hook interface for creating spans per request.
// Implement this with your preferred tracing backend (e.g., OpenTelemetry).
type SpanStarter interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func())
}

// WithTracer sets a tracing hook for the router.
func WithTracer(s SpanStarter) RouterOption {
	return func(r *Router) {
		r.tracer = s
	}
}

// WithLogger sets the logger for dispatch failures. Defaults to slog.Default.
func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

// WithMetrics records dispatch outcomes in m.
func WithMetrics(m *Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter builds a Router over reg. It fails with the registry's
// configuration errors, or if a declared content type has no codec or a
// documentation path collides with a route.
func NewRouter(reg *Registry, opts ...RouterOption) (*Router, error) {
	r := &Router{
		registry:    reg,
		maxBodySize: defaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.codecs = newCodecRegistry(r.encoders, r.decoders)

	if err := reg.Err(); err != nil {
		return nil, err
	}

	routes := reg.Routes()
	var errs []error
	for _, rr := range routes {
		d := rr.descriptor
		if b := d.request.Body; b != nil {
			if _, ok := r.codecs.decoderFor(b.ContentType); !ok {
				errs = append(errs, configErrorf(d.method, d.template.raw, "no decoder for request content type %s", b.ContentType))
			}
		}
		for _, status := range d.statuses() {
			resp := d.responses[status]
			if resp.Schema == nil {
				continue
			}
			if _, ok := r.codecs.encoderFor(resp.ContentType); !ok {
				errs = append(errs, configErrorf(d.method, d.template.raw, "no encoder for %d response content type %s", status, resp.ContentType))
			}
		}
	}

	r.table = newRouteTable(routes)
	for path := range r.specPaths {
		if m, err := r.table.lookup(http.MethodGet, path); err == nil {
			errs = append(errs, configErrorf(http.MethodGet, path, "documentation path collides with route %s", m.Route.descriptor.template.raw))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRouter is like NewRouter but panics on error.
func MustRouter(reg *Registry, opts ...RouterOption) *Router {
	r, err := NewRouter(reg, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Registry returns the registry the router serves.
func (r *Router) Registry() *Registry { return r.registry }

// Use adds middleware to the router. Middleware is applied in the order
// added. Call it during startup only.
func (r *Router) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(http.HandlerFunc(r.dispatch))
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}

// ListenAndServe starts an HTTP server for the router on the given address.
// It blocks until the context is cancelled, then shuts down gracefully.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	return Serve(ctx, addr, r)
}

// Serve runs an HTTP server for h until ctx is cancelled, then shuts it
// down, waiting up to 30 seconds for in-flight requests.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
