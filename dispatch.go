package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// Dispatch outcomes, used as the metrics "outcome" label.
const (
	outcomeOK               = "ok"
	outcomeNotFound         = "not_found"
	outcomeMethodNotAllowed = "method_not_allowed"
	outcomeInvalid          = "invalid"
	outcomeHandlerError     = "handler_error"
	outcomeSpec             = "spec"
)

// panicError is a handler panic caught at the dispatch boundary.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("handler panic: %v", e.value) }

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	start := time.Now()

	path := req.URL.Path
	if r.basePath != "" {
		rest, ok := strings.CutPrefix(path, r.basePath)
		if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
			r.writeError(w, req, ErrNotFound)
			r.metrics.observe(req.Method, "", outcomeNotFound, http.StatusNotFound, time.Since(start))
			return
		}
		if rest == "" {
			rest = "/"
		}
		path = rest
	}

	if format, ok := r.specPaths[path]; ok && (req.Method == http.MethodGet || req.Method == http.MethodHead) {
		r.serveSpec(w, req, format)
		r.metrics.observe(req.Method, path, outcomeSpec, http.StatusOK, time.Since(start))
		return
	}

	m, err := r.table.lookup(req.Method, path)
	if err != nil {
		outcome, status := outcomeNotFound, http.StatusNotFound
		var mna *methodNotAllowedError
		if errors.As(err, &mna) {
			w.Header().Set("Allow", strings.Join(mna.allowed, ", "))
			outcome, status = outcomeMethodNotAllowed, http.StatusMethodNotAllowed
		}
		r.writeError(w, req, err)
		r.metrics.observe(req.Method, "", outcome, status, time.Since(start))
		return
	}

	d := m.Route.descriptor
	noteRoute(req.Context(), d)

	ctx := withRoute(req.Context(), d)
	if r.tracer != nil {
		var end func()
		ctx, end = r.tracer.StartSpan(ctx, d.method+" "+d.template.raw, map[string]string{
			"http.method": d.method,
			"http.route":  d.template.raw,
		})
		defer end()
	}

	status, outcome := r.serveRoute(ctx, w, req.WithContext(ctx), m)
	r.metrics.observe(d.method, d.template.raw, outcome, status, time.Since(start))
}

// serveRoute validates the request, runs the handler and writes the
// response. It returns the written status and the dispatch outcome.
func (r *Router) serveRoute(ctx context.Context, w http.ResponseWriter, req *http.Request, m *Match) (int, string) {
	d := m.Route.descriptor

	in := Incoming{
		Method:      req.Method,
		Path:        req.URL.Path,
		Params:      m.Params,
		Query:       req.URL.Query(),
		ContentType: req.Header.Get("Content-Type"),
	}
	if d.request.Body != nil {
		body, err := r.readBody(w, req, d)
		if err != nil {
			return r.writeError(w, req, err), outcomeInvalid
		}
		in.Body = body
	}

	vr, err := validateRequest(d, in, r.codecs)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "request rejected",
			slog.String("route", d.method+" "+d.template.raw),
			slog.String("err", err.Error()),
		)
		return r.writeError(w, req, err), outcomeInvalid
	}

	resp, err := r.invoke(ctx, m.Route, vr)
	if err != nil {
		var pd *ProblemDetail
		if errors.As(err, &pd) && pd.Status == http.StatusBadRequest {
			// Rejected by a SelfValidator or the router's Validator.
			return r.writeError(w, req, err), outcomeInvalid
		}
		r.logHandlerError(ctx, d, err)
		return r.writeError(w, req, err), outcomeHandlerError
	}

	status, err := r.writeResponse(w, d, resp)
	if err != nil {
		r.logHandlerError(ctx, d, err)
		return r.writeError(w, req, err), outcomeHandlerError
	}
	return status, outcomeOK
}

// invoke runs the endpoint, converting a panic into an error so that one
// failing handler cannot take down the process.
func (r *Router) invoke(ctx context.Context, rr *RegisteredRoute, vr *ValidatedRequest) (resp any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			resp, err = nil, &panicError{value: rec, stack: debug.Stack()}
		}
	}()
	return rr.endpoint.call(ctx, vr, r.validator)
}

func (r *Router) readBody(w http.ResponseWriter, req *http.Request, d *RouteDescriptor) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	limit := r.maxBodySize
	if d.bodyLimit > 0 {
		limit = d.bodyLimit
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &ProblemDetail{
				Type:   "about:blank",
				Title:  http.StatusText(http.StatusRequestEntityTooLarge),
				Status: http.StatusRequestEntityTooLarge,
				Detail: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			}
		}
		return nil, Errorf(http.StatusBadRequest, "read body: %v", err)
	}
	return body, nil
}

// writeError answers err through the custom ErrorHandler, or as an RFC 9457
// problem document. It returns the status written.
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) int {
	if r.errorHandler != nil {
		r.errorHandler(w, req, err)
		return ErrorStatus(err)
	}
	return writeProblem(w, req, toProblem(err))
}

func writeProblem(w http.ResponseWriter, req *http.Request, p *ProblemDetail) int {
	if p.Instance == "" && req != nil {
		p = withInstance(p, req.URL.Path)
	}
	w.Header().Set("Content-Type", ContentTypeProblem)
	w.WriteHeader(p.Status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(p)
	return p.Status
}

// withInstance returns a copy of p with Instance set; handler-returned
// problems may be shared values.
func withInstance(p *ProblemDetail, instance string) *ProblemDetail {
	cp := *p
	cp.Instance = instance
	return &cp
}

func (r *Router) logHandlerError(ctx context.Context, d *RouteDescriptor, err error) {
	status := ErrorStatus(err)
	attrs := []slog.Attr{
		slog.String("route", d.method+" "+d.template.raw),
		slog.Int("status", status),
		slog.String("err", err.Error()),
	}
	var pe *panicError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stack", string(pe.stack)))
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	r.logger.LogAttrs(ctx, level, "handler failed", attrs...)
}
