package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
)

// CookieSetter is optionally implemented by response types to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// writeResponse encodes resp with the content type declared for the
// chosen status. The status is resp's StatusCode when it implements
// StatusCoder, otherwise the route's default status. A nil payload for a
// status with a schema is written as an empty body, or rejected when
// response validation is on. Response failures are server faults and never
// unwrap into a 400.
func (r *Router) writeResponse(w http.ResponseWriter, d *RouteDescriptor, resp any) (int, error) {
	status := d.defaultStatus()
	if sc, ok := resp.(StatusCoder); ok && sc.StatusCode() != 0 {
		status = sc.StatusCode()
	}
	declared, ok := d.responses[status]
	if !ok {
		return 0, fmt.Errorf("api: handler answered undeclared status %d", status)
	}

	if hs, ok := resp.(HeaderSetter); ok {
		hs.SetHeaders(w.Header())
	}
	if cs, ok := resp.(CookieSetter); ok {
		for _, c := range cs.Cookies() {
			http.SetCookie(w, c)
		}
	}

	if resp == nil && declared.Schema != nil && r.validateResponses {
		return 0, fmt.Errorf("api: %d response has no payload for its schema", status)
	}
	if resp == nil || declared.Schema == nil {
		w.WriteHeader(status)
		return status, nil
	}

	if r.validateResponses {
		generic, err := toGeneric(resp)
		if err != nil {
			return 0, fmt.Errorf("api: encode %d response: %v", status, err)
		}
		if _, err := declared.Schema.Validate(generic); err != nil {
			return 0, fmt.Errorf("api: %d response does not match its schema: %v", status, err)
		}
	}

	enc, ok := r.codecs.encoderFor(declared.ContentType)
	if !ok {
		return 0, fmt.Errorf("api: no encoder for %s", declared.ContentType)
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, resp); err != nil {
		return 0, fmt.Errorf("api: encode %d response: %w", status, err)
	}

	w.Header().Set("Content-Type", declared.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write(buf.Bytes())
	return status, nil
}
