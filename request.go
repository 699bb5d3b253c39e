package api

import (
	"bytes"
	"fmt"
	"net/url"
)

// Incoming is the raw material of one request as handed over by the HTTP
// layer.
type Incoming struct {
	Method      string
	Path        string
	Params      map[string]string // raw path parameters; bound from Path when nil
	Query       url.Values
	Body        []byte
	ContentType string
}

// ValidatedRequest holds request values that passed their schemas. Path and
// Query contain only declared parameters (plus defaults); Body is nil when
// the route declares no body or an optional body was omitted.
type ValidatedRequest struct {
	Path  map[string]any
	Query map[string]any
	Body  any
}

// ValidateRequest checks in against the route's request shape. Path,
// query and body are all checked even when an earlier part fails, and every
// violation is reported in one 400 ProblemDetail. Field names are prefixed
// with "path.", "query." or "body.". A Method other than the route's fails
// with ErrMethodNotAllowed; an empty Method is not checked.
func ValidateRequest(route *RegisteredRoute, in Incoming) (*ValidatedRequest, error) {
	return validateRequest(route.descriptor, in, defaultCodecs)
}

func validateRequest(d *RouteDescriptor, in Incoming, codecs *codecRegistry) (*ValidatedRequest, error) {
	if in.Method != "" && in.Method != d.method {
		return nil, fmt.Errorf("%w: %s for %s %s", ErrMethodNotAllowed, in.Method, d.method, d.template.raw)
	}
	params := in.Params
	if params == nil {
		bound, ok := d.template.match(splitPath(in.Path))
		if !ok {
			return nil, fmt.Errorf("%w: %s does not match %s", ErrNotFound, in.Path, d.template.raw)
		}
		params = bound
	}

	var errs ValidationErrors
	vr := &ValidatedRequest{
		Path:  map[string]any{},
		Query: map[string]any{},
	}

	if s := d.request.Path; s != nil {
		raw := make(map[string]any, len(params))
		for k, v := range params {
			raw[k] = v
		}
		if v, ok := s.validate("path", raw, &errs).(map[string]any); ok {
			vr.Path = v
		}
	}

	if s := d.request.Query; s != nil {
		if v, ok := s.validate("query", queryValues(s, in.Query), &errs).(map[string]any); ok {
			vr.Query = v
		}
	}

	if b := d.request.Body; b != nil {
		vr.Body = validateBody(b, in, codecs, &errs)
	}

	if len(errs) > 0 {
		return nil, validationProblem(errs)
	}
	return vr, nil
}

// queryValues picks the raw values for the declared query parameters.
// Array parameters take every occurrence; scalars take the first.
func queryValues(s *Schema, q url.Values) map[string]any {
	raw := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		vals := q[f.name]
		if len(vals) == 0 {
			continue
		}
		if f.schema.kind == KindArray {
			raw[f.name] = vals
			continue
		}
		raw[f.name] = vals[0]
	}
	return raw
}

func validateBody(b *Body, in Incoming, codecs *codecRegistry, errs *ValidationErrors) any {
	if len(bytes.TrimSpace(in.Body)) == 0 {
		if !b.Optional {
			errs.add("body", "required", "is required", nil)
		}
		return nil
	}

	ct := b.ContentType
	if in.ContentType != "" {
		if got := mediaType(in.ContentType); got != mediaType(ct) {
			errs.add("body", "contentType", "content type must be "+ct, got)
			return nil
		}
	}

	dec, ok := codecs.decoderFor(ct)
	if !ok {
		errs.add("body", "contentType", "no decoder for "+ct, ct)
		return nil
	}
	raw, err := dec.Decode(bytes.NewReader(in.Body))
	if err != nil {
		errs.add("body", "syntax", "malformed body: "+err.Error(), nil)
		return nil
	}
	return b.Schema.validate("body", raw, errs)
}
