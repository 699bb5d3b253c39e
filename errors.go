package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for dispatch.
var (
	ErrNotFound         = errors.New("no route matches path")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// StatusCoder is implemented by errors or responses that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// ProblemDetail is an RFC 9457 problem details response.
//
//nolint:errname // RFC 9457 standard name
type ProblemDetail struct {
	Type     string            `json:"type,omitempty"`
	Title    string            `json:"title,omitempty"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// Error returns the detail message (or title if detail is empty).
func (p *ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Detail
	}
	return p.Title
}

// StatusCode returns the HTTP status code.
func (p *ProblemDetail) StatusCode() int { return p.Status }

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint,omitempty"`
	Message    string `json:"message"`
	Value      any    `json:"value,omitempty"`
}

// ValidationErrors is the full list of violations found in one value.
//
//nolint:errname // plural list of ValidationError
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		if v.Field == "" {
			parts[i] = v.Message
			continue
		}
		parts[i] = v.Field + ": " + v.Message
	}
	return strings.Join(parts, "; ")
}

// Fields returns the violated field paths, in order.
func (e ValidationErrors) Fields() []string {
	out := make([]string, len(e))
	for i, v := range e {
		out[i] = v.Field
	}
	return out
}

func (e *ValidationErrors) add(field, constraint, msg string, value any) {
	*e = append(*e, ValidationError{
		Field:      field,
		Constraint: constraint,
		Message:    msg,
		Value:      value,
	})
}

// validationProblem wraps violations into a 400 ProblemDetail.
func validationProblem(errs ValidationErrors) *ProblemDetail {
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  "Validation Failed",
		Status: http.StatusBadRequest,
		Detail: fmt.Sprintf("%d constraint violation(s)", len(errs)),
		Errors: errs,
	}
}

// ConfigurationError reports a malformed route or registry. It is raised
// while the API is being assembled and must abort startup.
type ConfigurationError struct {
	Method  string
	Pattern string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Method == "" && e.Pattern == "" {
		return "api: " + e.Reason
	}
	return fmt.Sprintf("api: %s %s: %s", e.Method, e.Pattern, e.Reason)
}

func configErrorf(method, pattern, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Method: method, Pattern: pattern, Reason: fmt.Sprintf(format, args...)}
}

// HTTPError is an error with an HTTP status code.
type HTTPError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

// toProblem converts any dispatch error into a ProblemDetail. Messages of
// unclassified errors are not exposed to the client.
func toProblem(err error) *ProblemDetail {
	var pd *ProblemDetail
	if errors.As(err, &pd) {
		return pd
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return validationProblem(verrs)
	}

	status := ErrorStatus(err)
	p := &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
	}
	if status != http.StatusInternalServerError {
		p.Detail = err.Error()
	}
	return p
}
