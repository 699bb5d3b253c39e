package api

import (
	"context"
	"net/http"
)

type contextKey[T any] struct{}

// SetValue stores a typed value in the request context. For use in middleware.
func SetValue[T any](r *http.Request, val T) *http.Request {
	ctx := context.WithValue(r.Context(), contextKey[T]{}, val)
	return r.WithContext(ctx)
}

// GetValue retrieves a typed value from the request context. For use in handlers.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}

func withRoute(ctx context.Context, d *RouteDescriptor) context.Context {
	return context.WithValue(ctx, contextKey[*RouteDescriptor]{}, d)
}

// RouteFromContext returns the descriptor of the route being served.
func RouteFromContext(ctx context.Context) (*RouteDescriptor, bool) {
	return GetValue[*RouteDescriptor](ctx)
}

// routeNote lets middleware that wraps the router learn which route
// served a request after the fact.
type routeNote struct {
	route *RouteDescriptor
}

func withRouteNote(ctx context.Context) (context.Context, *routeNote) {
	n := &routeNote{}
	return context.WithValue(ctx, contextKey[*routeNote]{}, n), n
}

func noteRoute(ctx context.Context, d *RouteDescriptor) {
	if n, ok := GetValue[*routeNote](ctx); ok {
		n.route = d
	}
}
