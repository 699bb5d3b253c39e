package api

import (
	"errors"
	"reflect"
	"slices"
	"strings"
)

// RegisteredRoute pairs a route descriptor with its handler.
type RegisteredRoute struct {
	descriptor *RouteDescriptor
	endpoint   Endpoint
}

// Descriptor returns the route's descriptor.
func (rr *RegisteredRoute) Descriptor() *RouteDescriptor { return rr.descriptor }

// Registry is an append-only, persistent collection of registered routes.
// Register never modifies the receiver: it returns a new Registry that
// shares every earlier registration by reference. The zero value and nil
// are both empty registries.
type Registry struct {
	prev  *Registry
	route *RegisteredRoute
	err   error
	size  int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register returns a registry holding all routes of r plus d bound to e.
// Configuration mistakes (a nil descriptor or handler, a route that
// collides with an earlier one, conflicting schema names, a request type
// that binds undeclared parameters) are recorded and reported by Err, so
// registrations can be chained in a single expression.
func (r *Registry) Register(d *RouteDescriptor, e Endpoint) *Registry {
	next := &Registry{prev: r, size: r.Len() + 1}

	switch {
	case d == nil:
		next.err = configErrorf("", "", "registration %d: nil route descriptor", next.size)
		return next
	case !e.valid():
		next.err = configErrorf(d.method, d.template.raw, "nil handler")
		return next
	}

	next.err = errors.Join(
		r.checkConflict(d),
		r.checkSchemaNames(d),
		checkProjection(e.reqType, d),
	)
	if next.err == nil {
		next.route = &RegisteredRoute{descriptor: d, endpoint: e}
	}
	return next
}

// Len returns the number of registrations, including failed ones.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return r.size
}

// Routes returns the successfully registered routes in registration order.
func (r *Registry) Routes() []*RegisteredRoute {
	var out []*RegisteredRoute
	for n := r; n != nil; n = n.prev {
		if n.route != nil {
			out = append(out, n.route)
		}
	}
	slices.Reverse(out)
	return out
}

// Err returns every configuration error recorded by Register, joined, or
// nil if the registry is well formed.
func (r *Registry) Err() error {
	var errs []error
	for n := r; n != nil; n = n.prev {
		if n.err != nil {
			errs = append(errs, n.err)
		}
	}
	slices.Reverse(errs)
	return errors.Join(errs...)
}

// Match finds the route for method and path. See Router for the matching
// rules. It returns ErrNotFound when no template matches the path and
// ErrMethodNotAllowed when templates match but none for this method.
func (r *Registry) Match(method, path string) (*Match, error) {
	return newRouteTable(r.Routes()).lookup(method, path)
}

func (r *Registry) checkConflict(d *RouteDescriptor) error {
	shape := d.template.shape()
	for _, rr := range r.Routes() {
		prior := rr.descriptor
		if prior.method == d.method && prior.template.shape() == shape {
			return configErrorf(d.method, d.template.raw, "conflicts with %s %s", prior.method, prior.template.raw)
		}
	}
	return nil
}

// checkSchemaNames ensures a component name always denotes the same
// schema, so the generated document can share one definition per name.
func (r *Registry) checkSchemaNames(d *RouteDescriptor) error {
	known := make(map[string]*Schema)
	collect := func(desc *RouteDescriptor, onConflict func(name string) error) error {
		var err error
		for _, root := range desc.schemas() {
			root.walk(func(s *Schema) {
				if err != nil || s.name == "" {
					return
				}
				if prev, ok := known[s.name]; ok && prev != s && !reflect.DeepEqual(prev, s) {
					err = onConflict(s.name)
					return
				}
				known[s.name] = s
			})
		}
		return err
	}

	for _, rr := range r.Routes() {
		// Earlier registrations were already checked against each other.
		_ = collect(rr.descriptor, func(string) error { return nil })
	}
	return collect(d, func(name string) error {
		return configErrorf(d.method, d.template.raw, "schema name %q is already used by a different schema", name)
	})
}

// Match is the result of a successful lookup.
type Match struct {
	Route  *RegisteredRoute
	Params map[string]string
}

// routeTable is the lookup structure shared by Registry.Match and Router.
type routeTable struct {
	routes []*RegisteredRoute
}

func newRouteTable(routes []*RegisteredRoute) *routeTable {
	return &routeTable{routes: routes}
}

// lookup matches path segment by segment. A literal segment must match
// exactly and a parameter matches any non-empty segment. When several
// templates match, the one with a literal at the first differing position
// wins, so /organizations/new beats /organizations/{id}.
func (t *routeTable) lookup(method, path string) (*Match, error) {
	parts := splitPath(path)

	var (
		best    *RegisteredRoute
		params  map[string]string
		allowed []string
	)
	for _, rr := range t.routes {
		p, ok := rr.descriptor.template.match(parts)
		if !ok {
			continue
		}
		if rr.descriptor.method != method {
			if !slices.Contains(allowed, rr.descriptor.method) {
				allowed = append(allowed, rr.descriptor.method)
			}
			continue
		}
		if best == nil || rr.descriptor.template.moreSpecific(best.descriptor.template) {
			best, params = rr, p
		}
	}

	switch {
	case best != nil:
		return &Match{Route: best, Params: params}, nil
	case len(allowed) > 0:
		slices.Sort(allowed)
		return nil, &methodNotAllowedError{allowed: allowed}
	default:
		return nil, ErrNotFound
	}
}

// methodNotAllowedError carries the methods the path does accept.
type methodNotAllowedError struct {
	allowed []string
}

func (e *methodNotAllowedError) Error() string {
	return "method not allowed; allowed: " + strings.Join(e.allowed, ", ")
}

func (e *methodNotAllowedError) Unwrap() error { return ErrMethodNotAllowed }

// Allowed returns the methods registered for the path.
func (e *methodNotAllowedError) Allowed() []string { return slices.Clone(e.allowed) }
