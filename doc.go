// Package api is a typed HTTP route registry. Each endpoint is declared
// once, as data, and that one declaration drives request validation,
// handler binding and the generated OpenAPI 3.0 document.
//
// Schemas describe values and carry their own examples and defaults:
//
//	var orgID = api.Integer(api.Positive(), api.Example(1234))
//	var organization = api.Object(
//	    api.Field("id", orgID),
//	    api.Field("name", api.String(api.MinLength(1))),
//	).With(api.Named("Organization"))
//
// A RouteDescriptor ties a method and path template to request and response
// schemas. Inconsistencies, such as a template parameter without a schema,
// are reported when the descriptor is built:
//
//	var getOrganization = api.MustRoute(http.MethodGet, "/organizations/{id}",
//	    api.Request{Path: api.Object(api.Field("id", orgID))},
//	    api.Responses{http.StatusOK: api.JSON(organization, "The organization")},
//	)
//
// Handlers receive only validated input, projected into a typed struct:
//
//	type GetOrganizationReq struct {
//	    ID int64 `path:"id"`
//	}
//
//	reg := api.NewRegistry().
//	    Register(getOrganization, api.Bind(getOrg)).
//	    Register(listOrganizations, api.Bind(listOrgs))
//
// A Registry is persistent: Register returns a new registry and leaves the
// receiver unchanged. Configuration errors accumulate and surface from
// Registry.Err, NewRouter and Generate.
//
// Router serves a finished registry. Literal path segments win over
// parameters, invalid requests are answered with a 400 problem document
// listing every violation, and middleware uses the standard
// func(http.Handler) http.Handler signature:
//
//	r := api.MustRouter(reg, api.WithTitle("User API"), api.WithSpec("/openapi.json"))
//	r.Use(api.RequestID(), api.Logger(slog.Default()))
//
// Generate derives the OpenAPI document without invoking any handler, and
// Verify checks it with an independent OpenAPI implementation.
package api
