package main

import (
	"net/http"

	"github.com/chotinc/api"
)

var (
	organizationID = api.Integer(
		api.Positive(),
		api.Format("int64"),
		api.Describe("Organization identifier."),
		api.Example(1234),
	).With(api.Named("OrganizationID"))

	organization = api.Object(
		api.Field("id", organizationID),
		api.Field("name", api.String(api.MinLength(1), api.MaxLength(64), api.Pattern(`^[a-z0-9-]+$`))),
		api.Optional("displayName", api.String(api.MaxLength(128))),
	).With(
		api.Named("Organization"),
		api.Example(map[string]any{"id": 1234, "name": "chot-inc", "displayName": "chot Inc."}),
	)

	createOrganization = api.Object(
		api.Field("name", api.String(api.MinLength(1), api.MaxLength(64), api.Pattern(`^[a-z0-9-]+$`))),
		api.Optional("displayName", api.String(api.MaxLength(128))),
	).With(
		api.Named("CreateOrganization"),
		api.Example(map[string]any{"name": "chot-inc", "displayName": "chot Inc."}),
	)

	updateOrganization = api.Object(
		api.Optional("displayName", api.String(api.MaxLength(128))),
	).With(
		api.Named("UpdateOrganization"),
		api.Example(map[string]any{"displayName": "chot Incorporated"}),
	)

	user = api.Object(
		api.Field("id", api.Integer(api.Positive(), api.Format("int64"))),
		api.Field("email", api.String(api.Format("email"))),
		api.Optional("name", api.String()),
	).With(
		api.Named("User"),
		api.Example(map[string]any{"id": 7, "email": "ada@chot.example", "name": "Ada"}),
	)

	userInfo = api.Object(
		api.Field("sub", api.String()),
		api.Field("email", api.String(api.Format("email"))),
		api.Field("organizationId", organizationID),
	).With(
		api.Named("UserInfo"),
		api.Example(map[string]any{"sub": "user-7", "email": "ada@chot.example", "organizationId": 1234}),
	)

	organizationList = api.Object(
		api.Field("items", api.Array(organization)),
		api.Field("limit", api.Integer()),
		api.Field("offset", api.Integer()),
	).With(api.Named("OrganizationList"))

	userList = api.Object(
		api.Field("items", api.Array(user)),
		api.Field("limit", api.Integer()),
		api.Field("offset", api.Integer()),
	).With(api.Named("UserList"))

	organizationPath = api.Object(api.Field("id", organizationID))

	pagination = api.Object(
		api.Optional("limit", api.Integer(api.Minimum(1), api.Maximum(100), api.Default(20), api.Describe("Page size."))),
		api.Optional("offset", api.Integer(api.Minimum(0), api.Default(0), api.Describe("Items to skip."))),
	)
)

var (
	listOrganizationsRoute = api.MustRoute(http.MethodGet, "/organizations",
		api.Request{Query: pagination},
		api.Responses{http.StatusOK: api.JSON(organizationList, "A page of organizations")},
		api.WithSummary("List organizations"),
		api.WithTags("organizations"),
	)

	createOrganizationRoute = api.MustRoute(http.MethodPost, "/organizations",
		api.Request{Body: api.JSONBody(createOrganization)},
		api.Responses{http.StatusCreated: api.JSON(organization, "The created organization")},
		api.WithSummary("Create an organization"),
		api.WithTags("organizations"),
	)

	getOrganizationRoute = api.MustRoute(http.MethodGet, "/organizations/{id}",
		api.Request{Path: organizationPath},
		api.Responses{http.StatusOK: api.JSON(organization, "The organization")},
		api.WithSummary("Get an organization"),
		api.WithTags("organizations"),
		api.WithErrors(http.StatusNotFound),
	)

	updateOrganizationRoute = api.MustRoute(http.MethodPut, "/organizations/{id}",
		api.Request{Path: organizationPath, Body: api.JSONBody(updateOrganization)},
		api.Responses{http.StatusOK: api.JSON(organization, "The updated organization")},
		api.WithSummary("Update an organization"),
		api.WithTags("organizations"),
		api.WithErrors(http.StatusNotFound),
	)

	listUsersRoute = api.MustRoute(http.MethodGet, "/organizations/{id}/users",
		api.Request{Path: organizationPath, Query: pagination},
		api.Responses{http.StatusOK: api.JSON(userList, "A page of the organization's users")},
		api.WithSummary("List organization users"),
		api.WithTags("users"),
		api.WithErrors(http.StatusNotFound),
	)

	userInfoRoute = api.MustRoute(http.MethodGet, "/userinfo",
		api.Request{},
		api.Responses{http.StatusOK: api.JSON(userInfo, "The calling user")},
		api.WithSummary("Describe the calling user"),
		api.WithTags("users"),
	)
)

// newRegistry registers every organization API route.
func newRegistry() *api.Registry {
	return api.NewRegistry().
		Register(listOrganizationsRoute, api.Bind(listOrganizations)).
		Register(createOrganizationRoute, api.Bind(createOrganizationHandler)).
		Register(getOrganizationRoute, api.Bind(getOrganization)).
		Register(updateOrganizationRoute, api.Bind(updateOrganizationHandler)).
		Register(listUsersRoute, api.Bind(listUsers)).
		Register(userInfoRoute, api.Bind(getUserInfo))
}
