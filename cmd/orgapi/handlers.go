package main

import (
	"context"

	"github.com/chotinc/api"
)

// Organization is an organization resource.
type Organization struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
}

// User is a member of an organization.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// UserInfo describes the calling user.
type UserInfo struct {
	Sub            string `json:"sub"`
	Email          string `json:"email"`
	OrganizationID int64  `json:"organizationId"`
}

// Page is a page of items.
type Page[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PageReq carries the pagination query parameters.
type PageReq struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

// OrganizationReq addresses one organization.
type OrganizationReq struct {
	ID int64 `path:"id"`
}

// CreateOrganizationReq is the request for POST /organizations.
type CreateOrganizationReq struct {
	Body struct {
		Name        string `json:"name" validate:"required"`
		DisplayName string `json:"displayName"`
	}
}

// UpdateOrganizationReq is the request for PUT /organizations/{id}.
type UpdateOrganizationReq struct {
	ID   int64 `path:"id"`
	Body struct {
		DisplayName *string `json:"displayName"`
	}
}

// ListUsersReq is the request for GET /organizations/{id}/users.
type ListUsersReq struct {
	ID     int64 `path:"id"`
	Limit  int   `query:"limit" validate:"lte=100"`
	Offset int   `query:"offset"`
}

var sample = Organization{Name: "chot-inc", DisplayName: "chot Inc."}

func listOrganizations(_ context.Context, req *PageReq) (*Page[Organization], error) {
	org := sample
	org.ID = 1234
	items := []Organization{org}
	if req.Offset > 0 {
		items = []Organization{}
	}
	return &Page[Organization]{Items: items, Limit: req.Limit, Offset: req.Offset}, nil
}

func createOrganizationHandler(_ context.Context, req *CreateOrganizationReq) (*Organization, error) {
	return &Organization{
		ID:          1,
		Name:        req.Body.Name,
		DisplayName: req.Body.DisplayName,
	}, nil
}

func getOrganization(_ context.Context, req *OrganizationReq) (*Organization, error) {
	org := sample
	org.ID = req.ID
	return &org, nil
}

func updateOrganizationHandler(_ context.Context, req *UpdateOrganizationReq) (*Organization, error) {
	org := sample
	org.ID = req.ID
	if req.Body.DisplayName != nil {
		org.DisplayName = *req.Body.DisplayName
	}
	return &org, nil
}

func listUsers(_ context.Context, req *ListUsersReq) (*Page[User], error) {
	return &Page[User]{
		Items:  []User{{ID: 7, Email: "ada@chot.example", Name: "Ada"}},
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

func getUserInfo(_ context.Context, _ *api.Void) (*UserInfo, error) {
	return &UserInfo{Sub: "user-7", Email: "ada@chot.example", OrganizationID: 1234}, nil
}
