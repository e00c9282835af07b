package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sendgrid/rest"
)

type (
	// Filter encodes list parameters into a query string.
	Filter interface {
		Values() url.Values
	}

	Pagination struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	}

	// Page is one page of a list endpoint. Backends send the pagination either as `pagination` or `meta`.
	Page[T any] struct {
		Data       []T         `json:"data"`
		Pagination *Pagination `json:"pagination,omitempty"`
		Meta       *Pagination `json:"meta,omitempty"`
	}

	// Resource is the generic CRUD API of one backend resource:
	// GET /{res}, GET /{res}/{id}, POST /{res}, PUT /{res}/{id}, DELETE /{res}/{id}.
	Resource[T, I any, F Filter] struct {
		c    *Client
		path string
	}
)

// Paging returns whichever pagination block the backend sent.
func (p *Page[T]) Paging() *Pagination {
	if p.Pagination != nil {
		return p.Pagination
	}
	return p.Meta
}

func NewResource[T, I any, F Filter](c *Client, path string) *Resource[T, I, F] {
	return &Resource[T, I, F]{c: c, path: path}
}

func (r *Resource[T, I, F]) Path() string { return r.path }

func (r *Resource[T, I, F]) item(id int) string {
	return r.path + "/" + strconv.Itoa(id)
}

func (r *Resource[T, I, F]) List(ctx context.Context, filter F) (*Page[T], error) {
	var page Page[T]
	if err := r.c.send(ctx, rest.Get, r.path, filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Resource[T, I, F]) Get(ctx context.Context, id int) (T, error) {
	var resp envelope[T]
	err := r.c.send(ctx, rest.Get, r.item(id), nil, nil, &resp)
	return resp.Data, err
}

func (r *Resource[T, I, F]) Create(ctx context.Context, in I) (T, error) {
	var resp envelope[T]
	if err := r.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := r.c.send(ctx, rest.Post, r.path, nil, in, &resp)
	return resp.Data, err
}

func (r *Resource[T, I, F]) Update(ctx context.Context, id int, in I) (T, error) {
	var resp envelope[T]
	if err := r.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := r.c.send(ctx, rest.Put, r.item(id), nil, in, &resp)
	return resp.Data, err
}

func (r *Resource[T, I, F]) Delete(ctx context.Context, id int) error {
	return r.c.send(ctx, rest.Delete, r.item(id), nil, nil, nil)
}

// Assignments is the API of the pivot records linking an owner (eg. a grade level) to assigned resources
// (eg. subjects): GET {owner}/{id}/{assigned}, GET {owner}/{id}/{available}, POST {owner}/{id}/{assigned},
// PUT and DELETE {owner}/{id}/{assigned}/{assignmentID}.
type Assignments[A, R, I any] struct {
	c         *Client
	owner     string
	assigned  string
	available string
}

func NewAssignments[A, R, I any](c *Client, owner, assigned, available string) *Assignments[A, R, I] {
	return &Assignments[A, R, I]{c: c, owner: owner, assigned: assigned, available: available}
}

func (a *Assignments[A, R, I]) base(ownerID int) string {
	return a.owner + "/" + strconv.Itoa(ownerID) + "/"
}

func (a *Assignments[A, R, I]) Assigned(ctx context.Context, ownerID int) ([]A, error) {
	var resp envelope[[]A]
	err := a.c.send(ctx, rest.Get, a.base(ownerID)+a.assigned, nil, nil, &resp)
	return resp.Data, err
}

func (a *Assignments[A, R, I]) Available(ctx context.Context, ownerID int) ([]R, error) {
	var resp envelope[[]R]
	err := a.c.send(ctx, rest.Get, a.base(ownerID)+a.available, nil, nil, &resp)
	return resp.Data, err
}

func (a *Assignments[A, R, I]) Assign(ctx context.Context, ownerID int, in I) (A, error) {
	var resp envelope[A]
	if err := a.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := a.c.send(ctx, rest.Post, a.base(ownerID)+a.assigned, nil, in, &resp)
	return resp.Data, err
}

func (a *Assignments[A, R, I]) UpdateAssignment(ctx context.Context, ownerID, assignmentID int, in I) (A, error) {
	var resp envelope[A]
	if err := a.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := a.c.send(ctx, rest.Put, a.base(ownerID)+a.assigned+"/"+strconv.Itoa(assignmentID), nil, in, &resp)
	return resp.Data, err
}

func (a *Assignments[A, R, I]) Unassign(ctx context.Context, ownerID, assignmentID int) error {
	return a.c.send(ctx, rest.Delete, a.base(ownerID)+a.assigned+"/"+strconv.Itoa(assignmentID), nil, nil, nil)
}
