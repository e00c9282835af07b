package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

// resource serves the CRUD routes of one table. I is the payload bound on create and update;
// its JSON fields are copied onto the record.
type resource[T dummydb.Record, I any] struct {
	table        *dummydb.Table[T]
	searchFields []string
	useMeta      bool

	// optional hooks
	init      func(rec *T)
	prepare   func(ctx echo.Context, in I, rec *T) error
	canDelete func(rec T) error
	created   func(ctx echo.Context, rec T)
	updated   func(ctx echo.Context, old, rec T)
	deleted   func(ctx echo.Context, rec T)
}

func (r *resource[T, I]) register(g *echo.Group, path string, m ...echo.MiddlewareFunc) {
	g.GET(path, r.list, m...)
	g.POST(path, r.create, m...)
	g.GET(path+"/:id", r.get, m...)
	g.PUT(path+"/:id", r.update, m...)
	g.DELETE(path+"/:id", r.delete, m...)
}

func (r *resource[T, I]) list(ctx echo.Context) error {
	return respondList(ctx, r.table.All(), r.useMeta, r.searchFields...)
}

func (r *resource[T, I]) get(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rec, err := r.table.Get(id)
	if err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (r *resource[T, I]) create(ctx echo.Context) error {
	var in I
	if err := bindAndValidate(ctx, &in); err != nil {
		return err
	}
	var rec T
	if r.init != nil {
		r.init(&rec)
	}
	if err := r.fill(ctx, in, &rec); err != nil {
		return err
	}
	rec = r.table.Insert(rec)
	if r.created != nil {
		r.created(ctx, rec)
	}
	return created(ctx, rec)
}

func (r *resource[T, I]) update(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	old, err := r.table.Get(id)
	if err != nil {
		return err
	}
	var in I
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	rec := old
	if err = r.fill(ctx, in, &rec); err != nil {
		return err
	}
	if err = r.table.Update(rec); err != nil {
		return err
	}
	if r.updated != nil {
		r.updated(ctx, old, rec)
	}
	return ok(ctx, rec)
}

func (r *resource[T, I]) delete(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rec, err := r.table.Get(id)
	if err != nil {
		return err
	}
	if r.canDelete != nil {
		if err = r.canDelete(rec); err != nil {
			return err
		}
	}
	if err = r.table.Delete(id); err != nil {
		return err
	}
	if r.deleted != nil {
		r.deleted(ctx, rec)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// fill copies the payload onto rec, keeping its primary key.
func (r *resource[T, I]) fill(ctx echo.Context, in I, rec *T) error {
	id := (*rec).EntityID()
	if err := copyJSON(in, rec); err != nil {
		return err
	}
	if (*rec).EntityID() != id {
		r.table.SetPK(rec, id)
	}
	if r.prepare != nil {
		return r.prepare(ctx, in, rec)
	}
	return nil
}
