// Package school holds the records, input payloads and list filters of every resource
// exposed by the school administration backend.
package school

import (
	"net/url"
	"strconv"
	"time"

	"github.com/trezcool/masomo-admin/core"
)

// Ref is the summary of a related record embedded in another record.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Paging holds the pagination and ordering parameters shared by all list filters.
type Paging struct {
	Page     int
	PerPage  int
	Ordering []core.Ordering
}

func (p Paging) values() url.Values {
	v := make(url.Values)
	setInt(v, "page", p.Page)
	setInt(v, "per_page", p.PerPage)
	if ord := core.OrderingParam(p.Ordering); ord != "" {
		v.Set("ordering", ord)
	}
	return v
}

func setInt(v url.Values, key string, i int) {
	if i != 0 {
		v.Set(key, strconv.Itoa(i))
	}
}

func setStr(v url.Values, key, s string) {
	if s = core.CleanString(s); s != "" {
		v.Set(key, s)
	}
}

func setBool(v url.Values, key string, b *bool) {
	if b != nil {
		v.Set(key, strconv.FormatBool(*b))
	}
}

type School struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s School) EntityID() int { return s.ID }

// SchoolInput contains the information needed to create or update a School.
type SchoolInput struct {
	Name     string `json:"name" validate:"required,notblank,max=255"`
	Code     string `json:"code" validate:"required,alphanum,max=20"`
	Address  string `json:"address" validate:"omitempty,max=500"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type SchoolFilter struct {
	Paging
	Search   string
	IsActive *bool
}

func (f SchoolFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	setBool(v, "is_active", f.IsActive)
	return v
}
