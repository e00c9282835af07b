package echoapi

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/masomo-admin/core"
)

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

// query parameters that are not record fields
var reservedParams = map[string]bool{"page": true, "per_page": true, "ordering": true, "search": true}

type (
	// appValidator plugs the payload validators into echo.Context.Validate.
	appValidator struct {
		validate   *validator.Validate
		translator ut.Translator
	}

	pagination struct {
		CurrentPage int `json:"current_page"`
		LastPage    int `json:"last_page"`
		PerPage     int `json:"per_page"`
		Total       int `json:"total"`
	}

	listResponse struct {
		Data       interface{} `json:"data"`
		Pagination *pagination `json:"pagination,omitempty"`
		Meta       *pagination `json:"meta,omitempty"`
	}

	dataResponse struct {
		Data interface{} `json:"data"`
	}

	// row is a record along with its JSON fields, used to filter and order generically.
	row[T any] struct {
		rec    T
		fields map[string]interface{}
	}
)

func (v *appValidator) Validate(i interface{}) error {
	return core.ValidateStruct(v.validate, v.translator, i)
}

// bindAndValidate binds the request body into in, then validates it.
func bindAndValidate(ctx echo.Context, in interface{}) error {
	if err := ctx.Bind(in); err != nil {
		return errors.Wrap(err, "binding request")
	}
	return ctx.Validate(in)
}

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, dataResponse{Data: data})
}

func created(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusCreated, dataResponse{Data: data})
}

func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func queryInt(ctx echo.Context, name string) int {
	i, _ := strconv.Atoi(ctx.QueryParam(name))
	return i
}

// copyJSON copies the JSON fields of src onto dst. Fields missing from src are left untouched.
func copyJSON(src, dst interface{}) error {
	b, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}
	return errors.Wrap(json.Unmarshal(b, dst), "decoding payload")
}

func fieldsOf(v interface{}) map[string]interface{} {
	var m map[string]interface{}
	b, err := json.Marshal(v)
	if err == nil {
		_ = json.Unmarshal(b, &m)
	}
	return m
}

func formatField(v interface{}) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// respondList filters recs with the query string, orders and paginates them.
// A query parameter named after a record field keeps the records whose field equals it;
// `search` matches any of searchFields; `ordering` takes the "-field,field" form.
func respondList[T any](ctx echo.Context, recs []T, useMeta bool, searchFields ...string) error {
	rows := make([]row[T], 0, len(recs))
	params := ctx.QueryParams()
	search := strings.ToLower(strings.TrimSpace(params.Get("search")))

	for _, rec := range recs {
		r := row[T]{rec: rec, fields: fieldsOf(rec)}
		if matchParams(r.fields, params) && matchSearch(r.fields, search, searchFields) {
			rows = append(rows, r)
		}
	}

	if ords := core.ParseOrdering(params.Get("ordering")); len(ords) > 0 {
		col := collate.New(language.Arabic)
		sort.SliceStable(rows, func(i, j int) bool {
			for _, ord := range ords {
				c := compareFields(col, lookup(rows[i].fields, ord.Field), lookup(rows[j].fields, ord.Field))
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}

	page := queryInt(ctx, "page")
	if page < 1 {
		page = 1
	}
	perPage := queryInt(ctx, "per_page")
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	total := len(rows)
	pg := &pagination{
		CurrentPage: page,
		LastPage:    int(math.Max(1, math.Ceil(float64(total)/float64(perPage)))),
		PerPage:     perPage,
		Total:       total,
	}

	data := make([]T, 0, perPage)
	for i := (page - 1) * perPage; i < total && i < page*perPage; i++ {
		data = append(data, rows[i].rec)
	}

	resp := listResponse{Data: data}
	if useMeta {
		resp.Meta = pg
	} else {
		resp.Pagination = pg
	}
	return ctx.JSON(http.StatusOK, resp)
}

func matchParams(fields map[string]interface{}, params map[string][]string) bool {
	for key, vals := range params {
		if reservedParams[key] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		v, exists := fields[key]
		if !exists {
			continue
		}
		s, ok := formatField(v)
		if !ok || s != vals[0] {
			return false
		}
	}
	return true
}

func matchSearch(fields map[string]interface{}, search string, searchFields []string) bool {
	if search == "" {
		return true
	}
	for _, f := range searchFields {
		if s, ok := lookup(fields, f).(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// lookup reads a dotted path such as "student.name" out of the JSON fields of a record.
func lookup(fields map[string]interface{}, path string) interface{} {
	var v interface{} = fields
	for _, key := range strings.Split(path, ".") {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func compareFields(col *collate.Collator, a, b interface{}) int {
	switch a := a.(type) {
	case float64:
		if b, ok := b.(float64); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	case string:
		if b, ok := b.(string); ok {
			return col.CompareString(a, b)
		}
	}
	sa, _ := formatField(a)
	sb, _ := formatField(b)
	return strings.Compare(sa, sb)
}

func atoi(s string) (int, error) {
	i, err := strconv.Atoi(s)
	return i, errors.WithStack(err)
}
