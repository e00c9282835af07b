package core

import "strings"

// Ordering is one "ordering" query parameter term: "name" (ascending) or "-name" (descending).
type Ordering struct {
	Field     string
	Ascending bool
}

func (ord Ordering) String() string {
	if ord.Ascending {
		return ord.Field
	}
	return "-" + ord.Field
}

// OrderingParam encodes orderings as the comma separated value of the "ordering" query parameter.
func OrderingParam(ords []Ordering) string {
	terms := make([]string, 0, len(ords))
	for _, ord := range ords {
		if ord.Field != "" {
			terms = append(terms, ord.String())
		}
	}
	return strings.Join(terms, ",")
}

// ParseOrdering is the inverse of OrderingParam.
func ParseOrdering(val string) []Ordering {
	if val == "" {
		return nil
	}
	var ords []Ordering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ords = append(ords, Ordering{Field: field, Ascending: !descending})
		}
	}
	return ords
}
