package dummydb

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("record not found")

// Record is a row identified by its primary key.
type Record interface {
	EntityID() int
}

// Table is an in-memory table with an auto-incremented primary key. Rows are copied in and out.
type Table[T Record] struct {
	sync.RWMutex
	pk    int
	rows  map[int]T
	setPK func(*T, int)
}

func NewTable[T Record](setPK func(*T, int)) *Table[T] {
	return &Table[T]{rows: make(map[int]T), setPK: setPK}
}

// Insert assigns the next primary key to row and stores it.
func (t *Table[T]) Insert(row T) T {
	t.Lock()
	defer t.Unlock()
	t.pk++
	t.setPK(&row, t.pk)
	t.rows[t.pk] = row
	return row
}

// SetPK sets the primary key of row without storing it.
func (t *Table[T]) SetPK(row *T, id int) { t.setPK(row, id) }

func (t *Table[T]) Get(id int) (T, error) {
	t.RLock()
	defer t.RUnlock()
	if row, ok := t.rows[id]; ok {
		return row, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Update replaces the row with the same primary key.
func (t *Table[T]) Update(row T) error {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[row.EntityID()]; !ok {
		return ErrNotFound
	}
	t.rows[row.EntityID()] = row
	return nil
}

func (t *Table[T]) Delete(id int) error {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// All returns every row ordered by primary key.
func (t *Table[T]) All() []T {
	return t.Filter(nil)
}

// Filter returns the rows matching keep (every row when keep is nil), ordered by primary key.
func (t *Table[T]) Filter(keep func(T) bool) []T {
	t.RLock()
	defer t.RUnlock()
	rows := make([]T, 0, len(t.rows))
	for _, row := range t.rows {
		if keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID() < rows[j].EntityID() })
	return rows
}

// Any reports whether a row matches fn.
func (t *Table[T]) Any(fn func(T) bool) bool {
	t.RLock()
	defer t.RUnlock()
	for _, row := range t.rows {
		if fn(row) {
			return true
		}
	}
	return false
}

func (t *Table[T]) Len() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.rows)
}
