package dummydb

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core/school"
)

func TestTable(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)
	tbl := db.Subjects

	math := tbl.Insert(school.Subject{Name: "رياضيات", Code: "MATH"})
	sci := tbl.Insert(school.Subject{Name: "علوم", Code: "SCI"})
	assert.Equal(t, 1, math.ID)
	assert.Equal(t, 2, sci.ID)

	got, err := tbl.Get(2)
	require.NoError(t, err)
	assert.Equal(t, sci, got)
	_, err = tbl.Get(3)
	assert.ErrorIs(t, err, ErrNotFound)

	sci.IsActive = true
	require.NoError(t, tbl.Update(sci))
	assert.ErrorIs(t, tbl.Update(school.Subject{ID: 9}), ErrNotFound)

	active := tbl.Filter(func(s school.Subject) bool { return s.IsActive })
	assert.Equal(t, []school.Subject{sci}, active)
	assert.True(t, tbl.Any(func(s school.Subject) bool { return s.Code == "MATH" }))

	require.NoError(t, tbl.Delete(1))
	assert.ErrorIs(t, tbl.Delete(1), ErrNotFound)
	assert.Equal(t, []school.Subject{sci}, tbl.All())

	// primary keys are never reused
	assert.Equal(t, 3, tbl.Insert(school.Subject{Name: "لغة"}).ID)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_ConcurrentInserts(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db.Students.Insert(school.Student{Name: "طالب"})
		}()
	}
	wg.Wait()

	all := db.Students.All()
	require.Len(t, all, 50)
	for i, st := range all {
		assert.Equal(t, i+1, st.ID)
	}
}
