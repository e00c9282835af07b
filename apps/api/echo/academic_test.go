package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

func Test_gradeLevels(t *testing.T) {
	s, token := setup(t)

	var lvl school.GradeLevel
	decode(t, s, http.MethodPost, "/api/grade-levels", token,
		school.GradeLevelInput{Name: "الصف الأول", Code: "G1"}, http.StatusCreated, &lvl)
	assert.Equal(t, 1, lvl.ID)
	assert.Equal(t, "G1", lvl.Code)

	used := s.db.GradeLevels.Insert(school.GradeLevel{Name: "الصف الثاني", Code: "G2"})
	sch := s.db.Schools.Insert(school.School{Name: "مدرسة النور", Code: "NOOR"})
	s.db.Classrooms.Insert(school.Classroom{Name: "أ", GradeLevelID: used.ID, SchoolID: sch.ID})

	env := decode(t, s, http.MethodPost, "/api/grade-levels", token,
		school.GradeLevelInput{Name: "مكرر", Code: "g1"}, http.StatusUnprocessableEntity, nil)
	assert.Equal(t, []string{msgCodeTaken}, env.Errors["code"])

	env = decode(t, s, http.MethodPost, "/api/grade-levels", token,
		school.GradeLevelInput{Name: " ", Code: "G 3"}, http.StatusUnprocessableEntity, nil)
	assert.Contains(t, env.Errors, "name")
	assert.Contains(t, env.Errors, "code")

	runHTTPTests(t, s, []httpTest{
		{
			name: "update", method: http.MethodPut, path: fmt.Sprintf("/api/grade-levels/%d", lvl.ID), token: token,
			body:     school.GradeLevelInput{Name: "الصف الأول الابتدائي", Code: "G1", Description: "وصف"},
			wantCode: http.StatusOK,
			wantData: school.GradeLevel{ID: lvl.ID, Name: "الصف الأول الابتدائي", Code: "G1", Description: "وصف"},
		},
		{name: "get unknown", path: "/api/grade-levels/99", token: token, wantCode: http.StatusNotFound},
		{name: "get bad id", path: "/api/grade-levels/lol", token: token, wantCode: http.StatusNotFound},
		{name: "delete used", method: http.MethodDelete, path: fmt.Sprintf("/api/grade-levels/%d", used.ID), token: token, wantCode: http.StatusConflict},
		{name: "delete", method: http.MethodDelete, path: fmt.Sprintf("/api/grade-levels/%d", lvl.ID), token: token, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: fmt.Sprintf("/api/grade-levels/%d", lvl.ID), token: token, wantCode: http.StatusNotFound},
	})
}

func Test_gradeLevelSubjects(t *testing.T) {
	s, token := setup(t)
	lvl := s.db.GradeLevels.Insert(school.GradeLevel{Name: "الصف الأول", Code: "G1"})
	other := s.db.GradeLevels.Insert(school.GradeLevel{Name: "الصف الثاني", Code: "G2"})
	math := s.db.Subjects.Insert(school.Subject{Name: "رياضيات", Code: "MATH", IsActive: true})
	arabic := s.db.Subjects.Insert(school.Subject{Name: "لغة عربية", Code: "AR", IsActive: true})
	s.db.Subjects.Insert(school.Subject{Name: "قديم", Code: "OLD", IsActive: false})
	teacher := s.db.Teachers.Insert(school.Teacher{Name: "أستاذ خالد", IsActive: true})

	base := fmt.Sprintf("/api/grade-levels/%d", lvl.ID)

	var available []school.Subject
	decode(t, s, http.MethodGet, base+"/available-subjects", token, nil, http.StatusOK, &available)
	assert.Equal(t, []school.Subject{math, arabic}, available)

	var assigned school.GradeLevelSubject
	decode(t, s, http.MethodPost, base+"/subjects", token, school.GradeLevelSubjectInput{
		SubjectID: math.ID, TeacherID: core.IntPtr(teacher.ID), IsMandatory: true, WeeklyHours: 5,
	}, http.StatusCreated, &assigned)
	assert.Equal(t, math.ID, assigned.SubjectID)
	assert.Equal(t, &school.Ref{ID: teacher.ID, Name: teacher.Name}, assigned.Teacher)

	decode(t, s, http.MethodGet, base+"/available-subjects", token, nil, http.StatusOK, &available)
	assert.Equal(t, []school.Subject{arabic}, available)

	item := fmt.Sprintf("%s/subjects/%d", base, assigned.ID)
	runHTTPTests(t, s, []httpTest{
		{
			name: "assign twice", method: http.MethodPost, path: base + "/subjects", token: token,
			body: school.GradeLevelSubjectInput{SubjectID: math.ID}, wantCode: http.StatusConflict,
		},
		{
			name: "assign unknown subject", method: http.MethodPost, path: base + "/subjects", token: token,
			body: school.GradeLevelSubjectInput{SubjectID: 99}, wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "update", method: http.MethodPut, path: item, token: token,
			body:     school.GradeLevelSubjectInput{SubjectID: math.ID, WeeklyHours: 3},
			wantCode: http.StatusOK,
			wantData: school.GradeLevelSubject{
				ID: assigned.ID, GradeLevelID: lvl.ID, SubjectID: math.ID, WeeklyHours: 3,
				Subject: &school.Ref{ID: math.ID, Name: math.Name},
			},
		},
		{name: "delete subject in use", method: http.MethodDelete, path: fmt.Sprintf("/api/subjects/%d", math.ID), token: token, wantCode: http.StatusConflict},
		{
			name: "unassign from another grade level", method: http.MethodDelete,
			path: fmt.Sprintf("/api/grade-levels/%d/subjects/%d", other.ID, assigned.ID), token: token, wantCode: http.StatusNotFound,
		},
		{name: "unassign", method: http.MethodDelete, path: item, token: token, wantCode: http.StatusNoContent},
		{name: "assigned", path: base + "/subjects", token: token, wantCode: http.StatusOK, wantData: []school.GradeLevelSubject{}},
	})
}

func Test_academicYears(t *testing.T) {
	s, token := setup(t)
	sch := s.db.Schools.Insert(school.School{Name: "مدرسة النور", Code: "NOOR"})

	in := school.AcademicYearInput{Name: "2023-2024", StartDate: "2023-09-01", EndDate: "2024-06-30", IsCurrent: true, SchoolID: sch.ID}
	var first, second school.AcademicYear
	decode(t, s, http.MethodPost, "/api/academic-years", token, in, http.StatusCreated, &first)
	assert.Equal(t, school.YearPending, first.Status)
	assert.Equal(t, &school.Ref{ID: sch.ID, Name: sch.Name}, first.School)

	in.Name, in.StartDate, in.EndDate = "2024-2025", "2024-09-01", "2025-06-30"
	decode(t, s, http.MethodPost, "/api/academic-years", token, in, http.StatusCreated, &second)

	first, err := s.db.AcademicYears.Get(first.ID)
	require.NoError(t, err)
	assert.False(t, first.IsCurrent)
	assert.True(t, second.IsCurrent)

	in.SchoolID = 99
	env := decode(t, s, http.MethodPost, "/api/academic-years", token, in, http.StatusUnprocessableEntity, nil)
	assert.Equal(t, []string{msgInvalidRef}, env.Errors["school_id"])

	s.db.Exams.Insert(school.Exam{Name: "نصفي", AcademicYearID: second.ID})
	runHTTPTests(t, s, []httpTest{
		{name: "list by school", path: fmt.Sprintf("/api/academic-years?school_id=%d&ordering=name", sch.ID), token: token, wantCode: http.StatusOK},
		{name: "delete used", method: http.MethodDelete, path: fmt.Sprintf("/api/academic-years/%d", second.ID), token: token, wantCode: http.StatusConflict},
		{name: "delete school used", method: http.MethodDelete, path: fmt.Sprintf("/api/schools/%d", sch.ID), token: token, wantCode: http.StatusConflict},
	})
}
