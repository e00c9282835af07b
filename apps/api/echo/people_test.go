package echoapi

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, photo []byte) (*http.Request, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if photo != nil {
		fw, err := w.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_teachers(t *testing.T) {
	s, token := setup(t)
	sch := s.db.Schools.Insert(school.School{Name: "مدرسة النور", Code: "NOOR"})

	req, rec := newMultipartRequest(t, "/api/teachers", token, map[string]string{
		"name":      "أستاذ خالد",
		"phone":     "0912345678",
		"is_active": "1",
		"school_id": fmt.Sprint(sch.ID),
	}, []byte("png"))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	teacher, err := s.db.Teachers.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "أستاذ خالد", teacher.Name)
	assert.True(t, teacher.IsActive)
	assert.Equal(t, core.IntPtr(sch.ID), teacher.SchoolID)
	assert.True(t, strings.HasSuffix(teacher.PhotoURL, "-me.png"), teacher.PhotoURL)

	// multipart updates go through POST with a method override
	req, rec = newMultipartRequest(t, "/api/teachers/1", token, map[string]string{
		"_method":   http.MethodPut,
		"name":      "أستاذ خالد علي",
		"is_active": "0",
	}, nil)
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := s.db.Teachers.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "أستاذ خالد علي", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, teacher.PhotoURL, updated.PhotoURL)

	req, rec = newMultipartRequest(t, "/api/teachers", token, map[string]string{"phone": "lol"}, nil)
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	math := s.db.Subjects.Insert(school.Subject{Name: "رياضيات", Code: "MATH", IsActive: true})
	physics := s.db.Subjects.Insert(school.Subject{Name: "فيزياء", Code: "PHY", IsActive: true})

	runHTTPTests(t, s, []httpTest{
		{
			name: "sync subjects", method: http.MethodPut, path: "/api/teachers/1/subjects", token: token,
			body: school.TeacherSubjects{SubjectIDs: []int{physics.ID, math.ID, physics.ID}}, wantCode: http.StatusOK,
			wantData: []school.Subject{physics, math},
		},
		{name: "subjects", path: "/api/teachers/1/subjects", token: token, wantCode: http.StatusOK, wantData: []school.Subject{physics, math}},
		{
			name: "sync unknown subject", method: http.MethodPut, path: "/api/teachers/1/subjects", token: token,
			body: school.TeacherSubjects{SubjectIDs: []int{99}}, wantCode: http.StatusUnprocessableEntity,
		},
		{
			name: "sync none", method: http.MethodPut, path: "/api/teachers/1/subjects", token: token,
			body: school.TeacherSubjects{SubjectIDs: []int{}}, wantCode: http.StatusOK, wantData: []school.Subject{},
		},
		{name: "unknown teacher", path: "/api/teachers/9/subjects", token: token, wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/api/teachers/1", token: token, wantCode: http.StatusNoContent},
	})
}

func Test_students(t *testing.T) {
	s, token := setup(t)
	ahmed := s.db.Students.Insert(school.Student{Name: "أحمد علي", Gender: school.GenderMale})
	s.db.Students.Insert(school.Student{Name: "فاطمة حسن", Gender: school.GenderFemale})

	in := school.StudentInput{
		Name: "سارة محمد", Gender: school.GenderFemale, DateOfBirth: "2016-01-20",
		ParentName: "محمد", ParentPhone: "+249912345678",
	}
	var sara school.Student
	decode(t, s, http.MethodPost, "/api/students", token, in, http.StatusCreated, &sara)
	assert.False(t, sara.CreatedAt.IsZero())

	in.ParentPhone = "12"
	env := decode(t, s, http.MethodPost, "/api/students", token, in, http.StatusUnprocessableEntity, nil)
	assert.Contains(t, env.Errors, "father_phone")

	runHTTPTests(t, s, []httpTest{
		{name: "search", path: "/api/students/search?name=" + url.QueryEscape("أحمد"), token: token, wantCode: http.StatusOK, wantData: []school.Student{ahmed}},
		{name: "search nothing", path: "/api/students/search?name=", token: token, wantCode: http.StatusOK, wantData: []school.Student{}},
		{name: "filter gender", path: "/api/students?gender=female&ordering=student_name", token: token, wantCode: http.StatusOK},
	})
}

func Test_users(t *testing.T) {
	s, token := setup(t)

	in := school.UserInput{Name: "Sara", Username: "Sara", Password: "password1", PasswordConfirm: "password1", Roles: []string{"teacher"}}
	var usr school.User
	decode(t, s, http.MethodPost, "/api/users", token, in, http.StatusCreated, &usr)
	assert.Equal(t, "sara", usr.Username)
	assert.True(t, usr.IsActive)

	env := decode(t, s, http.MethodPost, "/api/users", token, in, http.StatusUnprocessableEntity, nil)
	assert.Equal(t, []string{msgUsernameTaken}, env.Errors["username"])

	in.Username, in.Password, in.PasswordConfirm = "nopass", "", ""
	env = decode(t, s, http.MethodPost, "/api/users", token, in, http.StatusUnprocessableEntity, nil)
	assert.Equal(t, []string{msgPasswordNeeded}, env.Errors["password"])

	// updating without a password keeps the current one
	in = school.UserInput{Name: "Sara H", Username: "sara", IsActive: core.BoolPtr(false), Roles: []string{"teacher"}}
	decode(t, s, http.MethodPut, fmt.Sprintf("/api/users/%d", usr.ID), token, in, http.StatusOK, &usr)
	assert.Equal(t, "Sara H", usr.Name)
	assert.False(t, usr.IsActive)
	_, err := s.auth.authenticate("sara", "password1")
	assert.Equal(t, errAccountDeactivated, err)

	var role school.Role
	decode(t, s, http.MethodPost, "/api/roles", token, school.RoleInput{Name: "teacher", Permissions: []string{"students.read"}}, http.StatusCreated, &role)
	runHTTPTests(t, s, []httpTest{
		{name: "delete role in use", method: http.MethodDelete, path: fmt.Sprintf("/api/roles/%d", role.ID), token: token, wantCode: http.StatusConflict},
	})
}
