package echoapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

const maxPhotoSize = 2 << 20

func (s *server) registerPeopleRoutes(g *echo.Group) {
	students := &resource[school.Student, school.StudentInput]{
		table:        s.db.Students,
		searchFields: []string{"student_name", "gov_id", "father_name"},
		init:         func(rec *school.Student) { rec.CreatedAt = time.Now().UTC() },
		canDelete: func(rec school.Student) error {
			if s.db.Enrollments.Any(func(e school.Enrollment) bool { return e.StudentID == rec.ID }) {
				return errConflict(msgStudentUsed)
			}
			return nil
		},
	}
	g.GET("/students/search", s.searchStudents)
	students.register(g, "/students")

	teachers := &resource[school.Teacher, school.TeacherInput]{
		table:        s.db.Teachers,
		searchFields: []string{"name", "email", "phone"},
		deleted: func(_ echo.Context, rec school.Teacher) {
			s.unlinkTeacher(rec.ID)
		},
	}
	g.GET("/teachers", teachers.list)
	g.GET("/teachers/:id", teachers.get)
	g.DELETE("/teachers/:id", teachers.delete)
	g.POST("/teachers", s.createTeacher)
	g.PUT("/teachers/:id", s.updateTeacher)
	g.GET("/teachers/:id/subjects", s.teacherSubjects)
	g.PUT("/teachers/:id/subjects", s.syncTeacherSubjects)

	users := &resource[dummydb.Account, school.UserInput]{
		table:        s.db.Accounts,
		searchFields: []string{"name", "username", "email"},
		init: func(rec *dummydb.Account) {
			rec.IsActive = true
			rec.CreatedAt = time.Now().UTC()
		},
		prepare: s.prepareAccount,
	}
	users.register(g, "/users", adminMiddleware)

	roles := &resource[school.Role, school.RoleInput]{
		table:        s.db.Roles,
		searchFields: []string{"name"},
		canDelete: func(rec school.Role) error {
			used := s.db.Accounts.Any(func(acc dummydb.Account) bool {
				for _, r := range acc.Roles {
					if r == rec.Name {
						return true
					}
				}
				return false
			})
			if used {
				return errConflict(msgRoleUsed)
			}
			return nil
		},
	}
	roles.register(g, "/roles", adminMiddleware)
}

func (s *server) searchStudents(ctx echo.Context) error {
	name := core.CleanString(ctx.QueryParam("name"), true)
	return ok(ctx, s.db.Students.Filter(func(st school.Student) bool {
		return name != "" && strings.Contains(strings.ToLower(st.Name), name)
	}))
}

func (s *server) createTeacher(ctx echo.Context) error {
	in, err := s.bindTeacher(ctx)
	if err != nil {
		return err
	}
	rec := school.Teacher{IsActive: true}
	if err = s.fillTeacher(ctx, in, &rec); err != nil {
		return err
	}
	return created(ctx, s.db.Teachers.Insert(rec))
}

func (s *server) updateTeacher(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	rec, err := s.db.Teachers.Get(id)
	if err != nil {
		return err
	}
	in, err := s.bindTeacher(ctx)
	if err != nil {
		return err
	}
	if err = s.fillTeacher(ctx, in, &rec); err != nil {
		return err
	}
	if err = s.db.Teachers.Update(rec); err != nil {
		return err
	}
	return ok(ctx, rec)
}

// bindTeacher reads a teacher payload sent either as JSON or as a multipart form carrying a photo.
func (s *server) bindTeacher(ctx echo.Context) (school.TeacherInput, error) {
	var in school.TeacherInput
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return in, bindAndValidate(ctx, &in)
	}

	in.Name = ctx.FormValue("name")
	in.Email = ctx.FormValue("email")
	in.Phone = ctx.FormValue("phone")
	in.NationalID = ctx.FormValue("national_id")
	in.Qualification = ctx.FormValue("qualification")
	in.HireDate = ctx.FormValue("hire_date")
	if v := ctx.FormValue("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return in, fieldError("is_active", msgInvalidData)
		}
		in.IsActive = &active
	}
	if v := ctx.FormValue("school_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return in, fieldError("school_id", msgInvalidData)
		}
		in.SchoolID = &id
	}

	fh, err := ctx.FormFile("photo")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return in, errors.Wrap(err, "reading photo")
	default:
		f, err := fh.Open()
		if err != nil {
			return in, errors.Wrap(err, "opening photo")
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxPhotoSize+1))
		if err != nil {
			return in, errors.Wrap(err, "reading photo")
		}
		if len(content) > maxPhotoSize {
			return in, fieldError("photo", msgInvalidData)
		}
		in.Photo = &school.TeacherPhoto{Filename: fh.Filename, Content: content}
	}
	return in, ctx.Validate(&in)
}

func (s *server) fillTeacher(_ echo.Context, in school.TeacherInput, rec *school.Teacher) error {
	if err := copyJSON(in, rec); err != nil {
		return err
	}
	if in.SchoolID != nil {
		if _, err := s.db.Schools.Get(*in.SchoolID); err != nil {
			return fieldError("school_id", msgInvalidRef)
		}
	}
	if in.Photo != nil {
		rec.PhotoURL = "/storage/teachers/" + uuid.NewString() + "-" + in.Photo.Filename
	}
	return nil
}

// unlinkTeacher drops the subjects of a deleted teacher and clears them from the grade level subjects.
func (s *server) unlinkTeacher(teacherID int) {
	for _, ts := range s.db.TeacherSubjects.Filter(func(ts dummydb.TeacherSubject) bool { return ts.TeacherID == teacherID }) {
		_ = s.db.TeacherSubjects.Delete(ts.ID)
	}
	for _, a := range s.db.GradeLevelSubjects.Filter(func(a school.GradeLevelSubject) bool {
		return a.TeacherID != nil && *a.TeacherID == teacherID
	}) {
		a.TeacherID, a.Teacher = nil, nil
		_ = s.db.GradeLevelSubjects.Update(a)
	}
}

func (s *server) subjectsOf(teacherID int) []school.Subject {
	links := s.db.TeacherSubjects.Filter(func(ts dummydb.TeacherSubject) bool { return ts.TeacherID == teacherID })
	subjects := make([]school.Subject, 0, len(links))
	for _, l := range links {
		if sub, err := s.db.Subjects.Get(l.SubjectID); err == nil {
			subjects = append(subjects, sub)
		}
	}
	return subjects
}

func (s *server) teacherSubjects(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.db.Teachers.Get(id); err != nil {
		return err
	}
	return ok(ctx, s.subjectsOf(id))
}

// syncTeacherSubjects replaces the subjects of a teacher with the posted subject ids.
func (s *server) syncTeacherSubjects(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	teacher, err := s.db.Teachers.Get(id)
	if err != nil {
		return err
	}
	var in school.TeacherSubjects
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	seen := make(map[int]bool, len(in.SubjectIDs))
	for _, sid := range in.SubjectIDs {
		if _, err = s.db.Subjects.Get(sid); err != nil {
			return fieldError("subject_ids", msgInvalidRef)
		}
	}

	for _, ts := range s.db.TeacherSubjects.Filter(func(ts dummydb.TeacherSubject) bool { return ts.TeacherID == id }) {
		_ = s.db.TeacherSubjects.Delete(ts.ID)
	}
	for _, sid := range in.SubjectIDs {
		if seen[sid] {
			continue
		}
		seen[sid] = true
		s.db.TeacherSubjects.Insert(dummydb.TeacherSubject{TeacherID: id, SubjectID: sid})
	}

	teacher.Subjects = s.subjectsOf(id)
	if err = s.db.Teachers.Update(teacher); err != nil {
		return err
	}
	return ok(ctx, teacher.Subjects)
}

func (s *server) prepareAccount(_ echo.Context, in school.UserInput, rec *dummydb.Account) error {
	rec.Username = core.CleanString(rec.Username, true)
	rec.Email = core.CleanString(rec.Email, true)
	taken := s.db.Accounts.Any(func(acc dummydb.Account) bool {
		return acc.ID != rec.ID && acc.Username == rec.Username
	})
	if taken {
		return fieldError("username", msgUsernameTaken)
	}
	if rec.Roles == nil {
		rec.Roles = []string{}
	}
	if in.SchoolID != nil {
		if _, err := s.db.Schools.Get(*in.SchoolID); err != nil {
			return fieldError("school_id", msgInvalidRef)
		}
	}

	switch {
	case in.Password != "":
		hash, err := hashPassword(in.Password)
		if err != nil {
			return err
		}
		rec.PasswordHash = hash
	case len(rec.PasswordHash) == 0:
		return fieldError("password", msgPasswordNeeded)
	}
	return nil
}
