package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/school"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

func (s *server) registerAcademicRoutes(g *echo.Group) {
	schools := &resource[school.School, school.SchoolInput]{
		table:        s.db.Schools,
		searchFields: []string{"name", "code"},
		init: func(rec *school.School) {
			rec.IsActive = true
			rec.CreatedAt = time.Now().UTC()
		},
		prepare: func(_ echo.Context, _ school.SchoolInput, rec *school.School) error {
			rec.UpdatedAt = time.Now().UTC()
			return uniqueCode(s.db.Schools, rec.ID, rec.Code, func(o school.School) string { return o.Code })
		},
		canDelete: func(rec school.School) error {
			used := s.db.AcademicYears.Any(func(y school.AcademicYear) bool { return y.SchoolID == rec.ID }) ||
				s.db.Classrooms.Any(func(c school.Classroom) bool { return c.SchoolID == rec.ID }) ||
				s.db.Enrollments.Any(func(e school.Enrollment) bool { return e.SchoolID == rec.ID })
			if used {
				return errConflict(msgSchoolUsed)
			}
			return nil
		},
	}
	schools.register(g, "/schools")

	years := &resource[school.AcademicYear, school.AcademicYearInput]{
		table:        s.db.AcademicYears,
		searchFields: []string{"name"},
		init: func(rec *school.AcademicYear) {
			rec.CreatedAt = time.Now().UTC()
		},
		prepare: func(_ echo.Context, _ school.AcademicYearInput, rec *school.AcademicYear) error {
			if rec.Status == "" {
				rec.Status = school.YearPending
			}
			sch, err := s.db.Schools.Get(rec.SchoolID)
			if err != nil {
				return fieldError("school_id", msgInvalidRef)
			}
			rec.School = &school.Ref{ID: sch.ID, Name: sch.Name}
			return nil
		},
		canDelete: func(rec school.AcademicYear) error {
			used := s.db.Enrollments.Any(func(e school.Enrollment) bool { return e.AcademicYearID == rec.ID }) ||
				s.db.Exams.Any(func(e school.Exam) bool { return e.AcademicYearID == rec.ID })
			if used {
				return errConflict(msgYearUsed)
			}
			return nil
		},
	}
	years.created = func(_ echo.Context, rec school.AcademicYear) { s.keepSingleCurrentYear(rec) }
	years.updated = func(_ echo.Context, _, rec school.AcademicYear) { s.keepSingleCurrentYear(rec) }
	years.register(g, "/academic-years")

	levels := &resource[school.GradeLevel, school.GradeLevelInput]{
		table:        s.db.GradeLevels,
		searchFields: []string{"name", "code"},
		prepare: func(_ echo.Context, _ school.GradeLevelInput, rec *school.GradeLevel) error {
			return uniqueCode(s.db.GradeLevels, rec.ID, rec.Code, func(o school.GradeLevel) string { return o.Code })
		},
		canDelete: func(rec school.GradeLevel) error {
			used := s.db.Classrooms.Any(func(c school.Classroom) bool { return c.GradeLevelID == rec.ID }) ||
				s.db.GradeLevelSubjects.Any(func(a school.GradeLevelSubject) bool { return a.GradeLevelID == rec.ID }) ||
				s.db.Enrollments.Any(func(e school.Enrollment) bool { return e.GradeLevelID == rec.ID })
			if used {
				return errConflict(msgGradeLevelUsed)
			}
			return nil
		},
	}
	levels.register(g, "/grade-levels")

	g.GET("/grade-levels/:id/subjects", s.gradeLevelSubjects)
	g.GET("/grade-levels/:id/available-subjects", s.availableSubjects)
	g.POST("/grade-levels/:id/subjects", s.assignSubject)
	g.PUT("/grade-levels/:id/subjects/:assignmentId", s.updateSubjectAssignment)
	g.DELETE("/grade-levels/:id/subjects/:assignmentId", s.unassignSubject)

	subjects := &resource[school.Subject, school.SubjectInput]{
		table:        s.db.Subjects,
		searchFields: []string{"name", "code"},
		init:         func(rec *school.Subject) { rec.IsActive = true },
		prepare: func(_ echo.Context, _ school.SubjectInput, rec *school.Subject) error {
			return uniqueCode(s.db.Subjects, rec.ID, rec.Code, func(o school.Subject) string { return o.Code })
		},
		canDelete: func(rec school.Subject) error {
			if s.db.GradeLevelSubjects.Any(func(a school.GradeLevelSubject) bool { return a.SubjectID == rec.ID }) {
				return errConflict(msgSubjectUsed)
			}
			return nil
		},
		deleted: func(_ echo.Context, rec school.Subject) {
			for _, ts := range s.db.TeacherSubjects.Filter(func(ts dummydb.TeacherSubject) bool { return ts.SubjectID == rec.ID }) {
				_ = s.db.TeacherSubjects.Delete(ts.ID)
			}
		},
	}
	subjects.register(g, "/subjects")

	classrooms := &resource[school.Classroom, school.ClassroomInput]{
		table:        s.db.Classrooms,
		searchFields: []string{"name"},
		prepare: func(_ echo.Context, _ school.ClassroomInput, rec *school.Classroom) error {
			lvl, err := s.db.GradeLevels.Get(rec.GradeLevelID)
			if err != nil {
				return fieldError("grade_level_id", msgInvalidRef)
			}
			sch, err := s.db.Schools.Get(rec.SchoolID)
			if err != nil {
				return fieldError("school_id", msgInvalidRef)
			}
			rec.GradeLevel = &school.Ref{ID: lvl.ID, Name: lvl.Name}
			rec.School = &school.Ref{ID: sch.ID, Name: sch.Name}
			return nil
		},
	}
	classrooms.register(g, "/classrooms")

	exams := &resource[school.Exam, school.ExamInput]{
		table:        s.db.Exams,
		searchFields: []string{"name"},
		prepare: func(_ echo.Context, _ school.ExamInput, rec *school.Exam) error {
			year, err := s.db.AcademicYears.Get(rec.AcademicYearID)
			if err != nil {
				return fieldError("academic_year_id", msgInvalidRef)
			}
			if rec.GradeLevelID != nil {
				if _, err = s.db.GradeLevels.Get(*rec.GradeLevelID); err != nil {
					return fieldError("grade_level_id", msgInvalidRef)
				}
			}
			rec.AcademicYear = &school.Ref{ID: year.ID, Name: year.Name}
			return nil
		},
	}
	exams.register(g, "/exams")
}

// uniqueCode fails when another row of t than id already uses code (case insensitive).
func uniqueCode[T dummydb.Record](t *dummydb.Table[T], id int, code string, codeOf func(T) string) error {
	taken := t.Any(func(o T) bool {
		return o.EntityID() != id && strings.EqualFold(codeOf(o), code)
	})
	if taken {
		return fieldError("code", msgCodeTaken)
	}
	return nil
}

// keepSingleCurrentYear unflags the other current years of the school of rec.
func (s *server) keepSingleCurrentYear(rec school.AcademicYear) {
	if !rec.IsCurrent {
		return
	}
	others := s.db.AcademicYears.Filter(func(y school.AcademicYear) bool {
		return y.SchoolID == rec.SchoolID && y.ID != rec.ID && y.IsCurrent
	})
	for _, y := range others {
		y.IsCurrent = false
		_ = s.db.AcademicYears.Update(y)
	}
}

func (s *server) gradeLevelSubjects(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.db.GradeLevels.Get(id); err != nil {
		return err
	}
	return ok(ctx, s.db.GradeLevelSubjects.Filter(func(a school.GradeLevelSubject) bool { return a.GradeLevelID == id }))
}

// availableSubjects lists the active subjects not yet assigned to the grade level.
func (s *server) availableSubjects(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.db.GradeLevels.Get(id); err != nil {
		return err
	}
	return ok(ctx, s.db.Subjects.Filter(func(sub school.Subject) bool {
		return sub.IsActive && !s.db.GradeLevelSubjects.Any(func(a school.GradeLevelSubject) bool {
			return a.GradeLevelID == id && a.SubjectID == sub.ID
		})
	}))
}

func (s *server) assignSubject(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.db.GradeLevels.Get(id); err != nil {
		return err
	}
	var in school.GradeLevelSubjectInput
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if s.db.GradeLevelSubjects.Any(func(a school.GradeLevelSubject) bool {
		return a.GradeLevelID == id && a.SubjectID == in.SubjectID
	}) {
		return errConflict(msgAlreadyAssign)
	}
	rec := school.GradeLevelSubject{GradeLevelID: id}
	if err = s.fillSubjectAssignment(in, &rec); err != nil {
		return err
	}
	return created(ctx, s.db.GradeLevelSubjects.Insert(rec))
}

func (s *server) updateSubjectAssignment(ctx echo.Context) error {
	rec, err := s.subjectAssignment(ctx)
	if err != nil {
		return err
	}
	var in school.GradeLevelSubjectInput
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if in.SubjectID != rec.SubjectID && s.db.GradeLevelSubjects.Any(func(a school.GradeLevelSubject) bool {
		return a.GradeLevelID == rec.GradeLevelID && a.SubjectID == in.SubjectID
	}) {
		return errConflict(msgAlreadyAssign)
	}
	if err = s.fillSubjectAssignment(in, &rec); err != nil {
		return err
	}
	if err = s.db.GradeLevelSubjects.Update(rec); err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (s *server) unassignSubject(ctx echo.Context) error {
	rec, err := s.subjectAssignment(ctx)
	if err != nil {
		return err
	}
	if err = s.db.GradeLevelSubjects.Delete(rec.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) subjectAssignment(ctx echo.Context) (school.GradeLevelSubject, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return school.GradeLevelSubject{}, err
	}
	assignmentID, err := pathID(ctx, "assignmentId")
	if err != nil {
		return school.GradeLevelSubject{}, err
	}
	rec, err := s.db.GradeLevelSubjects.Get(assignmentID)
	if err != nil || rec.GradeLevelID != id {
		return school.GradeLevelSubject{}, errHttpNotFound
	}
	return rec, nil
}

func (s *server) fillSubjectAssignment(in school.GradeLevelSubjectInput, rec *school.GradeLevelSubject) error {
	sub, err := s.db.Subjects.Get(in.SubjectID)
	if err != nil {
		return fieldError("subject_id", msgInvalidRef)
	}
	rec.SubjectID = sub.ID
	rec.Subject = &school.Ref{ID: sub.ID, Name: sub.Name}
	rec.TeacherID, rec.Teacher = nil, nil
	if in.TeacherID != nil {
		t, err := s.db.Teachers.Get(*in.TeacherID)
		if err != nil {
			return fieldError("teacher_id", msgInvalidRef)
		}
		rec.TeacherID = &t.ID
		rec.Teacher = &school.Ref{ID: t.ID, Name: t.Name}
	}
	rec.IsMandatory = in.IsMandatory
	rec.WeeklyHours = in.WeeklyHours
	return nil
}
