package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/school"
)

const dateLayout = "2006-01-02"

func (s *server) registerEnrollmentRoutes(g *echo.Group) {
	enrollments := &resource[school.Enrollment, school.EnrollmentInput]{
		table:        s.db.Enrollments,
		searchFields: []string{"student.name"},
		init:         func(rec *school.Enrollment) { rec.CreatedAt = time.Now().UTC() },
		prepare: func(_ echo.Context, _ school.EnrollmentInput, rec *school.Enrollment) error {
			return s.linkEnrollment(rec)
		},
		canDelete: func(rec school.Enrollment) error {
			if s.db.Ledgers.Any(func(l school.LedgerEntry) bool { return l.EnrollmentID == rec.ID }) {
				return errConflict(msgEnrollmentUsed)
			}
			return nil
		},
		created: func(ctx echo.Context, rec school.Enrollment) {
			s.logEnrollment(ctx, rec.ID, school.LogCreated, "تم إنشاء التسجيل", nil, fieldsOf(rec))
		},
		updated: func(ctx echo.Context, old, rec school.Enrollment) {
			oldValues, newValues := diffFields(fieldsOf(old), fieldsOf(rec))
			if len(newValues) == 0 {
				return
			}
			action, desc := school.LogUpdated, "تم تعديل التسجيل"
			if old.Status != rec.Status {
				action, desc = school.LogStatusChanged, "تم تغيير حالة التسجيل"
			}
			s.logEnrollment(ctx, rec.ID, action, desc, oldValues, newValues)
		},
		deleted: func(ctx echo.Context, rec school.Enrollment) {
			for _, st := range s.db.StudentTransports.Filter(func(st school.StudentTransport) bool { return st.EnrollmentID == rec.ID }) {
				_ = s.db.StudentTransports.Delete(st.ID)
			}
			s.logEnrollment(ctx, rec.ID, school.LogDeleted, "تم حذف التسجيل", fieldsOf(rec), nil)
		},
	}
	enrollments.register(g, "/enrollments")
	g.GET("/enrollments/:id/logs", s.enrollmentLogs)

	g.GET("/enrollment-logs", s.listEnrollmentLogs)
	g.GET("/enrollment-logs/statistics", s.enrollmentLogStatistics)
}

// linkEnrollment checks the records an enrollment points to and embeds their Ref.
func (s *server) linkEnrollment(rec *school.Enrollment) error {
	st, err := s.db.Students.Get(rec.StudentID)
	if err != nil {
		return fieldError("student_id", msgInvalidRef)
	}
	sch, err := s.db.Schools.Get(rec.SchoolID)
	if err != nil {
		return fieldError("school_id", msgInvalidRef)
	}
	year, err := s.db.AcademicYears.Get(rec.AcademicYearID)
	if err != nil || year.SchoolID != rec.SchoolID {
		return fieldError("academic_year_id", msgInvalidRef)
	}
	lvl, err := s.db.GradeLevels.Get(rec.GradeLevelID)
	if err != nil {
		return fieldError("grade_level_id", msgInvalidRef)
	}
	rec.Student = &school.Ref{ID: st.ID, Name: st.Name}
	rec.School = &school.Ref{ID: sch.ID, Name: sch.Name}
	rec.AcademicYear = &school.Ref{ID: year.ID, Name: year.Name}
	rec.GradeLevel = &school.Ref{ID: lvl.ID, Name: lvl.Name}
	rec.Classroom = nil
	if rec.ClassroomID != nil {
		cl, err := s.db.Classrooms.Get(*rec.ClassroomID)
		if err != nil || cl.GradeLevelID != rec.GradeLevelID {
			return fieldError("classroom_id", msgInvalidRef)
		}
		rec.Classroom = &school.Ref{ID: cl.ID, Name: cl.Name}
	}
	return nil
}

func (s *server) logEnrollment(ctx echo.Context, enrollmentID int, action, desc string, oldValues, newValues map[string]interface{}) {
	s.db.EnrollmentLogs.Insert(school.EnrollmentLog{
		EnrollmentID: enrollmentID,
		ActionType:   action,
		Description:  desc,
		OldValues:    oldValues,
		NewValues:    newValues,
		ChangedBy:    changedBy(ctx),
		CreatedAt:    time.Now().UTC(),
	})
}

// diffFields keeps the top level fields whose JSON value changed. Embedded refs are skipped.
func diffFields(old, cur map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	oldValues, newValues := map[string]interface{}{}, map[string]interface{}{}
	for k, v := range cur {
		if _, isRef := v.(map[string]interface{}); isRef {
			continue
		}
		a, _ := formatField(old[k])
		b, _ := formatField(v)
		if a != b || (old[k] == nil) != (v == nil) {
			oldValues[k] = old[k]
			newValues[k] = v
		}
	}
	return oldValues, newValues
}

func (s *server) enrollmentLogs(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	return ok(ctx, s.db.EnrollmentLogs.Filter(func(l school.EnrollmentLog) bool { return l.EnrollmentID == id }))
}

// filterLogs applies the date_from and date_to query parameters, both inclusive.
func (s *server) filterLogs(ctx echo.Context) []school.EnrollmentLog {
	from, to := ctx.QueryParam("date_from"), ctx.QueryParam("date_to")
	return s.db.EnrollmentLogs.Filter(func(l school.EnrollmentLog) bool {
		day := l.CreatedAt.Format(dateLayout)
		return (from == "" || day >= from) && (to == "" || day <= to)
	})
}

func (s *server) listEnrollmentLogs(ctx echo.Context) error {
	logs := s.filterLogs(ctx)
	// newest first
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return respondList(ctx, logs, true, "description")
}

func (s *server) enrollmentLogStatistics(ctx echo.Context) error {
	enrollmentID := queryInt(ctx, "enrollment_id")
	today := time.Now().UTC().Format(dateLayout)
	stats := school.EnrollmentLogStatistics{ActionTypes: map[string]int{}}
	for _, l := range s.filterLogs(ctx) {
		if enrollmentID != 0 && l.EnrollmentID != enrollmentID {
			continue
		}
		stats.TotalLogs++
		stats.ActionTypes[l.ActionType]++
		if l.CreatedAt.Format(dateLayout) == today {
			stats.TodayLogs++
		}
	}
	return ok(ctx, stats)
}
