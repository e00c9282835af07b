package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/search"
	"github.com/trezcool/masomo-admin/settings"
)

type (
	SchoolStore         = Store[school.School, school.SchoolInput, school.SchoolFilter]
	AcademicYearStore   = Store[school.AcademicYear, school.AcademicYearInput, school.AcademicYearFilter]
	GradeLevelStore     = Store[school.GradeLevel, school.GradeLevelInput, school.GradeLevelFilter]
	SubjectStore        = Store[school.Subject, school.SubjectInput, school.SubjectFilter]
	ClassroomStore      = Store[school.Classroom, school.ClassroomInput, school.ClassroomFilter]
	ExamStore           = Store[school.Exam, school.ExamInput, school.ExamFilter]
	StudentStore        = Store[school.Student, school.StudentInput, school.StudentFilter]
	EnrollmentStore     = Store[school.Enrollment, school.EnrollmentInput, school.EnrollmentFilter]
	ExpenseStore        = Store[school.Expense, school.ExpenseInput, school.ExpenseFilter]
	RevenueStore        = Store[school.Revenue, school.RevenueInput, school.RevenueFilter]
	TransportRouteStore = Store[school.TransportRoute, school.TransportRouteInput, school.TransportRouteFilter]
	UserStore           = Store[school.User, school.UserInput, school.UserFilter]
	RoleStore           = Store[school.Role, school.RoleInput, school.RoleFilter]

	GradeLevelSubjectStore = AssignmentStore[school.GradeLevelSubject, school.Subject, school.GradeLevelSubjectInput]
	RouteStudentStore      = AssignmentStore[school.StudentTransport, school.AvailableStudent, school.StudentTransportInput]
)

// Registry holds one store per resource, all synchronized through the same client.
// Tests build a fresh Registry per case.
type Registry struct {
	client *apiclient.Client
	deps   Deps

	Schools            *SchoolStore
	AcademicYears      *AcademicYearStore
	GradeLevels        *GradeLevelStore
	GradeLevelSubjects *GradeLevelSubjectStore
	Subjects           *SubjectStore
	Classrooms         *ClassroomStore
	Exams              *ExamStore
	Students           *StudentStore
	Teachers           *TeacherStore
	Enrollments        *EnrollmentStore
	EnrollmentLogs     *EnrollmentLogStore
	Expenses           *ExpenseStore
	Revenues           *RevenueStore
	Ledgers            *LedgerStore
	TransportRoutes    *TransportRouteStore
	RouteStudents      *RouteStudentStore
	Users              *UserStore
	Roles              *RoleStore
}

// NewRegistry builds every store on top of c. Messages default to the client's locale.
func NewRegistry(c *apiclient.Client, deps Deps) *Registry {
	if deps.Messages == nil {
		deps.Messages = core.NewMessages(c.Translator())
	}
	deps = deps.withDefaults()

	return &Registry{
		client: c,
		deps:   deps,

		Schools: New[school.School, school.SchoolInput, school.SchoolFilter]("schools", c.Schools, deps).
			SortBy(func(s school.School) string { return s.Name }),
		AcademicYears: New[school.AcademicYear, school.AcademicYearInput, school.AcademicYearFilter]("academic_years", c.AcademicYears, deps),
		GradeLevels: New[school.GradeLevel, school.GradeLevelInput, school.GradeLevelFilter]("grade_levels", c.GradeLevels, deps).
			SortBy(func(g school.GradeLevel) string { return g.Name }),
		GradeLevelSubjects: NewAssignmentStore[school.GradeLevelSubject, school.Subject, school.GradeLevelSubjectInput](
			"grade_level_subjects", c.GradeLevels.Subjects, deps,
		),
		Subjects: New[school.Subject, school.SubjectInput, school.SubjectFilter]("subjects", c.Subjects, deps).
			SortBy(func(s school.Subject) string { return s.Name }),
		Classrooms: New[school.Classroom, school.ClassroomInput, school.ClassroomFilter]("classrooms", c.Classrooms, deps).
			SortBy(func(cl school.Classroom) string { return cl.Name }),
		Exams:    New[school.Exam, school.ExamInput, school.ExamFilter]("exams", c.Exams, deps),
		Students: New[school.Student, school.StudentInput, school.StudentFilter]("students", c.Students, deps).
			SortBy(func(s school.Student) string { return s.Name }),
		Teachers:       NewTeacherStore(c.Teachers, deps),
		Enrollments:    New[school.Enrollment, school.EnrollmentInput, school.EnrollmentFilter]("enrollments", c.Enrollments, deps),
		EnrollmentLogs: NewEnrollmentLogStore(NewEnrollmentLogAPI(c), deps),
		Expenses:       New[school.Expense, school.ExpenseInput, school.ExpenseFilter]("expenses", c.Expenses, deps),
		Revenues:       New[school.Revenue, school.RevenueInput, school.RevenueFilter]("revenues", c.Revenues, deps),
		Ledgers:        NewLedgerStore(c.Ledgers, deps),
		TransportRoutes: New[school.TransportRoute, school.TransportRouteInput, school.TransportRouteFilter]("transport_routes", c.TransportRoutes, deps).
			SortBy(func(r school.TransportRoute) string { return r.Name }),
		RouteStudents: NewAssignmentStore[school.StudentTransport, school.AvailableStudent, school.StudentTransportInput](
			"route_students", c.TransportRoutes.Students, deps,
		),
		Users: New[school.User, school.UserInput, school.UserFilter]("users", c.Users, deps).
			SortBy(func(u school.User) string { return u.Name }),
		Roles: New[school.Role, school.RoleInput, school.RoleFilter]("roles", c.Roles, deps).
			SortBy(func(r school.Role) string { return r.Name }),
	}
}

// StudentSearch returns a debounced name search over the students endpoint.
// onResult receives the results of the latest query only; Close it when the search view goes away.
func (r *Registry) StudentSearch(onResult func(search.Result[school.Student]), opts ...search.Option) *search.Debouncer[school.Student] {
	return search.New(r.client.Students.Search, onResult, opts...)
}

// Follow refetches the academic years of the active school whenever it changes,
// and once at subscription when a school is already active. The returned func stops following.
func (r *Registry) Follow(ctx context.Context, st *settings.Store) func() {
	var (
		mu   sync.Mutex
		last int64
	)
	refresh := func(s settings.Settings) {
		mu.Lock()
		if !s.ActiveSchoolID.Valid {
			last = 0
			mu.Unlock()
			r.AcademicYears.Reset()
			return
		}
		if int64(s.ActiveSchoolID.Int) == last {
			mu.Unlock()
			return
		}
		last = int64(s.ActiveSchoolID.Int)
		mu.Unlock()

		schoolID := int64(s.ActiveSchoolID.Int)
		filter := school.AcademicYearFilter{SchoolID: int(schoolID)}
		if err := r.AcademicYears.FetchAll(ctx, filter); err != nil && !errors.Is(err, ErrSuperseded) {
			r.deps.Logger.Warn("fetching academic years of the active school", err)
			// a school whose fetch failed is fetched again on its next notification
			mu.Lock()
			if last == schoolID {
				last = 0
			}
			mu.Unlock()
		}
	}

	unsubscribe := st.Subscribe(refresh)
	refresh(st.Settings())
	return unsubscribe
}

// Reset empties every store.
func (r *Registry) Reset() {
	r.Schools.Reset()
	r.AcademicYears.Reset()
	r.GradeLevels.Reset()
	r.GradeLevelSubjects.Reset()
	r.Subjects.Reset()
	r.Classrooms.Reset()
	r.Exams.Reset()
	r.Students.Reset()
	r.Teachers.Reset()
	r.Enrollments.Reset()
	r.EnrollmentLogs.Reset()
	r.Expenses.Reset()
	r.Revenues.Reset()
	r.Ledgers.Reset()
	r.TransportRoutes.Reset()
	r.RouteStudents.Reset()
	r.Users.Reset()
	r.Roles.Reset()
}
