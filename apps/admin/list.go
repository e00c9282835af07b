package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core/school"
	"github.com/trezcool/masomo-admin/search"
	"github.com/trezcool/masomo-admin/store"
)

type (
	listQuery struct {
		search   string
		page     int
		schoolID int
		yearID   int
	}

	table struct {
		header []string
		rows   [][]string
		paging *apiclient.Pagination
	}

	lister func(ctx context.Context, q listQuery) (table, error)
)

func listableResources() []string {
	names := make([]string, 0, len(listers))
	for name := range listers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var listers = map[string]func(r *store.Registry) lister{
	"schools": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.SchoolFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.Schools, filter, []string{"ID", "NAME", "CODE", "ACTIVE"}, func(s school.School) []string {
				return []string{itoa(s.ID), s.Name, s.Code, strconv.FormatBool(s.IsActive)}
			})
		}
	},
	"academic-years": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.AcademicYearFilter{Paging: paging(q), SchoolID: q.schoolID}
			return fetch(ctx, r.AcademicYears, filter, []string{"ID", "NAME", "STATUS", "CURRENT"}, func(y school.AcademicYear) []string {
				return []string{itoa(y.ID), y.Name, y.Status, strconv.FormatBool(y.IsCurrent)}
			})
		}
	},
	"grade-levels": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.GradeLevelFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.GradeLevels, filter, []string{"ID", "NAME", "CODE"}, func(g school.GradeLevel) []string {
				return []string{itoa(g.ID), g.Name, g.Code}
			})
		}
	},
	"subjects": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.SubjectFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.Subjects, filter, []string{"ID", "NAME", "CODE", "ACTIVE"}, func(s school.Subject) []string {
				return []string{itoa(s.ID), s.Name, s.Code, strconv.FormatBool(s.IsActive)}
			})
		}
	},
	"classrooms": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.ClassroomFilter{Paging: paging(q), SchoolID: q.schoolID}
			return fetch(ctx, r.Classrooms, filter, []string{"ID", "NAME", "GRADE LEVEL", "CAPACITY"}, func(c school.Classroom) []string {
				return []string{itoa(c.ID), c.Name, refName(c.GradeLevel), itoa(c.Capacity)}
			})
		}
	},
	"exams": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.ExamFilter{Paging: paging(q), AcademicYearID: q.yearID}
			return fetch(ctx, r.Exams, filter, []string{"ID", "NAME", "START", "END"}, func(e school.Exam) []string {
				return []string{itoa(e.ID), e.Name, e.StartDate, e.EndDate}
			})
		}
	},
	"students": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.StudentFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.Students, filter, []string{"ID", "NAME", "GENDER", "PARENT PHONE"}, func(s school.Student) []string {
				return []string{itoa(s.ID), s.Name, s.Gender, s.ParentPhone}
			})
		}
	},
	"teachers": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.TeacherFilter{Paging: paging(q), Search: q.search, SchoolID: q.schoolID}
			return fetch(ctx, r.Teachers.Store, filter, []string{"ID", "NAME", "PHONE", "ACTIVE"}, func(t school.Teacher) []string {
				return []string{itoa(t.ID), t.Name, t.Phone, strconv.FormatBool(t.IsActive)}
			})
		}
	},
	"enrollments": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.EnrollmentFilter{Paging: paging(q), Search: q.search, SchoolID: q.schoolID, AcademicYearID: q.yearID}
			return fetch(ctx, r.Enrollments, filter, []string{"ID", "STUDENT", "GRADE LEVEL", "STATUS"}, func(e school.Enrollment) []string {
				return []string{itoa(e.ID), refName(e.Student), refName(e.GradeLevel), e.Status}
			})
		}
	},
	"expenses": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.ExpenseFilter{Paging: paging(q), SchoolID: q.schoolID}
			return fetch(ctx, r.Expenses, filter, []string{"ID", "TITLE", "AMOUNT", "DATE"}, func(e school.Expense) []string {
				return []string{itoa(e.ID), e.Title, ftoa(e.Amount), e.ExpenseDate}
			})
		}
	},
	"revenues": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.RevenueFilter{Paging: paging(q), SchoolID: q.schoolID}
			return fetch(ctx, r.Revenues, filter, []string{"ID", "TITLE", "AMOUNT", "DATE"}, func(e school.Revenue) []string {
				return []string{itoa(e.ID), e.Title, ftoa(e.Amount), e.RevenueDate}
			})
		}
	},
	"transport-routes": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.TransportRouteFilter{Paging: paging(q), Search: q.search, SchoolID: q.schoolID}
			return fetch(ctx, r.TransportRoutes, filter, []string{"ID", "NAME", "DRIVER", "CAPACITY"}, func(t school.TransportRoute) []string {
				return []string{itoa(t.ID), t.Name, t.DriverName, itoa(t.Capacity)}
			})
		}
	},
	"users": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.UserFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.Users, filter, []string{"ID", "NAME", "USERNAME", "ROLES"}, func(u school.User) []string {
				return []string{itoa(u.ID), u.Name, u.Username, strings.Join(u.Roles, ",")}
			})
		}
	},
	"roles": func(r *store.Registry) lister {
		return func(ctx context.Context, q listQuery) (table, error) {
			filter := school.RoleFilter{Paging: paging(q), Search: q.search}
			return fetch(ctx, r.Roles, filter, []string{"ID", "NAME", "PERMISSIONS"}, func(ro school.Role) []string {
				return []string{itoa(ro.ID), ro.Name, strings.Join(ro.Permissions, ",")}
			})
		}
	},
}

// list prints one page of a resource, scoped to the active school and academic year.
func (cli *commandLine) list(ctx context.Context, resource, term string, page int) error {
	newLister, found := listers[resource]
	if !found {
		return errors.Errorf("unknown resource %q, want one of %s", resource, strings.Join(listableResources(), "|"))
	}
	if err := cli.requireSession(); err != nil {
		return err
	}

	st := cli.settings.Settings()
	tbl, err := newLister(cli.stores)(ctx, listQuery{
		search:   term,
		page:     page,
		schoolID: st.ActiveSchoolID.Int,
		yearID:   st.ActiveAcademicYearID.Int,
	})
	if err != nil {
		return err
	}
	return cli.printTable(tbl)
}

func (cli *commandLine) printTable(tbl table) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(tbl.header, "\t"))
	for _, row := range tbl.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "writing table")
	}
	if p := tbl.paging; p != nil {
		fmt.Fprintf(cli.out, "page %d/%d (%d total)\n", p.CurrentPage, p.LastPage, p.Total)
	}
	return nil
}

// searchStudents runs one debounced lookup. A name shorter than the minimum length
// prints an empty table without querying the API.
func (cli *commandLine) searchStudents(ctx context.Context, name string) error {
	if err := cli.requireSession(); err != nil {
		return err
	}

	results := make(chan search.Result[school.Student], 1)
	d := cli.stores.StudentSearch(
		func(res search.Result[school.Student]) {
			select {
			case results <- res:
			default:
			}
		},
		search.WithDelay(cli.conf.Search.Debounce),
		search.WithMinLength(cli.conf.Search.MinLength),
	)
	defer d.Close()

	d.Input(name)
	var res search.Result[school.Student]
	select {
	case res = <-results:
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
	if res.Err != nil {
		return res.Err
	}

	tbl := table{header: []string{"ID", "NAME", "PARENT PHONE"}}
	for _, s := range res.Items {
		tbl.rows = append(tbl.rows, []string{itoa(s.ID), s.Name, s.ParentPhone})
	}
	return cli.printTable(tbl)
}

func fetch[T store.Entity, I, F any](ctx context.Context, s *store.Store[T, I, F], filter F, header []string, row func(T) []string) (table, error) {
	if err := s.FetchAll(ctx, filter); err != nil {
		return table{}, err
	}
	st := s.State()
	tbl := table{header: header, paging: st.Pagination}
	for _, item := range st.Items {
		tbl.rows = append(tbl.rows, row(item))
	}
	return tbl, nil
}

func paging(q listQuery) school.Paging {
	return school.Paging{Page: q.page}
}

func refName(ref *school.Ref) string {
	if ref == nil {
		return "-"
	}
	return ref.Name
}

func itoa(i int) string { return strconv.Itoa(i) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
