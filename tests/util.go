// Package testutil starts the reference backend in-process and seeds its database.
package testutil

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	echoapi "github.com/trezcool/masomo-admin/apps/api/echo"
	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

const (
	AdminUsername = "admin"
	AdminPassword = "admin-secret"
	SecretKey     = "test-secret-key"
)

// NewServer starts the reference backend on a fresh database. It is closed with the test.
func NewServer(t *testing.T) (*httptest.Server, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	srv, err := echoapi.NewServer(&echoapi.Options{
		AppName:            "Madrasa Test",
		TestMode:           true,
		DisableReqLogs:     true,
		SecretKey:          SecretKey,
		JWTExpirationDelta: time.Hour,
		AdminUsername:      AdminUsername,
		AdminPassword:      AdminPassword,
		DB:                 db,
	})
	if err != nil {
		t.Fatalf("echoapi.NewServer() failed: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, db
}

// NewClient returns a client of a fresh backend, logged in as the admin.
func NewClient(t *testing.T, opts ...apiclient.Option) (*apiclient.Client, *dummydb.DB) {
	t.Helper()
	ts, db := NewServer(t)
	c := apiclient.New(core.APIConfig{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second, Locale: "ar"}, opts...)
	if _, err := c.Login(context.Background(), AdminUsername, AdminPassword); err != nil {
		t.Fatalf("Login() failed: %v", err)
	}
	return c, db
}

func CreateUser(t *testing.T, db *dummydb.DB, name, uname, pwd string, roles []string, isActive bool) school.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	acc := db.Accounts.Insert(dummydb.Account{
		User: school.User{
			Name:      name,
			Username:  uname,
			IsActive:  isActive,
			Roles:     roles,
			CreatedAt: time.Now().UTC(),
		},
		PasswordHash: hash,
	})
	return acc.User
}

func CreateSchool(t *testing.T, db *dummydb.DB, name, code string) school.School {
	t.Helper()
	now := time.Now().UTC()
	return db.Schools.Insert(school.School{Name: name, Code: code, IsActive: true, CreatedAt: now, UpdatedAt: now})
}

func CreateAcademicYear(t *testing.T, db *dummydb.DB, sch school.School, name string, current bool) school.AcademicYear {
	t.Helper()
	return db.AcademicYears.Insert(school.AcademicYear{
		Name:      name,
		StartDate: "2024-09-01",
		EndDate:   "2025-06-30",
		Status:    school.YearActive,
		IsCurrent: current,
		SchoolID:  sch.ID,
		School:    &school.Ref{ID: sch.ID, Name: sch.Name},
		CreatedAt: time.Now().UTC(),
	})
}

func CreateGradeLevel(t *testing.T, db *dummydb.DB, name, code string) school.GradeLevel {
	t.Helper()
	return db.GradeLevels.Insert(school.GradeLevel{Name: name, Code: code})
}

func CreateSubject(t *testing.T, db *dummydb.DB, name, code string) school.Subject {
	t.Helper()
	return db.Subjects.Insert(school.Subject{Name: name, Code: code, IsActive: true})
}

func CreateClassroom(t *testing.T, db *dummydb.DB, lvl school.GradeLevel, sch school.School, name string) school.Classroom {
	t.Helper()
	return db.Classrooms.Insert(school.Classroom{
		Name:         name,
		Capacity:     30,
		GradeLevelID: lvl.ID,
		SchoolID:     sch.ID,
		GradeLevel:   &school.Ref{ID: lvl.ID, Name: lvl.Name},
		School:       &school.Ref{ID: sch.ID, Name: sch.Name},
	})
}

func CreateStudent(t *testing.T, db *dummydb.DB, name string) school.Student {
	t.Helper()
	return db.Students.Insert(school.Student{
		Name:        name,
		Gender:      school.GenderMale,
		DateOfBirth: "2015-03-12",
		ParentName:  "ولي " + name,
		ParentPhone: "0912345678",
		CreatedAt:   time.Now().UTC(),
	})
}

func CreateTeacher(t *testing.T, db *dummydb.DB, name string) school.Teacher {
	t.Helper()
	return db.Teachers.Insert(school.Teacher{Name: name, IsActive: true})
}

func CreateEnrollment(t *testing.T, db *dummydb.DB, st school.Student, sch school.School, year school.AcademicYear, lvl school.GradeLevel) school.Enrollment {
	t.Helper()
	return db.Enrollments.Insert(school.Enrollment{
		StudentID:      st.ID,
		SchoolID:       sch.ID,
		AcademicYearID: year.ID,
		GradeLevelID:   lvl.ID,
		Status:         school.EnrollmentActive,
		EnrollmentType: school.EnrollmentNew,
		Fees:           1500,
		Student:        &school.Ref{ID: st.ID, Name: st.Name},
		School:         &school.Ref{ID: sch.ID, Name: sch.Name},
		AcademicYear:   &school.Ref{ID: year.ID, Name: year.Name},
		GradeLevel:     &school.Ref{ID: lvl.ID, Name: lvl.Name},
		CreatedAt:      time.Now().UTC(),
	})
}

func CreateTransportRoute(t *testing.T, db *dummydb.DB, sch school.School, name string, capacity int) school.TransportRoute {
	t.Helper()
	return db.TransportRoutes.Insert(school.TransportRoute{Name: name, Capacity: capacity, IsActive: true, SchoolID: sch.ID})
}
