// Package dummydb is an in-memory database for the reference backend and tests.
package dummydb

import (
	"github.com/trezcool/masomo-admin/core/school"
)

type (
	// Account is a user along with its password hash.
	Account struct {
		school.User
		PasswordHash []byte `json:"-"`
	}

	DB struct {
		Schools            *Table[school.School]
		AcademicYears      *Table[school.AcademicYear]
		GradeLevels        *Table[school.GradeLevel]
		GradeLevelSubjects *Table[school.GradeLevelSubject]
		Subjects           *Table[school.Subject]
		Classrooms         *Table[school.Classroom]
		Exams              *Table[school.Exam]
		Students           *Table[school.Student]
		Teachers           *Table[school.Teacher]
		TeacherSubjects    *Table[TeacherSubject]
		Enrollments        *Table[school.Enrollment]
		EnrollmentLogs     *Table[school.EnrollmentLog]
		Expenses           *Table[school.Expense]
		Revenues           *Table[school.Revenue]
		Ledgers            *Table[school.LedgerEntry]
		LedgerDeletions    *Table[school.LedgerDeletion]
		TransportRoutes    *Table[school.TransportRoute]
		StudentTransports  *Table[school.StudentTransport]
		Accounts           *Table[Account]
		Roles              *Table[school.Role]
	}

	// TeacherSubject links a teacher to a subject they teach.
	TeacherSubject struct {
		ID        int
		TeacherID int
		SubjectID int
	}
)

func (ts TeacherSubject) EntityID() int { return ts.ID }

func Open() (*DB, error) {
	db := &DB{
		Schools:            NewTable(func(r *school.School, id int) { r.ID = id }),
		AcademicYears:      NewTable(func(r *school.AcademicYear, id int) { r.ID = id }),
		GradeLevels:        NewTable(func(r *school.GradeLevel, id int) { r.ID = id }),
		GradeLevelSubjects: NewTable(func(r *school.GradeLevelSubject, id int) { r.ID = id }),
		Subjects:           NewTable(func(r *school.Subject, id int) { r.ID = id }),
		Classrooms:         NewTable(func(r *school.Classroom, id int) { r.ID = id }),
		Exams:              NewTable(func(r *school.Exam, id int) { r.ID = id }),
		Students:           NewTable(func(r *school.Student, id int) { r.ID = id }),
		Teachers:           NewTable(func(r *school.Teacher, id int) { r.ID = id }),
		TeacherSubjects:    NewTable(func(r *TeacherSubject, id int) { r.ID = id }),
		Enrollments:        NewTable(func(r *school.Enrollment, id int) { r.ID = id }),
		EnrollmentLogs:     NewTable(func(r *school.EnrollmentLog, id int) { r.ID = id }),
		Expenses:           NewTable(func(r *school.Expense, id int) { r.ID = id }),
		Revenues:           NewTable(func(r *school.Revenue, id int) { r.ID = id }),
		Ledgers:            NewTable(func(r *school.LedgerEntry, id int) { r.ID = id }),
		LedgerDeletions:    NewTable(func(r *school.LedgerDeletion, id int) { r.ID = id }),
		TransportRoutes:    NewTable(func(r *school.TransportRoute, id int) { r.ID = id }),
		StudentTransports:  NewTable(func(r *school.StudentTransport, id int) { r.ID = id }),
		Accounts:           NewTable(func(r *Account, id int) { r.ID = id }),
		Roles:              NewTable(func(r *school.Role, id int) { r.ID = id }),
	}
	return db, nil
}
