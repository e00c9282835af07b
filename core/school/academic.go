package school

import (
	"net/url"
	"time"
)

// Academic year statuses
const (
	YearPending   = "pending"
	YearActive    = "active"
	YearCompleted = "completed"
)

type AcademicYear struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	IsCurrent bool      `json:"is_current"`
	SchoolID  int       `json:"school_id"`
	School    *Ref      `json:"school,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (y AcademicYear) EntityID() int { return y.ID }

type AcademicYearInput struct {
	Name      string `json:"name" validate:"required,notblank,max=50"`
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
	Status    string `json:"status" validate:"omitempty,oneof=pending active completed"`
	IsCurrent bool   `json:"is_current"`
	SchoolID  int    `json:"school_id" validate:"required,gt=0"`
}

type AcademicYearFilter struct {
	Paging
	SchoolID int
	Status   string
}

func (f AcademicYearFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setStr(v, "status", f.Status)
	return v
}

type GradeLevel struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (g GradeLevel) EntityID() int { return g.ID }

type GradeLevelInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Code        string `json:"code" validate:"required,alphanum,max=20"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type GradeLevelFilter struct {
	Paging
	Search string
}

func (f GradeLevelFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	return v
}

type Subject struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (s Subject) EntityID() int { return s.ID }

type SubjectInput struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Code        string `json:"code" validate:"required,alphanum,max=20"`
	Description string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type SubjectFilter struct {
	Paging
	Search   string
	IsActive *bool
}

func (f SubjectFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	setBool(v, "is_active", f.IsActive)
	return v
}

// GradeLevelSubject is the pivot record assigning a Subject (and optionally its Teacher)
// to a GradeLevel.
type GradeLevelSubject struct {
	ID           int  `json:"id"`
	GradeLevelID int  `json:"grade_level_id"`
	SubjectID    int  `json:"subject_id"`
	TeacherID    *int `json:"teacher_id"`
	IsMandatory  bool `json:"is_mandatory"`
	WeeklyHours  int  `json:"weekly_hours"`
	Subject      *Ref `json:"subject,omitempty"`
	Teacher      *Ref `json:"teacher,omitempty"`
}

func (a GradeLevelSubject) EntityID() int   { return a.ID }
func (a GradeLevelSubject) AssignedID() int { return a.SubjectID }

type GradeLevelSubjectInput struct {
	SubjectID   int  `json:"subject_id" validate:"required,gt=0"`
	TeacherID   *int `json:"teacher_id,omitempty" validate:"omitempty,gt=0"`
	IsMandatory bool `json:"is_mandatory"`
	WeeklyHours int  `json:"weekly_hours" validate:"gte=0,lte=40"`
}

type Classroom struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	GradeLevelID int    `json:"grade_level_id"`
	SchoolID     int    `json:"school_id"`
	GradeLevel   *Ref   `json:"grade_level,omitempty"`
	School       *Ref   `json:"school,omitempty"`
}

func (c Classroom) EntityID() int { return c.ID }

type ClassroomInput struct {
	Name         string `json:"name" validate:"required,notblank,max=100"`
	Capacity     int    `json:"capacity" validate:"gte=0,lte=200"`
	GradeLevelID int    `json:"grade_level_id" validate:"required,gt=0"`
	SchoolID     int    `json:"school_id" validate:"required,gt=0"`
}

type ClassroomFilter struct {
	Paging
	SchoolID     int
	GradeLevelID int
}

func (f ClassroomFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setInt(v, "grade_level_id", f.GradeLevelID)
	return v
}

type Exam struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	AcademicYearID int    `json:"academic_year_id"`
	GradeLevelID   *int   `json:"grade_level_id"`
	AcademicYear   *Ref   `json:"academic_year,omitempty"`
}

func (e Exam) EntityID() int { return e.ID }

type ExamInput struct {
	Name           string `json:"name" validate:"required,notblank,max=100"`
	StartDate      string `json:"start_date" validate:"required,date"`
	EndDate        string `json:"end_date" validate:"required,date"`
	AcademicYearID int    `json:"academic_year_id" validate:"required,gt=0"`
	GradeLevelID   *int   `json:"grade_level_id,omitempty" validate:"omitempty,gt=0"`
}

type ExamFilter struct {
	Paging
	AcademicYearID int
	GradeLevelID   int
}

func (f ExamFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "academic_year_id", f.AcademicYearID)
	setInt(v, "grade_level_id", f.GradeLevelID)
	return v
}
