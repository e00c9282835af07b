package school

import (
	"net/url"
	"time"
)

// Enrollment statuses
const (
	EnrollmentActive      = "active"
	EnrollmentTransferred = "transferred"
	EnrollmentGraduated   = "graduated"
	EnrollmentWithdrawn   = "withdrawn"
)

// Enrollment types
const (
	EnrollmentNew       = "new"
	EnrollmentReturning = "returning"
	EnrollmentTransfer  = "transfer"
)

// Enrollment is a student's registration for one academic year, grade level, classroom and school.
type Enrollment struct {
	ID             int       `json:"id"`
	StudentID      int       `json:"student_id"`
	SchoolID       int       `json:"school_id"`
	AcademicYearID int       `json:"academic_year_id"`
	GradeLevelID   int       `json:"grade_level_id"`
	ClassroomID    *int      `json:"classroom_id"`
	Status         string    `json:"status"`
	EnrollmentType string    `json:"enrollment_type"`
	Fees           float64   `json:"fees"`
	Discount       float64   `json:"discount"`
	Student        *Ref      `json:"student,omitempty"`
	School         *Ref      `json:"school,omitempty"`
	AcademicYear   *Ref      `json:"academic_year,omitempty"`
	GradeLevel     *Ref      `json:"grade_level,omitempty"`
	Classroom      *Ref      `json:"classroom,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (e Enrollment) EntityID() int { return e.ID }

type EnrollmentInput struct {
	StudentID      int     `json:"student_id" validate:"required,gt=0"`
	SchoolID       int     `json:"school_id" validate:"required,gt=0"`
	AcademicYearID int     `json:"academic_year_id" validate:"required,gt=0"`
	GradeLevelID   int     `json:"grade_level_id" validate:"required,gt=0"`
	ClassroomID    *int    `json:"classroom_id,omitempty" validate:"omitempty,gt=0"`
	Status         string  `json:"status" validate:"required,oneof=active transferred graduated withdrawn"`
	EnrollmentType string  `json:"enrollment_type" validate:"required,oneof=new returning transfer"`
	Fees           float64 `json:"fees" validate:"gte=0"`
	Discount       float64 `json:"discount" validate:"gte=0,lte=100"`
}

type EnrollmentFilter struct {
	Paging
	SchoolID       int
	AcademicYearID int
	GradeLevelID   int
	ClassroomID    int
	Status         string
	Search         string
}

func (f EnrollmentFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setInt(v, "academic_year_id", f.AcademicYearID)
	setInt(v, "grade_level_id", f.GradeLevelID)
	setInt(v, "classroom_id", f.ClassroomID)
	setStr(v, "status", f.Status)
	setStr(v, "search", f.Search)
	return v
}

// Enrollment log actions
const (
	LogCreated       = "created"
	LogUpdated       = "updated"
	LogStatusChanged = "status_changed"
	LogDeleted       = "deleted"
)

// EnrollmentLog is one audit entry recorded by the backend whenever an enrollment changes.
type EnrollmentLog struct {
	ID           int                    `json:"id"`
	EnrollmentID int                    `json:"enrollment_id"`
	ActionType   string                 `json:"action_type"`
	Description  string                 `json:"description"`
	OldValues    map[string]interface{} `json:"old_values,omitempty"`
	NewValues    map[string]interface{} `json:"new_values,omitempty"`
	ChangedBy    *Ref                   `json:"changed_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func (l EnrollmentLog) EntityID() int { return l.ID }

type EnrollmentLogFilter struct {
	Paging
	EnrollmentID int
	ActionType   string
	DateFrom     string
	DateTo       string
}

func (f EnrollmentLogFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "enrollment_id", f.EnrollmentID)
	setStr(v, "action_type", f.ActionType)
	setStr(v, "date_from", f.DateFrom)
	setStr(v, "date_to", f.DateTo)
	return v
}

type EnrollmentLogStatistics struct {
	TotalLogs   int            `json:"total_logs"`
	TodayLogs   int            `json:"today_logs"`
	ActionTypes map[string]int `json:"action_types"`
}
