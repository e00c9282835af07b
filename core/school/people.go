package school

import (
	"net/url"
	"time"
)

// Genders
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

type Student struct {
	ID          int       `json:"id"`
	Name        string    `json:"student_name"`
	Gender      string    `json:"gender"`
	DateOfBirth string    `json:"date_of_birth"`
	NationalID  string    `json:"gov_id"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	ParentName  string    `json:"father_name"`
	ParentPhone string    `json:"father_phone"`
	MotherName  string    `json:"mother_full_name"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s Student) EntityID() int { return s.ID }

type StudentInput struct {
	Name        string `json:"student_name" validate:"required,notblank,max=255"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
	DateOfBirth string `json:"date_of_birth" validate:"required,date"`
	NationalID  string `json:"gov_id" validate:"omitempty,max=50"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"omitempty,max=500"`
	ParentName  string `json:"father_name" validate:"required,notblank,max=255"`
	ParentPhone string `json:"father_phone" validate:"required,phone"`
	MotherName  string `json:"mother_full_name" validate:"omitempty,max=255"`
}

type StudentFilter struct {
	Paging
	Search   string
	Gender   string
	Approved *bool
}

func (f StudentFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	setStr(v, "gender", f.Gender)
	setBool(v, "approved", f.Approved)
	return v
}

type Teacher struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	NationalID    string    `json:"national_id"`
	Qualification string    `json:"qualification"`
	HireDate      string    `json:"hire_date"`
	IsActive      bool      `json:"is_active"`
	PhotoURL      string    `json:"photo_url"`
	SchoolID      *int      `json:"school_id"`
	Subjects      []Subject `json:"subjects,omitempty"`
}

func (t Teacher) EntityID() int { return t.ID }

// TeacherPhoto is an optional file uploaded along with a TeacherInput.
type TeacherPhoto struct {
	Filename string
	Content  []byte
}

type TeacherInput struct {
	Name          string        `json:"name" validate:"required,notblank,max=255"`
	Email         string        `json:"email" validate:"omitempty,email"`
	Phone         string        `json:"phone" validate:"omitempty,phone"`
	NationalID    string        `json:"national_id" validate:"omitempty,max=50"`
	Qualification string        `json:"qualification" validate:"omitempty,max=255"`
	HireDate      string        `json:"hire_date" validate:"omitempty,date"`
	IsActive      *bool         `json:"is_active,omitempty"`
	SchoolID      *int          `json:"school_id,omitempty" validate:"omitempty,gt=0"`
	Photo         *TeacherPhoto `json:"-"`
}

type TeacherFilter struct {
	Paging
	Search   string
	SchoolID int
	IsActive *bool
}

func (f TeacherFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	setInt(v, "school_id", f.SchoolID)
	setBool(v, "is_active", f.IsActive)
	return v
}

// TeacherSubjects is the payload replacing the full set of subjects taught by a Teacher.
type TeacherSubjects struct {
	SubjectIDs []int `json:"subject_ids" validate:"dive,gt=0"`
}

// RoleAdmin grants access to the users and roles management.
const RoleAdmin = "admin"

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	SchoolID  *int      `json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) EntityID() int { return u.ID }

type UserInput struct {
	Name            string   `json:"name" validate:"required,notblank,max=255"`
	Username        string   `json:"username" validate:"required,min=3,max=50"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password,omitempty" validate:"omitempty,min=8"`
	PasswordConfirm string   `json:"password_confirmation,omitempty" validate:"required_with=Password,eqfield=Password"`
	IsActive        *bool    `json:"is_active,omitempty"`
	Roles           []string `json:"roles" validate:"omitempty,dive,notblank"`
	SchoolID        *int     `json:"school_id,omitempty" validate:"omitempty,gt=0"`
}

type UserFilter struct {
	Paging
	Search   string
	Role     string
	IsActive *bool
}

func (f UserFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	setStr(v, "role", f.Role)
	setBool(v, "is_active", f.IsActive)
	return v
}

type Role struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (r Role) EntityID() int { return r.ID }

type RoleInput struct {
	Name        string   `json:"name" validate:"required,notblank,max=100"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,notblank"`
}

type RoleFilter struct {
	Paging
	Search string
}

func (f RoleFilter) Values() url.Values {
	v := f.Paging.values()
	setStr(v, "search", f.Search)
	return v
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by a successful login.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
