package school

import "net/url"

type TransportRoute struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	DriverName  string  `json:"driver_name"`
	DriverPhone string  `json:"driver_phone"`
	VehicleNo   string  `json:"vehicle_number"`
	Capacity    int     `json:"capacity"`
	Fee         float64 `json:"fee"`
	IsActive    bool    `json:"is_active"`
	SchoolID    int     `json:"school_id"`
}

func (r TransportRoute) EntityID() int { return r.ID }

type TransportRouteInput struct {
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	DriverName  string  `json:"driver_name" validate:"omitempty,max=255"`
	DriverPhone string  `json:"driver_phone" validate:"omitempty,phone"`
	VehicleNo   string  `json:"vehicle_number" validate:"omitempty,max=50"`
	Capacity    int     `json:"capacity" validate:"gte=0,lte=200"`
	Fee         float64 `json:"fee" validate:"gte=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
	SchoolID    int     `json:"school_id" validate:"required,gt=0"`
}

type TransportRouteFilter struct {
	Paging
	SchoolID int
	Search   string
	IsActive *bool
}

func (f TransportRouteFilter) Values() url.Values {
	v := f.Paging.values()
	setInt(v, "school_id", f.SchoolID)
	setStr(v, "search", f.Search)
	setBool(v, "is_active", f.IsActive)
	return v
}

// StudentTransport is the pivot record assigning an enrolled student to a TransportRoute.
type StudentTransport struct {
	ID               int    `json:"id"`
	TransportRouteID int    `json:"transport_route_id"`
	EnrollmentID     int    `json:"enrollment_id"`
	PickupPoint      string `json:"pickup_point"`
	Student          *Ref   `json:"student,omitempty"`
}

func (a StudentTransport) EntityID() int   { return a.ID }
func (a StudentTransport) AssignedID() int { return a.EnrollmentID }

type StudentTransportInput struct {
	EnrollmentID int    `json:"enrollment_id" validate:"required,gt=0"`
	PickupPoint  string `json:"pickup_point" validate:"omitempty,max=255"`
}

// AvailableStudent is an enrollment that can still be assigned to a route.
type AvailableStudent struct {
	EnrollmentID int    `json:"enrollment_id"`
	StudentID    int    `json:"student_id"`
	StudentName  string `json:"student_name"`
	GradeLevel   string `json:"grade_level"`
}

func (s AvailableStudent) EntityID() int { return s.EnrollmentID }
