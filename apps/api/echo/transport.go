package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/school"
)

func (s *server) registerTransportRoutes(g *echo.Group) {
	routes := &resource[school.TransportRoute, school.TransportRouteInput]{
		table:        s.db.TransportRoutes,
		searchFields: []string{"name", "driver_name", "vehicle_number"},
		init:         func(rec *school.TransportRoute) { rec.IsActive = true },
		prepare: func(_ echo.Context, _ school.TransportRouteInput, rec *school.TransportRoute) error {
			if err := s.checkSchool(rec.SchoolID); err != nil {
				return err
			}
			if rec.Capacity > 0 && rec.ID != 0 && len(s.routeStudents(rec.ID)) > rec.Capacity {
				return fieldError("capacity", msgRouteFull)
			}
			return nil
		},
		deleted: func(_ echo.Context, rec school.TransportRoute) {
			for _, st := range s.routeStudents(rec.ID) {
				_ = s.db.StudentTransports.Delete(st.ID)
			}
		},
	}
	routes.register(g, "/transport-routes")

	g.GET("/transport-routes/:id/students", s.listRouteStudents)
	g.GET("/transport-routes/:id/available-students", s.availableStudents)
	g.POST("/transport-routes/:id/students", s.assignStudent)
	g.PUT("/transport-routes/:id/students/:assignmentId", s.updateStudentAssignment)
	g.DELETE("/transport-routes/:id/students/:assignmentId", s.unassignStudent)
}

func (s *server) routeStudents(routeID int) []school.StudentTransport {
	return s.db.StudentTransports.Filter(func(st school.StudentTransport) bool { return st.TransportRouteID == routeID })
}

func (s *server) listRouteStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	if _, err = s.db.TransportRoutes.Get(id); err != nil {
		return err
	}
	return ok(ctx, s.routeStudents(id))
}

// availableStudents lists the active enrollments of the route's school not riding any route yet.
func (s *server) availableStudents(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	route, err := s.db.TransportRoutes.Get(id)
	if err != nil {
		return err
	}
	enrollments := s.db.Enrollments.Filter(func(e school.Enrollment) bool {
		return e.SchoolID == route.SchoolID && e.Status == school.EnrollmentActive &&
			!s.db.StudentTransports.Any(func(st school.StudentTransport) bool { return st.EnrollmentID == e.ID })
	})
	available := make([]school.AvailableStudent, 0, len(enrollments))
	for _, e := range enrollments {
		av := school.AvailableStudent{EnrollmentID: e.ID, StudentID: e.StudentID}
		if e.Student != nil {
			av.StudentName = e.Student.Name
		}
		if e.GradeLevel != nil {
			av.GradeLevel = e.GradeLevel.Name
		}
		available = append(available, av)
	}
	return ok(ctx, available)
}

func (s *server) assignStudent(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	route, err := s.db.TransportRoutes.Get(id)
	if err != nil {
		return err
	}
	var in school.StudentTransportInput
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if s.db.StudentTransports.Any(func(st school.StudentTransport) bool { return st.EnrollmentID == in.EnrollmentID }) {
		return errConflict(msgAlreadyAssign)
	}
	if route.Capacity > 0 && len(s.routeStudents(id)) >= route.Capacity {
		return errConflict(msgRouteFull)
	}
	rec := school.StudentTransport{TransportRouteID: id}
	if err = s.fillStudentAssignment(in, &rec); err != nil {
		return err
	}
	return created(ctx, s.db.StudentTransports.Insert(rec))
}

func (s *server) updateStudentAssignment(ctx echo.Context) error {
	rec, err := s.studentAssignment(ctx)
	if err != nil {
		return err
	}
	var in school.StudentTransportInput
	if err = bindAndValidate(ctx, &in); err != nil {
		return err
	}
	if in.EnrollmentID != rec.EnrollmentID && s.db.StudentTransports.Any(func(st school.StudentTransport) bool {
		return st.EnrollmentID == in.EnrollmentID
	}) {
		return errConflict(msgAlreadyAssign)
	}
	if err = s.fillStudentAssignment(in, &rec); err != nil {
		return err
	}
	if err = s.db.StudentTransports.Update(rec); err != nil {
		return err
	}
	return ok(ctx, rec)
}

func (s *server) unassignStudent(ctx echo.Context) error {
	rec, err := s.studentAssignment(ctx)
	if err != nil {
		return err
	}
	if err = s.db.StudentTransports.Delete(rec.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) studentAssignment(ctx echo.Context) (school.StudentTransport, error) {
	id, err := pathID(ctx, "id")
	if err != nil {
		return school.StudentTransport{}, err
	}
	assignmentID, err := pathID(ctx, "assignmentId")
	if err != nil {
		return school.StudentTransport{}, err
	}
	rec, err := s.db.StudentTransports.Get(assignmentID)
	if err != nil || rec.TransportRouteID != id {
		return school.StudentTransport{}, errHttpNotFound
	}
	return rec, nil
}

func (s *server) fillStudentAssignment(in school.StudentTransportInput, rec *school.StudentTransport) error {
	e, err := s.db.Enrollments.Get(in.EnrollmentID)
	if err != nil {
		return fieldError("enrollment_id", msgInvalidRef)
	}
	rec.EnrollmentID = e.ID
	rec.PickupPoint = in.PickupPoint
	rec.Student = e.Student
	return nil
}
