package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-admin/core/school"
)

type (
	StudentAPI struct {
		*Resource[school.Student, school.StudentInput, school.StudentFilter]
	}

	// TeacherAPI sends teacher payloads as multipart forms so that a photo can be attached.
	TeacherAPI struct {
		*Resource[school.Teacher, school.TeacherInput, school.TeacherFilter]
	}

	GradeLevelAPI struct {
		*Resource[school.GradeLevel, school.GradeLevelInput, school.GradeLevelFilter]
		Subjects *Assignments[school.GradeLevelSubject, school.Subject, school.GradeLevelSubjectInput]
	}

	TransportRouteAPI struct {
		*Resource[school.TransportRoute, school.TransportRouteInput, school.TransportRouteFilter]
		Students *Assignments[school.StudentTransport, school.AvailableStudent, school.StudentTransportInput]
	}

	EnrollmentAPI struct {
		*Resource[school.Enrollment, school.EnrollmentInput, school.EnrollmentFilter]
	}

	EnrollmentLogAPI struct {
		c *Client
	}

	// LedgerAPI is append-only: entries are never updated, and deleting one requires a reason.
	LedgerAPI struct {
		c *Client
	}

	WhatsAppAPI struct {
		c *Client
	}
)

func newStudentAPI(c *Client) *StudentAPI {
	return &StudentAPI{NewResource[school.Student, school.StudentInput, school.StudentFilter](c, "/students")}
}

// Search looks students up by name.
func (api *StudentAPI) Search(ctx context.Context, name string) ([]school.Student, error) {
	var resp envelope[[]school.Student]
	err := api.c.send(ctx, rest.Get, api.path+"/search", url.Values{"name": {name}}, nil, &resp)
	return resp.Data, err
}

func newTeacherAPI(c *Client) *TeacherAPI {
	return &TeacherAPI{NewResource[school.Teacher, school.TeacherInput, school.TeacherFilter](c, "/teachers")}
}

func (api *TeacherAPI) Create(ctx context.Context, in school.TeacherInput) (school.Teacher, error) {
	var resp envelope[school.Teacher]
	if err := api.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := api.c.sendMultipart(ctx, api.path, "", in, in.Photo, "photo", &resp)
	return resp.Data, err
}

func (api *TeacherAPI) Update(ctx context.Context, id int, in school.TeacherInput) (school.Teacher, error) {
	var resp envelope[school.Teacher]
	if err := api.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := api.c.sendMultipart(ctx, api.item(id), http.MethodPut, in, in.Photo, "photo", &resp)
	return resp.Data, err
}

func (api *TeacherAPI) Subjects(ctx context.Context, teacherID int) ([]school.Subject, error) {
	var resp envelope[[]school.Subject]
	err := api.c.send(ctx, rest.Get, api.item(teacherID)+"/subjects", nil, nil, &resp)
	return resp.Data, err
}

// SyncSubjects replaces the whole set of subjects taught by a teacher.
func (api *TeacherAPI) SyncSubjects(ctx context.Context, teacherID int, subjectIDs []int) ([]school.Subject, error) {
	var resp envelope[[]school.Subject]
	payload := school.TeacherSubjects{SubjectIDs: subjectIDs}
	if payload.SubjectIDs == nil {
		payload.SubjectIDs = []int{}
	}
	if err := api.c.Validate(payload); err != nil {
		return resp.Data, err
	}
	err := api.c.send(ctx, rest.Put, api.item(teacherID)+"/subjects", nil, payload, &resp)
	return resp.Data, err
}

func newGradeLevelAPI(c *Client) *GradeLevelAPI {
	return &GradeLevelAPI{
		Resource: NewResource[school.GradeLevel, school.GradeLevelInput, school.GradeLevelFilter](c, "/grade-levels"),
		Subjects: NewAssignments[school.GradeLevelSubject, school.Subject, school.GradeLevelSubjectInput](
			c, "/grade-levels", "subjects", "available-subjects",
		),
	}
}

func newTransportRouteAPI(c *Client) *TransportRouteAPI {
	return &TransportRouteAPI{
		Resource: NewResource[school.TransportRoute, school.TransportRouteInput, school.TransportRouteFilter](c, "/transport-routes"),
		Students: NewAssignments[school.StudentTransport, school.AvailableStudent, school.StudentTransportInput](
			c, "/transport-routes", "students", "available-students",
		),
	}
}

func newEnrollmentAPI(c *Client) *EnrollmentAPI {
	return &EnrollmentAPI{NewResource[school.Enrollment, school.EnrollmentInput, school.EnrollmentFilter](c, "/enrollments")}
}

// Logs returns the audit log of one enrollment.
func (api *EnrollmentAPI) Logs(ctx context.Context, enrollmentID int) ([]school.EnrollmentLog, error) {
	var resp envelope[[]school.EnrollmentLog]
	err := api.c.send(ctx, rest.Get, api.item(enrollmentID)+"/logs", nil, nil, &resp)
	return resp.Data, err
}

func (api *EnrollmentLogAPI) List(ctx context.Context, filter school.EnrollmentLogFilter) (*Page[school.EnrollmentLog], error) {
	var page Page[school.EnrollmentLog]
	if err := api.c.send(ctx, rest.Get, "/enrollment-logs", filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (api *EnrollmentLogAPI) Statistics(ctx context.Context, filter school.EnrollmentLogFilter) (school.EnrollmentLogStatistics, error) {
	var resp envelope[school.EnrollmentLogStatistics]
	err := api.c.send(ctx, rest.Get, "/enrollment-logs/statistics", filter.Values(), nil, &resp)
	return resp.Data, err
}

func (api *LedgerAPI) List(ctx context.Context, filter school.LedgerFilter) (*Page[school.LedgerEntry], error) {
	var page Page[school.LedgerEntry]
	if err := api.c.send(ctx, rest.Get, "/student-ledgers", filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (api *LedgerAPI) Create(ctx context.Context, in school.LedgerEntryInput) (school.LedgerEntry, error) {
	var resp envelope[school.LedgerEntry]
	if err := api.c.Validate(in); err != nil {
		return resp.Data, err
	}
	err := api.c.send(ctx, rest.Post, "/student-ledgers", nil, in, &resp)
	return resp.Data, err
}

// Delete removes a ledger entry; the backend records reason in its deletion audit trail.
func (api *LedgerAPI) Delete(ctx context.Context, id int, reason string) error {
	payload := school.LedgerDeletionRequest{Reason: reason}
	if err := api.c.Validate(payload); err != nil {
		return err
	}
	return api.c.send(ctx, rest.Delete, "/student-ledgers/"+strconv.Itoa(id), nil, payload, nil)
}

func (api *LedgerAPI) ByPaymentMethod(ctx context.Context, filter school.LedgerFilter) ([]school.PaymentMethodSummary, error) {
	var resp envelope[[]school.PaymentMethodSummary]
	err := api.c.send(ctx, rest.Get, "/student-ledgers/by-payment-method", filter.Values(), nil, &resp)
	return resp.Data, err
}

func (api *LedgerAPI) Deletions(ctx context.Context, filter school.LedgerFilter) (*Page[school.LedgerDeletion], error) {
	var page Page[school.LedgerDeletion]
	if err := api.c.send(ctx, rest.Get, "/student-ledger-deletions", filter.Values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (api *WhatsAppAPI) BulkSendText(ctx context.Context, req school.BulkSendRequest) (school.BulkSendJob, error) {
	var resp envelope[school.BulkSendJob]
	if err := api.c.Validate(req); err != nil {
		return resp.Data, err
	}
	err := api.c.send(ctx, rest.Post, "/whatsapp/bulk-send-text", nil, req, &resp)
	return resp.Data, err
}

func (api *WhatsAppAPI) BulkSendStatus(ctx context.Context, jobID string) (school.BulkSendStatus, error) {
	var resp envelope[school.BulkSendStatus]
	err := api.c.send(ctx, rest.Get, "/whatsapp/bulk-send-status/"+url.PathEscape(jobID), nil, nil, &resp)
	return resp.Data, err
}
