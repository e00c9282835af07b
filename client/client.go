// Package apiclient talks to the school administration REST backend.
// Every call issues exactly one HTTP request; there is no retry, caching or batching.
// Failures are always returned as *core.APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
)

const (
	HeaderRequestID = "X-Request-ID"
	methodOverride  = "_method"
)

type (
	Client struct {
		baseURL    string
		locale     string
		rest       *rest.Client
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger

		mu    sync.RWMutex
		token string

		Schools         *Resource[school.School, school.SchoolInput, school.SchoolFilter]
		AcademicYears   *Resource[school.AcademicYear, school.AcademicYearInput, school.AcademicYearFilter]
		GradeLevels     *GradeLevelAPI
		Subjects        *Resource[school.Subject, school.SubjectInput, school.SubjectFilter]
		Classrooms      *Resource[school.Classroom, school.ClassroomInput, school.ClassroomFilter]
		Exams           *Resource[school.Exam, school.ExamInput, school.ExamFilter]
		Students        *StudentAPI
		Teachers        *TeacherAPI
		Enrollments     *EnrollmentAPI
		EnrollmentLogs  *EnrollmentLogAPI
		Expenses        *Resource[school.Expense, school.ExpenseInput, school.ExpenseFilter]
		Revenues        *Resource[school.Revenue, school.RevenueInput, school.RevenueFilter]
		Ledgers         *LedgerAPI
		TransportRoutes *TransportRouteAPI
		Users           *Resource[school.User, school.UserInput, school.UserFilter]
		Roles           *Resource[school.Role, school.RoleInput, school.RoleFilter]
		WhatsApp        *WhatsAppAPI
	}

	Option func(*Client)

	errorBody struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}

	envelope[T any] struct {
		Data T `json:"data"`
	}
)

// WithHTTPClient sets the *http.Client used to send requests. Its transport gets wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.rest.HTTPClient = hc
		}
	}
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTranslator sets the translator used for client-side validation messages.
func WithTranslator(translator ut.Translator) Option {
	return func(c *Client) {
		if translator != nil {
			c.translator = translator
			c.validate = core.NewValidator(translator)
		}
	}
}

func New(conf core.APIConfig, opts ...Option) *Client {
	locale := conf.Locale
	if locale == "" {
		locale = core.DefaultLocale
	}
	translator := core.NewTranslator(locale)

	c := &Client{
		baseURL:    conf.BaseURL,
		locale:     locale,
		rest:       &rest.Client{HTTPClient: &http.Client{Timeout: conf.Timeout}},
		validate:   core.NewValidator(translator),
		translator: translator,
		logger:     logsvc.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// trace every round trip, without mutating a caller supplied client
	hc := *c.rest.HTTPClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)
	c.rest = &rest.Client{HTTPClient: &hc}

	c.Schools = NewResource[school.School, school.SchoolInput, school.SchoolFilter](c, "/schools")
	c.AcademicYears = NewResource[school.AcademicYear, school.AcademicYearInput, school.AcademicYearFilter](c, "/academic-years")
	c.GradeLevels = newGradeLevelAPI(c)
	c.Subjects = NewResource[school.Subject, school.SubjectInput, school.SubjectFilter](c, "/subjects")
	c.Classrooms = NewResource[school.Classroom, school.ClassroomInput, school.ClassroomFilter](c, "/classrooms")
	c.Exams = NewResource[school.Exam, school.ExamInput, school.ExamFilter](c, "/exams")
	c.Students = newStudentAPI(c)
	c.Teachers = newTeacherAPI(c)
	c.Enrollments = newEnrollmentAPI(c)
	c.EnrollmentLogs = &EnrollmentLogAPI{c: c}
	c.Expenses = NewResource[school.Expense, school.ExpenseInput, school.ExpenseFilter](c, "/expenses")
	c.Revenues = NewResource[school.Revenue, school.RevenueInput, school.RevenueFilter](c, "/revenues")
	c.Ledgers = &LedgerAPI{c: c}
	c.TransportRoutes = newTransportRouteAPI(c)
	c.Users = NewResource[school.User, school.UserInput, school.UserFilter](c, "/users")
	c.Roles = NewResource[school.Role, school.RoleInput, school.RoleFilter](c, "/roles")
	c.WhatsApp = &WhatsAppAPI{c: c}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Translator returns the translator used for the client's validation messages.
func (c *Client) Translator() ut.Translator { return c.translator }

// Login exchanges credentials for a bearer token, which is then attached to every subsequent request.
func (c *Client) Login(ctx context.Context, username, password string) (school.Session, error) {
	creds := school.Credentials{Username: username, Password: password}
	if err := c.Validate(creds); err != nil {
		return school.Session{}, err
	}
	var resp envelope[school.Session]
	if err := c.send(ctx, rest.Post, "/auth/login", nil, creds, &resp); err != nil {
		return school.Session{}, err
	}
	c.SetToken(resp.Data.Token)
	return resp.Data, nil
}

func (c *Client) Logout() { c.SetToken("") }

// Validate checks a payload against its validate tags before it is sent.
func (c *Client) Validate(payload interface{}) error {
	return core.ValidateStruct(c.validate, c.translator, payload)
}

func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Accept":          "application/json",
		"Accept-Language": c.locale,
		HeaderRequestID:   uuid.NewString(),
	}
	if token := c.Token(); token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send issues a JSON request and decodes the JSON response into out (when not nil).
func (c *Client) send(ctx context.Context, method rest.Method, path string, query url.Values, body, out interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.endpoint(path, query),
		Headers: c.headers(),
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return core.AsAPIError(errors.Wrap(err, "encoding request body"))
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}
	return c.do(ctx, req, out)
}

// sendMultipart issues a multipart/form-data POST built from the JSON form of fields plus an optional file.
// When override is set, the request carries `_method=<override>` for backends that only parse multipart on POST.
func (c *Client) sendMultipart(ctx context.Context, path, override string, fields interface{}, file *school.TeacherPhoto, fileField string, out interface{}) error {
	values, err := formValues(fields)
	if err != nil {
		return core.AsAPIError(err)
	}
	if override != "" {
		values[methodOverride] = override
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		if err = w.WriteField(k, v); err != nil {
			return core.AsAPIError(errors.Wrap(err, "writing form field"))
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(fileField, file.Filename)
		if err != nil {
			return core.AsAPIError(errors.Wrap(err, "creating form file"))
		}
		if _, err = fw.Write(file.Content); err != nil {
			return core.AsAPIError(errors.Wrap(err, "writing form file"))
		}
	}
	if err = w.Close(); err != nil {
		return core.AsAPIError(errors.Wrap(err, "closing multipart writer"))
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: c.endpoint(path, nil),
		Headers: c.headers(),
		Body:    buf.Bytes(),
	}
	req.Headers["Content-Type"] = w.FormDataContentType()
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req rest.Request, out interface{}) error {
	reqID := req.Headers[HeaderRequestID]
	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &core.APIError{Kind: core.KindCanceled, Err: errors.Wrap(ctxErr, string(req.Method)+" "+req.BaseURL)}
		}
		c.logger.Warn("request failed", errors.Wrap(err, string(req.Method)+" "+req.BaseURL), map[string]interface{}{"request_id": reqID})
		return &core.APIError{Kind: core.KindNetwork, Err: errors.Wrap(err, "sending request")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, []byte(resp.Body))
		if apiErr.Kind == core.KindServer {
			c.logger.Error("server error", apiErr, map[string]interface{}{"request_id": reqID, "url": req.BaseURL})
		} else {
			c.logger.Debug("request rejected", apiErr, map[string]interface{}{"request_id": reqID, "url": req.BaseURL})
		}
		return apiErr
	}

	if out == nil || resp.Body == "" {
		return nil
	}
	if err = json.Unmarshal([]byte(resp.Body), out); err != nil {
		return &core.APIError{Status: resp.StatusCode, Kind: core.KindUnknown, Err: errors.Wrap(err, "decoding response body")}
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError.
// The body is expected as {message, errors: {field: [msg...]}}; anything else keeps only the status.
func decodeError(status int, body []byte) *core.APIError {
	apiErr := core.NewAPIError(status, "", nil)
	apiErr.Err = fmt.Errorf("unexpected status %d", status)

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}
	apiErr.Message = eb.Message
	if apiErr.Message == "" {
		apiErr.Message = eb.Error
	}
	if len(eb.Errors) == 0 {
		return apiErr
	}

	var fields map[string][]string
	if err := json.Unmarshal(eb.Errors, &fields); err == nil {
		apiErr.Fields = fields
		return apiErr
	}
	var single map[string]string
	if err := json.Unmarshal(eb.Errors, &single); err == nil {
		apiErr.Fields = make(map[string][]string, len(single))
		for f, msg := range single {
			apiErr.Fields[f] = []string{msg}
		}
	}
	return apiErr
}

// formValues flattens the JSON form of v into multipart field values.
func formValues(v interface{}) (map[string]string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encoding form")
	}
	var raw map[string]interface{}
	if err = json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding form")
	}

	values := make(map[string]string, len(raw))
	for k, val := range raw {
		switch val := val.(type) {
		case nil:
		case string:
			values[k] = val
		case bool:
			if val {
				values[k] = "1"
			} else {
				values[k] = "0"
			}
		case float64:
			values[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			b, _ := json.Marshal(val)
			values[k] = string(b)
		}
	}
	return values, nil
}
