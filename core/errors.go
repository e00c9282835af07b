package core

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind classifies a failed backend interaction.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "network"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindServer       ErrorKind = "server"
	KindCanceled     ErrorKind = "canceled"
	KindUnknown      ErrorKind = "unknown"
)

// KindFromStatus maps an HTTP status code to an ErrorKind.
func KindFromStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized:
		return KindUnauthorized
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusConflict:
		return KindConflict
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return KindValidation
	case code >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// APIError is the single error shape returned by every client call and store mutator.
// Fields holds the backend's field -> messages map for validation failures.
type APIError struct {
	Status  int
	Kind    ErrorKind
	Message string
	Fields  map[string][]string
	Err     error
}

func NewAPIError(status int, message string, fields map[string][]string) *APIError {
	return &APIError{
		Status:  status,
		Kind:    KindFromStatus(status),
		Message: message,
		Fields:  fields,
	}
}

func (e *APIError) Error() string {
	if msg := e.Flatten(); msg != "" {
		return msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// Flatten joins the field messages (sorted by field) into one display string.
// Falls back to Message when there are no field errors.
func (e *APIError) Flatten() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, e.Fields[f]...)
	}
	return strings.Join(msgs, "\n")
}

// FieldMessage returns the first message reported for field.
func (e *APIError) FieldMessage(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// AsAPIError converts any error into an *APIError, keeping the original as its cause.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch cause := errors.Cause(err).(type) {
	case *ValidationError:
		fields := make(map[string][]string, len(cause.Fields))
		for _, f := range cause.Fields {
			fields[f.Field] = append(fields[f.Field], f.Error)
		}
		return &APIError{Status: http.StatusUnprocessableEntity, Kind: KindValidation, Message: cause.Error(), Fields: fields, Err: err}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindCanceled, Err: err}
	}
	return &APIError{Kind: KindUnknown, Err: err}
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
