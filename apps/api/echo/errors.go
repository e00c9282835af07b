package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	dummydb "github.com/trezcool/masomo-admin/storage/database/dummy"
)

const (
	msgInvalidData    = "البيانات المدخلة غير صالحة"
	msgNotFound       = "العنصر المطلوب غير موجود"
	msgUnauthorized   = "يجب تسجيل الدخول أولاً"
	msgLoginFailed    = "اسم المستخدم أو كلمة المرور غير صحيحة"
	msgDeactivated    = "الحساب معطل"
	msgForbidden      = "ليس لديك صلاحية للقيام بهذا الإجراء"
	msgServerError    = "حدث خطأ في الخادم"
	msgGradeLevelUsed = "لا يمكن حذف المرحلة الدراسية لأنها مرتبطة بفصول أو مواد أو تسجيلات"
	msgSubjectUsed    = "لا يمكن حذف المادة لأنها مسندة إلى مرحلة دراسية"
	msgSchoolUsed     = "لا يمكن حذف المدرسة لأنها مرتبطة بسجلات أخرى"
	msgYearUsed       = "لا يمكن حذف العام الدراسي لأنه مرتبط بتسجيلات أو امتحانات"
	msgAlreadyAssign  = "العنصر مسند مسبقاً"
	msgRouteFull      = "خط النقل ممتلئ"
	msgStudentUsed    = "لا يمكن حذف الطالب لأنه مسجل"
	msgEnrollmentUsed = "لا يمكن حذف التسجيل لأنه مرتبط بقيود مالية"
	msgCodeTaken      = "الرمز مستخدم مسبقاً"
	msgUsernameTaken  = "اسم المستخدم مستخدم مسبقاً"
	msgInvalidRef     = "العنصر المحدد غير موجود"
	msgPasswordNeeded = "كلمة المرور مطلوبة"
	msgRoleUsed       = "لا يمكن حذف الدور لأنه مسند إلى مستخدمين"
	msgJobNotFound    = "مهمة الإرسال غير موجودة"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, msgLoginFailed)
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, msgDeactivated)
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, msgForbidden)
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, msgNotFound)
)

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func errConflict(msg string) error {
	return echo.NewHTTPError(http.StatusConflict, msg)
}

func errNotFound(msg string) error {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// fieldError is a 422 response for a single invalid field.
func fieldError(field, msg string) error {
	return &core.APIError{
		Status:  http.StatusUnprocessableEntity,
		Kind:    core.KindValidation,
		Message: msgInvalidData,
		Fields:  map[string][]string{field: {msg}},
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler rendering every error as {message, errors}.
func newAppHTTPErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code int
			body errorResponse
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			body.Message = fmt.Sprint(origErr.Message)
		case *core.APIError:
			code = origErr.Status
			if code == 0 {
				code = http.StatusUnprocessableEntity
			}
			body.Message = origErr.Message
			if body.Message == "" {
				body.Message = msgInvalidData
			}
			body.Errors = origErr.Fields
		default:
			if errors.Is(err, dummydb.ErrNotFound) {
				code = http.StatusNotFound
				body.Message = msgNotFound
				break
			}
			code = http.StatusInternalServerError
			body.Message = msgServerError
			logger.Error(http.StatusText(code), errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()))
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			body.Message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
