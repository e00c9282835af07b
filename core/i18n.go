package core

import (
	"net/http"

	"github.com/go-playground/locales/ar"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

const DefaultLocale = "ar"

// message keys
const (
	msgNetwork      = "error.network"
	msgUnauthorized = "error.unauthorized"
	msgForbidden    = "error.forbidden"
	msgValidation   = "error.validation"
	msgNotFound     = "error.not_found"
	msgConflict     = "error.conflict"
	msgServer       = "error.server"
	msgCanceled     = "error.canceled"
	msgUnknown      = "error.unknown"

	titleUnauthorized = "page.unauthorized"
	titleForbidden    = "page.forbidden"
	titleNotFound     = "page.not_found"
	titleServer       = "page.server"
	titleUnknown      = "page.unknown"
)

var cannedMessages = map[string]map[string]string{
	"ar": {
		msgNetwork:      "تعذر الاتصال بالخادم، تحقق من اتصالك بالإنترنت",
		msgUnauthorized: "انتهت صلاحية الجلسة، يرجى تسجيل الدخول مرة أخرى",
		msgForbidden:    "ليس لديك صلاحية للقيام بهذا الإجراء",
		msgValidation:   "البيانات المدخلة غير صحيحة",
		msgNotFound:     "العنصر المطلوب غير موجود",
		msgConflict:     "لا يمكن إتمام العملية لوجود بيانات مرتبطة",
		msgServer:       "حدث خطأ في الخادم، يرجى المحاولة لاحقاً",
		msgCanceled:     "تم إلغاء الطلب",
		msgUnknown:      "حدث خطأ غير متوقع",

		titleUnauthorized: "غير مصرح",
		titleForbidden:    "وصول مرفوض",
		titleNotFound:     "الصفحة غير موجودة",
		titleServer:       "خطأ في الخادم",
		titleUnknown:      "حدث خطأ",
	},
	"en": {
		msgNetwork:      "could not reach the server, check your connection",
		msgUnauthorized: "your session has expired, please log in again",
		msgForbidden:    "you are not allowed to perform this action",
		msgValidation:   "the submitted data is invalid",
		msgNotFound:     "the requested item was not found",
		msgConflict:     "the operation conflicts with related data",
		msgServer:       "server error, please try again later",
		msgCanceled:     "the request was canceled",
		msgUnknown:      "an unexpected error occurred",

		titleUnauthorized: "Unauthorized",
		titleForbidden:    "Forbidden",
		titleNotFound:     "Not Found",
		titleServer:       "Server Error",
		titleUnknown:      "Error",
	},
}

var kindMessages = map[ErrorKind]string{
	KindNetwork:      msgNetwork,
	KindUnauthorized: msgUnauthorized,
	KindForbidden:    msgForbidden,
	KindValidation:   msgValidation,
	KindNotFound:     msgNotFound,
	KindConflict:     msgConflict,
	KindServer:       msgServer,
	KindCanceled:     msgCanceled,
	KindUnknown:      msgUnknown,
}

// NewTranslator returns a translator for locale ("ar" or "en") with the canned messages registered.
// Unknown locales fall back to DefaultLocale.
func NewTranslator(locale string) ut.Translator {
	_ar := ar.New()
	uni := ut.New(_ar, _ar, en.New())
	translator, found := uni.GetTranslator(locale)
	if !found {
		translator, _ = uni.GetTranslator(DefaultLocale)
	}

	msgs, ok := cannedMessages[translator.Locale()]
	if !ok {
		msgs = cannedMessages[DefaultLocale]
	}
	for key, text := range msgs {
		_ = translator.Add(key, text, false)
	}
	return translator
}

// Messages resolves user-facing messages for errors.
type Messages struct {
	translator ut.Translator
}

func NewMessages(translator ut.Translator) *Messages {
	return &Messages{translator: translator}
}

var defaultMessages = NewMessages(NewTranslator(DefaultLocale))

// DefaultMessages returns the Messages for DefaultLocale.
func DefaultMessages() *Messages { return defaultMessages }

func (m *Messages) text(key string) string {
	s, err := m.translator.T(key)
	if err != nil {
		return key
	}
	return s
}

// ForKind returns the canned message for kind.
func (m *Messages) ForKind(kind ErrorKind) string {
	key, ok := kindMessages[kind]
	if !ok {
		key = msgUnknown
	}
	return m.text(key)
}

// Describe returns the message a user should see for err: the backend's own message
// (or flattened field errors) when present, the canned message for its kind otherwise.
func (m *Messages) Describe(err error) string {
	if err == nil {
		return ""
	}
	apiErr := AsAPIError(err)
	if msg := apiErr.Flatten(); msg != "" {
		return msg
	}
	return m.ForKind(apiErr.Kind)
}

// RecoveryAction is an action offered to the user on the error page.
type RecoveryAction string

const (
	ActionRetry RecoveryAction = "retry"
	ActionHome  RecoveryAction = "home"
	ActionBack  RecoveryAction = "back"
	ActionLogin RecoveryAction = "login"
)

// ErrorPage is what the top-level route error page shows for an HTTP status.
type ErrorPage struct {
	Status  int              `json:"status"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Actions []RecoveryAction `json:"actions"`
}

// ErrorPage maps an HTTP status code to canned texts and recovery actions.
// A zero status means the request never reached the server.
func (m *Messages) ErrorPage(status int) ErrorPage {
	page := ErrorPage{Status: status}
	switch {
	case status == 0:
		page.Title = m.text(titleUnknown)
		page.Message = m.text(msgNetwork)
		page.Actions = []RecoveryAction{ActionRetry, ActionHome}
	case status == http.StatusUnauthorized:
		page.Title = m.text(titleUnauthorized)
		page.Message = m.text(msgUnauthorized)
		page.Actions = []RecoveryAction{ActionLogin}
	case status == http.StatusForbidden:
		page.Title = m.text(titleForbidden)
		page.Message = m.text(msgForbidden)
		page.Actions = []RecoveryAction{ActionBack, ActionHome}
	case status == http.StatusNotFound:
		page.Title = m.text(titleNotFound)
		page.Message = m.text(msgNotFound)
		page.Actions = []RecoveryAction{ActionBack, ActionHome}
	case status >= http.StatusInternalServerError:
		page.Title = m.text(titleServer)
		page.Message = m.text(msgServer)
		page.Actions = []RecoveryAction{ActionRetry, ActionHome}
	default:
		page.Title = m.text(titleUnknown)
		page.Message = m.text(msgUnknown)
		page.Actions = []RecoveryAction{ActionRetry, ActionBack}
	}
	return page
}
