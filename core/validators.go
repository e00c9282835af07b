package core

import (
	"net/http"
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ar_translations "github.com/go-playground/validator/v10/translations/ar"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = map[string]string{
		"ar": "{0} لا يمكن أن يكون فارغاً",
		"en": "{0} cannot be blank",
	}

	dateTag   = "date"
	dateText  = map[string]string{"ar": "{0} يجب أن يكون تاريخاً بصيغة YYYY-MM-DD", "en": "{0} must be a date formatted as YYYY-MM-DD"}
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	phoneTag   = "phone"
	phoneText  = map[string]string{"ar": "{0} يجب أن يكون رقم هاتف صحيح", "en": "{0} must be a valid phone number"}
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

	requiredTag  = "required"
	requiredText = map[string]string{"ar": "هذا الحقل مطلوب", "en": "this field is required"}
)

// NewValidator returns a validator initialized with InitValidators.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	InitValidators(validate, translator)
	return validate
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	if translator.Locale() == "ar" {
		_ = ar_translations.RegisterDefaultTranslations(validate, translator)
	} else {
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	}

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, localized(notBlankText, translator))

	_ = validate.RegisterValidation(dateTag, dateValidation)
	RegisterCustomTranslation(validate, translator, dateTag, localized(dateText, translator))

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, localized(phoneText, translator))

	RegisterCustomTranslation(validate, translator, requiredTag, localized(requiredText, translator), true)
}

func localized(texts map[string]string, translator ut.Translator) string {
	if s, ok := texts[translator.Locale()]; ok {
		return s
	}
	return texts["en"]
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidateStruct validates s and converts validation failures into a KindValidation *APIError
// carrying the translated field messages.
func ValidateStruct(validate *validator.Validate, translator ut.Translator, s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errors.Wrap(err, "validating struct")
	}

	fields := make(map[string][]string, len(vErrs))
	for _, fe := range vErrs {
		fields[fieldPath(fe)] = append(fields[fieldPath(fe)], fe.Translate(translator))
	}
	return &APIError{
		Status: http.StatusUnprocessableEntity,
		Kind:   KindValidation,
		Fields: fields,
		Err:    err,
	}
}

// fieldPath drops the top-level struct name from the namespace: "GradeLevelInput.name" -> "name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Custom Global Validators

// notBlankValidation rejects strings made only of whitespace.
func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func dateValidation(fl validator.FieldLevel) bool {
	return dateRegex.MatchString(fl.Field().String())
}

func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
}
