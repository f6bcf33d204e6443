package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if str, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(str) != ""
		}
		return false
	})
	_ = validate.RegisterTranslation(notBlankTag, translator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string { return "this field cannot be blank" })
}

// fieldErrors maps JSON field names to readable messages.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// decodeAndValidate strictly decodes the JSON body into v and validates it.
// It writes a 400 response and returns false when either step fails.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(r, v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid input",
				"fields": fieldErrors(verrs),
			})
			return false
		}
		internalError(w, err)
		return false
	}
	return true
}

// --- Request bodies ---

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type profileRequest struct {
	Name          string `json:"name" validate:"notblank,max=100"`
	Role          string `json:"role" validate:"required,oneof=Driver Member"`
	StudentNumber string `json:"student_number" validate:"notblank,max=20"`
	CarSpaces     int    `json:"car_spaces" validate:"min=0,max=12"`
}

type signupRequest struct {
	Answer bool `json:"answer"`
}

type decisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve deny"`
}

type activityRequest struct {
	Kind                 string `json:"kind" validate:"required,oneof=event session"`
	Name                 string `json:"name" validate:"notblank,max=200"`
	Date                 string `json:"date" validate:"required_if=Kind event,omitempty,datetime=2006-01-02"`
	Weekday              *int   `json:"weekday" validate:"required_if=Kind session,omitempty,min=0,max=6"`
	Location             string `json:"location" validate:"max=200"`
	Description          string `json:"description" validate:"max=5000"`
	ImageURL             string `json:"image_url" validate:"omitempty,uri"`
	RequiresApproval     bool   `json:"requires_approval"`
	EarlyWeekSignupsOnly bool   `json:"early_week_signups_only"`
}
