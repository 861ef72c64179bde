package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	urlWordTag   = "urlword"
	urlWordText  = "only alphanumeric characters, underscores, dashes and dots are allowed"
	urlWordRegex = regexp.MustCompile(`^[\w\-.]*$`)

	percentTag  = "percent"
	percentText = "must be a multiplier between 0 and 1"

	requiredTag  = "required"
	requiredText = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(urlWordTag, urlWordValidation)
	RegisterCustomTranslation(validate, translator, urlWordTag, urlWordText)

	_ = validate.RegisterValidation(percentTag, percentValidation)
	RegisterCustomTranslation(validate, translator, percentTag, percentText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
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

// Custom Global Validators

// urlWordValidation only allows URL-identifier words.
func urlWordValidation(fl validator.FieldLevel) bool {
	return urlWordRegex.MatchString(fl.Field().String())
}

// percentValidation only allows multipliers in [0, 1].
func percentValidation(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= 0 && v <= 1
}
