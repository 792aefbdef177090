package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("enTranslations.RegisterDefaultTranslations() > %w", err)
	}

	// Report fields by their YAML keys
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := register(validate, trans, "file", isFileReadable, "{0} must be an existing and readable file"); err != nil {
		return nil, nil, err
	}
	for tag, allowed := range drivers {
		msg := "{0} must be one of the supported drivers: " + strings.Join(allowed, ", ")
		if err := register(validate, trans, tag, isOneOf(allowed), msg); err != nil {
			return nil, nil, err
		}
	}

	return validate, trans, nil
}

// register adds a rule with an English message whose only parameter is the field path.
func register(validate *validator.Validate, trans ut.Translator, tag string, fn validator.Func, msg string) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("validate.RegisterValidation(%s) > %w", tag, err)
	}
	if err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, msg, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fieldPath(fe))
		return t
	}); err != nil {
		return fmt.Errorf("validate.RegisterTranslation(%s) > %w", tag, err)
	}
	return nil
}

func fieldPath(fe validator.FieldError) string {
	return strings.TrimPrefix(fe.Namespace(), "Config.")
}

func isOneOf(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	}
}

// isFileReadable opens the file, so permission bits granted to other users do not count.
func isFileReadable(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	return err == nil && !info.IsDir()
}
