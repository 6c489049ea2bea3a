package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/brasil-legalize/case-engine/pkg/models"
)

var (
	v *validator.Validate

	reCountry = regexp.MustCompile(`^[A-Z]{2}$`)              // ISO-3166 alpha-2, e.g. BR
	reDocType = regexp.MustCompile(`^[a-z][a-z0-9_]{1,47}$`) // passport, birth_certificate
)

func init() {
	v = validator.New()

	// Use JSON tag as the field name in error output
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Custom: one of the sixteen lifecycle statuses
	_ = v.RegisterValidation("casestatus", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseStatus(fl.Field().String())
		return ok
	})

	// Custom: country code
	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		val := strings.TrimSpace(strings.ToUpper(fl.Field().String()))
		if val == "" { // let omitempty handle empty
			return true
		}
		return reCountry.MatchString(val)
	})

	// Custom: document type slug
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return reDocType.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}

// Validate returns map[field][]messages (Laravel-like)
func Validate(s any) (map[string][]string, error) {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		out := make(map[string][]string)
		for _, e := range ve {
			field := e.Field() // already mapped from json tag

			switch e.Tag() {
			case "required":
				out[field] = append(out[field], "This field is required")

			case "email":
				out[field] = append(out[field], "Invalid email format")

			case "min":
				// Show a string-specific message when the field is a string
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s characters", e.Param()))
				} else if e.Kind() == reflect.Slice {
					out[field] = append(out[field], fmt.Sprintf("Must contain at least %s items", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at least %s", e.Param()))
				}

			case "max":
				if e.Kind() == reflect.String {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s characters", e.Param()))
				} else if e.Kind() == reflect.Slice {
					out[field] = append(out[field], fmt.Sprintf("Must contain at most %s items", e.Param()))
				} else {
					out[field] = append(out[field], fmt.Sprintf("Must be at most %s", e.Param()))
				}

			case "oneof":
				out[field] = append(out[field], "Value is not allowed")

			case "uuid", "uuid4":
				out[field] = append(out[field], "Invalid UUID format")

			case "gt":
				out[field] = append(out[field], fmt.Sprintf("Must be greater than %s", e.Param()))

			case "gte":
				out[field] = append(out[field], fmt.Sprintf("Must be greater than or equal to %s", e.Param()))

			case "lte":
				out[field] = append(out[field], fmt.Sprintf("Must be less than or equal to %s", e.Param()))

			case "casestatus":
				out[field] = append(out[field], "Unknown status")

			case "country":
				out[field] = append(out[field], "Invalid country code (use ISO-3166 alpha-2, e.g. “BR”)")

			case "doctype":
				out[field] = append(out[field], "Invalid document type (lowercase letters, digits and underscores)")

			default:
				// Fallback to original error text if we missed a tag
				out[field] = append(out[field], e.Error())
			}
		}
		return out, nil
	}
	return nil, nil
}
