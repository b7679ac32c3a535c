// internal/validation/validator.go
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

var validate *validator.Validate

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{6,30}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("phone", validatePhone)
	validate.RegisterValidation("positive_money", validatePositiveMoney)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Check validates s and converts the first failure into a
// models.ValidationError keyed by field, for use inside domain packages.
func Check(s interface{}, key string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return models.NewValidationError(key, "%s", getValidationMessage(e))
	}
	return models.NewValidationError(key, "%s", err.Error())
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validatePositiveMoney(fl validator.FieldLevel) bool {
	m, ok := fl.Field().Interface().(money.Money)
	if !ok {
		return false
	}
	return m.IsPositive()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of " + e.Param()
	case "strong_password":
		return "Password must contain at least 8 characters with uppercase, lowercase and a number"
	case "phone":
		return "Invalid phone number"
	case "positive_money":
		return e.Field() + " must be greater than zero"
	default:
		return e.Field() + " is invalid"
	}
}
