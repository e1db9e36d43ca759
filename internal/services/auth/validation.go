package auth

import (
	"errors"
	"regexp"
	"unicode"

	"github.com/findosh/northbank/internal/apperr"
	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores anything longer
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})
	v.RegisterValidation("deviceid", func(fl validator.FieldLevel) bool {
		return deviceIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// isStrongPassword requires 8 to 72 characters with an upper case letter,
// a lower case letter and a digit
func isStrongPassword(p string) bool {
	if len(p) < minPasswordLength || len(p) > maxPasswordLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// validationError turns the first failed rule into a display-safe message
func validationError(err error, requiredMessage string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, "Invalid request", err)
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = requiredMessage
	case "email":
		msg = "Invalid email format"
	case "password":
		msg = "Password must be 8 to 72 characters and include an uppercase letter, a lowercase letter and a digit"
	case "eqfield":
		msg = "Passwords do not match"
	case "deviceid":
		msg = "Invalid device ID format"
	case "max":
		msg = fe.Field() + " is too long"
	default:
		msg = "Invalid " + fe.Field()
	}
	return apperr.New(apperr.KindValidation, msg)
}
