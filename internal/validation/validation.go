// Package validation holds the field and form rules the front end runs
// before it calls the auth service, plus password strength scoring.
//
// Validators return the user-facing message, or an empty string when the
// value is acceptable.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field names used as FieldErrors keys.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// MinPasswordLength is enforced on signup and password reset only.
const MinPasswordLength = 6

var (
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

	upperPattern  = regexp.MustCompile(`[A-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// FieldErrors maps a field name to its validation message.
type FieldErrors map[string]string

// PasswordStrength is the banded result of GetPasswordStrength.
type PasswordStrength struct {
	Level int
	Label string
}

// ValidateEmail checks presence and a permissive user@host.tld shape.
func ValidateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(email) {
		return "Invalid email format"
	}
	return ""
}

// ValidatePassword checks presence and, when requireMinLength is set, the
// minimum length. Login passes false so accounts with short passwords can
// still sign in.
func ValidatePassword(password string, requireMinLength bool) string {
	if password == "" {
		return "Password is required"
	}
	if requireMinLength && utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Sprintf("Minimum %d characters", MinPasswordLength)
	}
	return ""
}

// ValidateName checks that the name has non-whitespace content.
func ValidateName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Name is required"
	}
	return ""
}

func ValidateLoginForm(email, password string) FieldErrors {
	errs := FieldErrors{}
	errs.add(FieldEmail, ValidateEmail(email))
	errs.add(FieldPassword, ValidatePassword(password, false))
	return errs
}

func ValidateSignupForm(name, email, password string) FieldErrors {
	errs := FieldErrors{}
	errs.add(FieldName, ValidateName(name))
	errs.add(FieldEmail, ValidateEmail(email))
	errs.add(FieldPassword, ValidatePassword(password, true))
	return errs
}

// ValidateResetForm validates the forgot-password request.
func ValidateResetForm(email string) FieldErrors {
	errs := FieldErrors{}
	errs.add(FieldEmail, ValidateEmail(email))
	return errs
}

// HasErrors reports whether any key is present. A key mapped to an empty
// message still counts; the validators above never insert one.
func HasErrors(errs FieldErrors) bool {
	return len(errs) > 0
}

// GetPasswordStrength scores five independent criteria, one point each:
// length >= 6, length >= 8, an uppercase letter, a digit and a symbol.
func GetPasswordStrength(password string) PasswordStrength {
	if password == "" {
		return PasswordStrength{Level: 0, Label: ""}
	}

	n := utf8.RuneCountInString(password)
	points := 0
	if n >= 6 {
		points++
	}
	if n >= 8 {
		points++
	}
	if upperPattern.MatchString(password) {
		points++
	}
	if digitPattern.MatchString(password) {
		points++
	}
	if symbolPattern.MatchString(password) {
		points++
	}

	switch {
	case points <= 2:
		return PasswordStrength{Level: 1, Label: "WEAK"}
	case points <= 3:
		return PasswordStrength{Level: 2, Label: "MEDIUM"}
	default:
		return PasswordStrength{Level: 3, Label: "STRONG"}
	}
}

func (e FieldErrors) add(field, msg string) {
	if msg != "" {
		e[field] = msg
	}
}
