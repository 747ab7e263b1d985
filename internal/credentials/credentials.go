// Package credentials holds the input checks run before a registration or a login
// touches the record store. The checks are pure and have no side effects.
package credentials

import (
	"errors"
	"fmt"
	"unicode/utf16"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/userauth/internal/models"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// Reason names the rule a request failed.
type Reason string

const (
	ReasonMissingFields             Reason = "MissingFields"
	ReasonPasswordTooShort          Reason = "PasswordTooShort"
	ReasonPasswordMissingComplexity Reason = "PasswordMissingComplexity"
	ReasonPasswordMismatch          Reason = "PasswordMismatch"
)

var messages = map[Reason]string{
	ReasonMissingFields:             "missing required fields",
	ReasonPasswordTooShort:          fmt.Sprintf("password must be at least %d characters long", MinPasswordLength),
	ReasonPasswordMissingComplexity: "password must contain at least one letter and one digit",
	ReasonPasswordMismatch:          "passwords do not match",
}

// ValidationError is a client-correctable input problem.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return messages[e.Reason]
}

// IsValidationError reports whether err carries a ValidationError and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr, true
	}
	return nil, false
}

var validate = validator.New()

// ValidateRegistration checks a registration request. The first failing rule wins:
// presence of all fields, password length, password complexity, confirmation match.
func ValidateRegistration(req *models.RegisterRequest) error {
	if req == nil || validate.Struct(req) != nil {
		return &ValidationError{Reason: ReasonMissingFields}
	}

	if passwordLength(req.Password) < MinPasswordLength {
		return &ValidationError{Reason: ReasonPasswordTooShort}
	}

	if !hasLetter(req.Password) || !hasDigit(req.Password) {
		return &ValidationError{Reason: ReasonPasswordMissingComplexity}
	}

	if req.Password != req.ConfirmPassword {
		return &ValidationError{Reason: ReasonPasswordMismatch}
	}

	return nil
}

// ValidateLogin checks that both login fields are present.
func ValidateLogin(req *models.LoginRequest) error {
	if req == nil || validate.Struct(req) != nil {
		return &ValidationError{Reason: ReasonMissingFields}
	}

	return nil
}

// passwordLength counts UTF-16 code units, the way browser clients count
// characters: "é" is one, an emoji outside the BMP is two.
func passwordLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
