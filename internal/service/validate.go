package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/codewizard/internal/apperror"
	"github.com/sakif/codewizard/internal/auth"
)

const minPasswordLength = 8

// emailPattern accepts local@label(.label)*.tld where every domain label
// starts with a letter or digit and the TLD is at least two letters.
// Consecutive dots are rejected separately since RE2 has no lookahead.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@([a-zA-Z0-9][a-zA-Z0-9-]*\.)+[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if strings.Contains(email, "..") || !emailPattern.MatchString(email) {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}
