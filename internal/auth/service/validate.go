package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxNameLength     = 100
	MaxEmailLength    = 254
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateCredentials checks the fields shared by sign-up and sign-in.
// email must already be normalised.
func validateCredentials(email, password string, fields map[string]string) {
	switch {
	case email == "":
		fields["email"] = "Email is required"
	case len(email) > MaxEmailLength || !isEmail(email):
		fields["email"] = "Invalid email address"
	}

	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		fields["password"] = "Password is required"
	case n < MinPasswordLength:
		fields["password"] = "Password must be at least 8 characters"
	case n > MaxPasswordLength:
		fields["password"] = "Password must be at most 128 characters"
	}
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// ValidateSignUp returns a *ValidationError or nil.
func ValidateSignUp(in SignUpInput) error {
	fields := map[string]string{}
	validateCredentials(NormalizeEmail(in.Email), in.Password, fields)

	if in.Name != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*in.Name))
		switch {
		case n < 1:
			fields["name"] = "Name must not be empty"
		case n > MaxNameLength:
			fields["name"] = "Name must be at most 100 characters"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidateSignIn returns a *ValidationError or nil.
func ValidateSignIn(email, password string) error {
	fields := map[string]string{}
	validateCredentials(NormalizeEmail(email), password, fields)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
