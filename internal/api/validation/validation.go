package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes and x/crypto rejects longer input.
	MaxPasswordBytes = 72
	MaxNameLength    = 100
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// Digits with optional leading +, spaces, dashes, dots and parentheses
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ().\-]{5,31}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPhone accepts loosely formatted phone numbers holding 5 to 15 digits.
func IsValidPhone(phone string) bool {
	if !phoneRegex.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 5 && digits <= 15
}

// ValidatePassword returns an empty string for an acceptable password.
func ValidatePassword(password string) string {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "Password must be at least 6 characters"
	}
	if len(password) > MaxPasswordBytes {
		return "Password must be at most 72 bytes"
	}
	return ""
}

// IsValidName checks the length of a display name after trimming.
func IsValidName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= MaxNameLength
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Remove control characters except newlines and tabs
	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
