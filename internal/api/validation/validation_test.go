package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"valid_simple", "user@example.com", true},
		{"valid_subdomain", "user@mail.example.com", true},
		{"valid_plus", "user+tag@example.com", true},
		{"valid_dot", "user.name@example.com", true},
		{"invalid_no_at", "userexample.com", false},
		{"invalid_no_domain", "user@", false},
		{"invalid_no_user", "@example.com", false},
		{"invalid_double_at", "user@@example.com", false},
		{"invalid_spaces", "user @example.com", false},
		{"invalid_no_tld", "user@example", false},
		{"too_long", strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.email), "Email: %s", tt.email)
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+1 (555) 010-0100", true},
		{"0123456789", true},
		{"+44 20 7946 0958", true},
		{"1234", false},
		{"call me", false},
		{"+1 555 0100 ext 5", false},
		{strings.Repeat("1", 16), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, IsValidPhone(tt.phone), "Phone: %s", tt.phone)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NotEmpty(t, ValidatePassword("12345"))
	assert.Empty(t, ValidatePassword("123456"))
	assert.Empty(t, ValidatePassword(strings.Repeat("x", 72)))
	assert.NotEmpty(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("Ada"))
	assert.False(t, IsValidName("   "))
	assert.False(t, IsValidName(strings.Repeat("n", 101)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString("hello\x00 world"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "bell", SanitizeString("be\x07ll"))
}
