package validation

import (
	"regexp"
	"strings"
)

// Validation rule patterns
var (
	// CNICPattern accepts 13 digits with or without the 5-7-1 dashes
	CNICPattern = `^\d{5}-?\d{7}-?\d$`

	// PhonePattern accepts an optional leading + followed by 7 to 15 digits, spaces or dashes allowed
	PhonePattern = `^\+?[0-9][0-9 \-]{6,18}$`

	// BedNumberPattern is a short label such as "1", "B" or "A-2"
	BedNumberPattern = `^[A-Za-z0-9][A-Za-z0-9\-]{0,9}$`

	NameMinLength = 2
	NameMaxLength = 100
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	CNIC      *regexp.Regexp
	Phone     *regexp.Regexp
	BedNumber *regexp.Regexp
}{
	CNIC:      regexp.MustCompile(CNICPattern),
	Phone:     regexp.MustCompile(PhonePattern),
	BedNumber: regexp.MustCompile(BedNumberPattern),
}

// StringValidation is a chainable check on one string value
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Value == "" {
		return !v.Required
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// IsCNIC reports whether s is a well-formed national identity number
func IsCNIC(s string) bool {
	return NewStringValidation(strings.TrimSpace(s)).WithPattern(CompiledPatterns.CNIC).Validate()
}

// IsPhone reports whether s looks like a phone number; empty is allowed
func IsPhone(s string) bool {
	return NewStringValidation(strings.TrimSpace(s)).
		WithRequired(false).
		WithPattern(CompiledPatterns.Phone).
		Validate()
}

// IsBedNumber reports whether s is a valid bed label
func IsBedNumber(s string) bool {
	return NewStringValidation(s).WithPattern(CompiledPatterns.BedNumber).Validate()
}

// IsPersonName reports whether a trimmed name has an acceptable length
func IsPersonName(s string) bool {
	return NewStringValidation(strings.TrimSpace(s)).
		WithMinLength(NameMinLength).
		WithMaxLength(NameMaxLength).
		Validate()
}
