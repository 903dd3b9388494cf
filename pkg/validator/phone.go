package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is not a valid Ecuadorian number
	ErrInvalidLength = errors.New("phone number must have 9 or 10 digits")

	// ErrInvalidPrefix indicates phone number doesn't start with an Ecuadorian mobile prefix
	ErrInvalidPrefix = errors.New("mobile number must start with 09")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// MatchSuffixLength is the number of trailing digits used to match phones
// written with and without the country code
const MatchSuffixLength = 9

const countryCode = "593"

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

var nonDigits = regexp.MustCompile(`\D`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates an Ecuadorian mobile number
// Accepts format: 0991234567, 099 123 4567, +593 99 123 4567 or 991234567
// Returns the national format (10 digits) and error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)
	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(sanitized, countryCode) && len(sanitized) == 12 {
		sanitized = "0" + sanitized[3:]
	}
	if len(sanitized) == 9 {
		sanitized = "0" + sanitized
	}
	if len(sanitized) != 10 {
		return "", ErrInvalidLength
	}

	if !strings.HasPrefix(sanitized, "09") {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes common separators from a phone number
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
	return replacer.Replace(strings.TrimSpace(phone))
}

// Digits strips every non-digit character
func Digits(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// MatchSuffix returns the last nine digits of a phone number, the part that
// stays stable whether or not the country code or trunk zero was typed.
// Returns empty when the number has fewer digits than that.
func MatchSuffix(phone string) string {
	digits := Digits(phone)
	if len(digits) < MatchSuffixLength {
		return ""
	}
	return digits[len(digits)-MatchSuffixLength:]
}

// International formats a number with the given country prefix for the
// payment gateway, e.g. ("0991234567", "+593") -> "+593991234567"
func (v *PhoneValidator) International(phone, prefix string) (string, error) {
	national, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		prefix = "+" + countryCode
	}
	return fmt.Sprintf("%s%s", prefix, national[1:]), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
