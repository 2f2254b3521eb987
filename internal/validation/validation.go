// Package validation provides pure predicates for the intake dialogue slots.
//
// Each validator returns a normalized value or a structured list of field
// errors; rendering retries is the timeline layer's job, never this package's.
package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/TrackWise/TrackTalk/internal/models"
)

var (
	localPhoneRe     = regexp.MustCompile(`^05\d{8}$`)
	canonicalPhoneRe = regexp.MustCompile(`^\+972\d{8,9}$`)
)

// Phone validates a phone number in local (05XXXXXXXX) or canonical
// (+972XXXXXXXX) form and returns the canonical form. Local numbers are
// converted by replacing the leading 0 with +972.
func Phone(raw string) (string, []models.FieldError) {
	v := strings.TrimSpace(raw)
	v = strings.ReplaceAll(v, "-", "")
	v = strings.ReplaceAll(v, " ", "")
	switch {
	case localPhoneRe.MatchString(v):
		return "+972" + v[1:], nil
	case canonicalPhoneRe.MatchString(v):
		return v, nil
	default:
		return "", []models.FieldError{{Field: "phone", Message: "enter a valid Israeli mobile number, e.g. 0501234567"}}
	}
}

// Price validates a price or percent value: numeric, strictly positive.
// Returns the parsed number on success.
func Price(raw string) (float64, []models.FieldError) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "₪")
	v = strings.ReplaceAll(v, ",", "")
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, []models.FieldError{{Field: "target_value", Message: "enter a number"}}
	}
	if n <= 0 {
		return 0, []models.FieldError{{Field: "target_value", Message: "enter a positive number"}}
	}
	return n, nil
}

// Name validates a first name: non-empty after trimming. Returns the trimmed
// form.
func Name(raw string) (string, []models.FieldError) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", []models.FieldError{{Field: "first_name", Message: "enter your first name"}}
	}
	return v, nil
}

// Consent validates the explicit opt-in checkbox: it must be checked before
// submission.
func Consent(checked bool) []models.FieldError {
	if !checked {
		return []models.FieldError{{Field: "consent", Message: "consent is required to create a tracking"}}
	}
	return nil
}

// NonEmpty validates generic free text for a required slot.
func NonEmpty(field, raw string) (string, []models.FieldError) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", []models.FieldError{{Field: field, Message: "this field cannot be empty"}}
	}
	return v, nil
}
