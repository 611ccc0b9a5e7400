package service

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldError reports a single invalid or missing form field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationError aggregates all field errors from one submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "invalid booking: " + strings.Join(parts, "; ")
}

// BookingRequest carries the raw submitted form values before validation.
type BookingRequest struct {
	PatientName string
	Age         string
	Phone       string
	Pain        string
	Conditions  string
	Date        string
	Slot        string
}

// validate checks required fields and parses the age. Conditions is the only
// optional field. Returns the parsed age when valid.
func validate(req BookingRequest) (int, error) {
	var verr ValidationError

	required := []struct {
		field string
		value string
	}{
		{"name", req.PatientName},
		{"age", req.Age},
		{"phone", req.Phone},
		{"pain", req.Pain},
		{"date", req.Date},
		{"appointment", req.Slot},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.Fields = append(verr.Fields, FieldError{Field: r.field, Reason: "is required"})
		}
	}

	age := 0
	if strings.TrimSpace(req.Age) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(req.Age))
		switch {
		case err != nil:
			verr.Fields = append(verr.Fields, FieldError{Field: "age", Reason: "must be a number"})
		case parsed <= 0 || parsed >= 130:
			verr.Fields = append(verr.Fields, FieldError{Field: "age", Reason: "is out of range"})
		default:
			age = parsed
		}
	}

	if len(verr.Fields) > 0 {
		return 0, &verr
	}
	return age, nil
}
