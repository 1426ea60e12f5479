// Package types provides shared type definitions used across the capture service.
package types

import "strings"

// FieldError is one rejected input field. Field is the JSON path, such as
// "upload.base_url", and is empty for errors not tied to a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// ValidationError collects field errors. The zero value is ready to use.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// Add records a rejected field.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{Field: field, Message: message, Value: value})
}

// Err returns v when it holds any field error, and nil otherwise.
func (v *ValidationError) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	for i, e := range v.Errors {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		if e.Field != "" {
			b.WriteString(e.Field + " ")
		}
		b.WriteString(e.Message)
	}
	return b.String()
}
