// Package apperr defines the typed error taxonomy used across the price
// service so that each layer can apply the error handling policy
// (validation vs not-found vs transient-external vs internal vs
// data-quality) without parsing error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Category classifies an error for the purpose of the response policy.
type Category string

const (
	Validation        Category = "validation"
	NotFound          Category = "not_found"
	TransientExternal Category = "transient_external"
	Internal          Category = "internal"
	DataQuality       Category = "data_quality"
)

// Error wraps an underlying cause with a Category so callers can branch on
// errors.As without depending on concrete error types from inner packages.
type Error struct {
	Category Category
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new_(cat Category, msg string, cause error) *Error {
	return &Error{Category: cat, Message: msg, Cause: cause}
}

func Validationf(format string, args ...any) error {
	return new_(Validation, fmt.Sprintf(format, args...), nil)
}

func NotFoundf(format string, args ...any) error {
	return new_(NotFound, fmt.Sprintf(format, args...), nil)
}

func Transient(msg string, cause error) error {
	return new_(TransientExternal, msg, cause)
}

func Internalf(cause error, format string, args ...any) error {
	return new_(Internal, fmt.Sprintf(format, args...), cause)
}

func DataQualityf(format string, args ...any) error {
	return new_(DataQuality, fmt.Sprintf(format, args...), nil)
}

// CategoryOf returns the Category of err, or Internal if err does not carry one.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Internal
}

func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}
