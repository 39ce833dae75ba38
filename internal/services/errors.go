package services

import (
	"errors"
	"fmt"
	"strings"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type ErrorKind string

const (
	KindValidation          ErrorKind = "validation_failure"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindInternal            ErrorKind = "internal_error"
)

// Error is the caller-facing error of every service operation. Err keeps the operator-facing
// cause and is never rendered to clients for KindInternal.
type Error struct {
	Kind       ErrorKind
	Message    string
	Fields     FieldErrors
	ResourceID string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FieldErrors collects every offending field of one request.
type FieldErrors []models.FieldError

func (f *FieldErrors) Add(field, message string) {
	*f = append(*f, models.FieldError{Field: field, Message: message})
}

func (f FieldErrors) has(field string) bool {
	for _, fe := range f {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for _, fe := range f {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return strings.Join(parts, "; ")
}

func validationError(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Message: "invalid request: " + fields.Error(), Fields: fields}
}

func notFoundError(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found", ResourceID: id}
}

func conflictError(message, id string) *Error {
	return &Error{Kind: KindConflict, Message: message, ResourceID: id}
}

func internalError(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of a service error, KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
