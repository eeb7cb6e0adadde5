package simplepost

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrInvalidType indicates a field received a value of the wrong type
	ErrInvalidType = errors.New("invalid type")

	// ErrTooLong indicates a text field exceeded its maximum length
	ErrTooLong = errors.New("value too long")

	// ErrInvalidReference indicates a site or collection reference does not exist
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidArgument indicates a value outside the accepted shape of a setter
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrImmutableField indicates an attempt to write a field that is fixed at construction
	ErrImmutableField = fmt.Errorf("%w: field is immutable", ErrInvalidArgument)

	// ErrRecordNotFound indicates no record exists for an identifier
	ErrRecordNotFound = errors.New("record not found")

	// ErrTypeMismatch indicates a record exists but is of a different kind
	ErrTypeMismatch = errors.New("record type mismatch")

	// ErrContentNotFound indicates a pointer has no associated content
	ErrContentNotFound = errors.New("content not found")
)

// FieldError represents a rejected write to a single field
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value for field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ReferenceError names the first site or collection reference that failed validation
type ReferenceError struct {
	Field string
	Ref   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference %q in %s does not exist", e.Ref, e.Field)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// RecordError represents an error related to loading a record
type RecordError struct {
	ID  uuid.UUID
	Op  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for record %s: %v", e.Op, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
