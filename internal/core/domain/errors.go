package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the request lifecycle. Handlers translate these into
// HTTP statuses; none of them should crash the process.
var (
	ErrRequestNotFound   = errors.New("blood request not found")
	ErrDonorNotFound     = errors.New("donor not found")
	ErrDuplicateResponse = errors.New("donor has already responded to this request")
	ErrNotRequestOwner   = errors.New("not authorized to update this request")
	ErrNotAResponder     = errors.New("donor has not responded to this request")
)

// FieldError describes a single invalid or missing input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field of a create payload, never
// just the first.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, ", ")
}

// InvalidStateError is returned when an operation needs the request in a
// state it is no longer in, e.g. responding to a fulfilled request.
type InvalidStateError struct {
	RequestID string
	Status    RequestStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("request %s is not active (status: %s)", e.RequestID, e.Status)
}

// IncompatibleBloodTypeError is returned when a donor's blood type cannot be
// transfused into the request's required type.
type IncompatibleBloodTypeError struct {
	DonorType    BloodType
	RequiredType BloodType
}

func (e *IncompatibleBloodTypeError) Error() string {
	return fmt.Sprintf("blood type %s is not compatible with required type %s", e.DonorType, e.RequiredType)
}
