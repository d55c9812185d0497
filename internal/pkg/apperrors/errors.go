package apperrors

import (
	"errors"
	"fmt"
)

// Generic errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("conflict")
	ErrValidationFailed   = errors.New("validation failed")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")
)

// Occupancy errors
var (
	// ErrRoomFull is returned when a capacity adjustment would push occupiedBeds past totalBeds.
	ErrRoomFull = errors.New("room is full")
	// ErrBedTaken is returned when another active student already holds the (room, bed) pair.
	ErrBedTaken = errors.New("bed is already taken")
	// ErrCapacityUnderflow is returned when a decrement would take occupiedBeds below zero.
	ErrCapacityUnderflow = errors.New("room occupancy cannot drop below zero")
	ErrInvalidBed        = errors.New("invalid bed number")
	ErrRoomNotInHostel   = errors.New("room does not belong to the student's hostel")
	ErrStudentInactive   = errors.New("student is not active")
	ErrAlreadyAssigned   = errors.New("student already holds a bed")
)

// Billing and payment errors
var (
	ErrAlreadyGenerated  = errors.New("invoices already generated for this period")
	ErrAlreadyVerified   = errors.New("payment already verified")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrReceiptExhausted  = errors.New("could not allocate a unique receipt number")
)

// Admission errors
var (
	ErrPartialAdmission  = errors.New("admission failed after partial writes")
	ErrUsernameExhausted = errors.New("could not derive a unique username")
)

// Not-found errors for each entity. All of them match ErrNotFound through errors.Is.
var (
	ErrHostelNotFound              = &CustomError{Err: ErrNotFound, Message: "hostel not found"}
	ErrRoomNotFound                = &CustomError{Err: ErrNotFound, Message: "room not found"}
	ErrStudentNotFound             = &CustomError{Err: ErrNotFound, Message: "student not found"}
	ErrPaymentNotFound             = &CustomError{Err: ErrNotFound, Message: "payment not found"}
	ErrUserNotFound                = &CustomError{Err: ErrNotFound, Message: "user not found"}
	ErrSubscriptionInvoiceNotFound = &CustomError{Err: ErrNotFound, Message: "subscription invoice not found"}
)

// Uniqueness conflicts reported by the stores. All of them match ErrConflict through errors.Is.
var (
	ErrDuplicateReceipt   = &CustomError{Err: ErrConflict, Message: "receipt number already exists"}
	ErrUsernameTaken      = &CustomError{Err: ErrConflict, Message: "username already exists"}
	ErrRoomNumberTaken    = &CustomError{Err: ErrConflict, Message: "room number already exists in this hostel"}
	ErrSubscriptionExists = &CustomError{Err: ErrConflict, Message: "subscription invoice already exists for this period"}
	// ErrStaleWrite is returned by conditional updates whose precondition no longer holds
	ErrStaleWrite = &CustomError{Err: ErrConflict, Message: "record changed concurrently"}
)

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrNotFound,
		Message: message,
	}
}

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying a user-facing message
func NewValidationError(format string, args ...interface{}) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err       error
	Message   string
	StatusMsg string
	Code      string
	Details   map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}

// AdmissionError reports an admission that failed after some of its steps were already written.
// The compensations have run by the time it is returned; Err is the original failure.
type AdmissionError struct {
	Step string
	Err  error
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission failed at %s: %v", e.Step, e.Err)
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrPartialAdmission in addition to the wrapped cause.
func (e *AdmissionError) Is(target error) bool {
	return target == ErrPartialAdmission
}
