package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed domain error carrying the API error code, the stable
// machine-readable message and the HTTP status it maps to. Params hold
// optional structured detail attached at the boundary; the variants
// themselves are immutable.
type Error struct {
	Code   int                    `json:"code"`
	Msg    string                 `json:"msg"`
	Status int                    `json:"-"`
	Params map[string]interface{} `json:"params"`
	Err    error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error variant.
func New(code int, status int, msg string) *Error {
	return &Error{Code: code, Status: status, Msg: msg}
}

// Wrap attaches an underlying cause to a variant without mutating it.
func Wrap(err error, variant *Error) *Error {
	clone := *variant
	clone.Err = err
	return &clone
}

// WithParams returns a copy of the variant carrying structured detail for
// the response body.
func WithParams(variant *Error, params map[string]interface{}) *Error {
	clone := *variant
	clone.Params = params
	return &clone
}

// Error variants. Codes are part of the public API contract and never reused.
var (
	// General
	ErrUnauthorized       = New(1001, http.StatusUnauthorized, "UN_AUTH")
	ErrBadRequest         = New(1002, http.StatusBadRequest, "BAD_REQUEST")
	ErrForbidden          = New(1003, http.StatusForbidden, "FORBIDDEN")
	ErrNotFound           = New(1004, http.StatusNotFound, "NOT_FOUND")
	ErrMethodNotAllowed   = New(1005, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
	ErrNotAcceptable      = New(1006, http.StatusNotAcceptable, "NOT_ACCEPTABLE")
	ErrInvalidPassword    = New(1007, http.StatusUnauthorized, "INVALID_PASSWORD")
	ErrInvalidToken       = New(1008, http.StatusUnauthorized, "INVALID_TOKEN")
	ErrServer             = New(1009, http.StatusInternalServerError, "SERVER_ERROR")
	ErrServiceUnavailable = New(1010, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE")

	// Users
	ErrUserAlreadyExists   = New(1101, http.StatusConflict, "USER_ALREADY_EXISTS")
	ErrUserNotActive       = New(1102, http.StatusForbidden, "USER_NOT_ACTIVE")
	ErrUserNotFound        = New(1103, http.StatusNotFound, "USER_NOT_FOUND")
	ErrUserNotSetPassword  = New(1104, http.StatusBadRequest, "USER_NOT_SET_PASSWORD")
	ErrInstructorNotExists = New(1105, http.StatusNotFound, "INSTRUCTOR_NOT_EXISTS")
	ErrGoogleCredNotFound  = New(1106, http.StatusNotFound, "GOOGLE_CREDENTIAL_NOT_FOUND")
	ErrNotValidEvents      = New(1107, http.StatusNotAcceptable, "NOT_VALID_EVENTS_ERROR")

	// Schedules
	ErrScheduleNotExists = New(2001, http.StatusNotFound, "SCHEDULE_NOT_EXISTS")
	ErrScheduleOverlaps  = New(2002, http.StatusNotAcceptable, "SCHEDULE_OVERLAPS")

	// Faculties
	ErrFacultyNotExists    = New(3001, http.StatusNotFound, "FACULTY_NOT_EXISTS")
	ErrDepartmentNotExists = New(3002, http.StatusNotFound, "DEPARTMENT_NOT_EXISTS")

	// Tickets
	ErrTicketNotFound = New(4001, http.StatusNotFound, "TICKET_NOT_FOUND")
)

// ErrCacheMiss signals a cache lookup that found nothing. It never reaches
// the API boundary.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error. Unknown errors collapse to
// SERVER_ERROR so no internal detail leaks to clients.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrServer)
}

// Is reports whether err resolves to the given variant by code.
func Is(err error, variant *Error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == variant.Code
	}
	return false
}
