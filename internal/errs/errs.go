package errs

import (
	"errors"
	"net/http"
)

// Code classifies a suite error by how a scenario should react to it.
type Code string

const (
	// InvalidArgument is a test-authoring bug, such as a builder missing a required field.
	InvalidArgument Code = "invalid_argument"
	// NotFound means a row, option, or account the caller looked for is absent.
	NotFound Code = "not_found"
	// FailedPrecondition means a setup step did not complete; dependent scenarios skip.
	FailedPrecondition Code = "failed_precondition"
	// Interaction means an expected element never became visible or enabled in time.
	Interaction Code = "interaction"
	// PermissionDenied is used by the stand-in app for role checks.
	PermissionDenied Code = "permission_denied"
	// Unavailable means the browser or application could not be reached.
	Unavailable Code = "unavailable"
	Internal    Code = "internal"
)

// Error is a coded suite error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// MessageOf returns the outermost coded message, or "internal error" for
// untyped errors so raw driver text does not leak into report summaries.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
