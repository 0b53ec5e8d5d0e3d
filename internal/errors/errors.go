package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Code classifies service errors so transport layers can map them without
// inspecting infrastructure sentinels.
type Code int

const (
	CodeInternal Code = iota
	CodeNotFound
	CodeForbidden
	CodeBadRequest
	CodeUnauthorized
	CodeTimeout
)

// Error is a coded service error. Services return these; handlers map them
// to HTTP statuses via Status.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error     { return &Error{Code: CodeNotFound, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Code: CodeForbidden, Msg: msg} }
func BadRequest(msg string) error   { return &Error{Code: CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Code: CodeUnauthorized, Msg: msg} }

// Internal wraps an unexpected failure, keeping the cause for logs.
func Internal(msg string, err error) error {
	return &Error{Code: CodeInternal, Msg: msg, Err: err}
}

// Map converts repo/infra errors into coded service errors.
// Keeps the service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Code: CodeNotFound, Msg: "record not found", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: CodeTimeout, Msg: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &Error{Code: CodeTimeout, Msg: "request was canceled", Err: err}

	default:
		return &Error{Code: CodeInternal, Msg: "internal error", Err: err}
	}
}

// Status returns the HTTP status for an error, mapping unknown errors to 500.
func Status(err error) int {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError
	}
	switch svcErr.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for an error. Internal causes are
// not leaked.
func Message(err error) string {
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		return "internal error"
	}
	if svcErr.Code == CodeInternal {
		return "internal error"
	}
	return svcErr.Msg
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var svcErr *Error
	return errors.As(err, &svcErr) && svcErr.Code == code
}
