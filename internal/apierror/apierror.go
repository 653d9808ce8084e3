// Package apierror provides standardized error response structures for the API
// and the error taxonomy shared by every service.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// Kind classifies a failure. Handlers map it to an HTTP status.
type Kind int

const (
	KindStoreFailure Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindValidation
	KindExternalTool
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindExternalTool:
		return "external_tool_failure"
	default:
		return "store_failure"
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindExternalTool:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a short human-readable message.
type Error struct {
	Kind Kind
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

// Is matches sentinel errors by kind and message so that wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

var (
	ErrUnauthenticated      = newErr(KindUnauthenticated, "authentication required")
	ErrInvalidCredentials   = newErr(KindUnauthenticated, "invalid username or password")
	ErrForbidden            = newErr(KindForbidden, "not authorized")
	ErrNotFound             = newErr(KindNotFound, "not found")
	ErrNotInTrash           = newErr(KindNotFound, "not found in trash")
	ErrDuplicateUsername    = newErr(KindConflict, "username already taken")
	ErrWrongPassword        = newErr(KindValidation, "current password is incorrect")
	ErrUnsupportedImageType = newErr(KindValidation, "unsupported image type")
)

// Validation returns a validation failure with the given message.
func Validation(msg string) *Error { return newErr(KindValidation, msg) }

// NotFound returns a not-found failure naming the missing entity.
func NotFound(what string) *Error { return &Error{Kind: KindNotFound, Msg: what + " not found", Err: ErrNotFound} }

// Store wraps a persistence failure.
func Store(op string, err error) *Error {
	return &Error{Kind: KindStoreFailure, Msg: op, Err: err}
}

// ToolError reports a failed external process (pg_dump, psql).
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed (exit code: %d): %s", e.Tool, e.ExitCode, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

// KindOf classifies any error; unclassified errors are store failures.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var te *ToolError
	if errors.As(err, &te) {
		return KindExternalTool
	}
	return KindStoreFailure
}

// Message returns the client-safe message for err. Store failures never expose the cause.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Kind == KindStoreFailure {
			return "internal server error"
		}
		return ae.Msg
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te.Error()
	}
	return "internal server error"
}
