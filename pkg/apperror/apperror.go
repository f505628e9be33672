package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure so the HTTP layer can map it to a
// status code without parsing message strings.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindDuplicateInvoice  Kind = "DUPLICATE_INVOICE"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindForbidden         Kind = "FORBIDDEN"
	KindNotPausable       Kind = "NOT_PAUSABLE"
	KindNotRenewable      Kind = "NOT_RENEWABLE"
	KindNotClosable       Kind = "NOT_CLOSABLE"
	KindReasonRequired    Kind = "REASON_REQUIRED"
	KindRetryFailed       Kind = "RETRY_FAILED"
	KindValidation        Kind = "VALIDATION"
)

// Error carries a Kind alongside a human-readable message. Services return
// these for guard failures; unexpected infrastructure errors stay plain.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err, or "" if err is not a typed error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
