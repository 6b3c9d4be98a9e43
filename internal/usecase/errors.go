package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorValidation covers client-correctable input: missing or oversized
	// text, bad cursor, malformed CSV reference. Never retried.
	ErrorValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorNotFound covers lookups of unknown batch ids.
	ErrorNotFound ErrorCode = "NOT_FOUND"
	// ErrorModel covers failed inference calls.
	ErrorModel ErrorCode = "MODEL_ERROR"
	// ErrorStore covers persistence failures.
	ErrorStore ErrorCode = "STORE_ERROR"
	ErrorInternal ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
