package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess       Code = 0
	CodeInternal      Code = 1
	CodeUsage         Code = 2
	CodeUnavailable   Code = 12
	CodeUnsupported   Code = 13
	CodePartial       Code = 15
	CodeBlocked       Code = 16
	CodeSigner        Code = 17
	CodeChainMismatch Code = 18
	CodeSubmission    Code = 19
	CodeReverted      Code = 20
	CodeActionTimeout Code = 21
	CodeLocked        Code = 22
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	typed, ok := As(err)
	return ok && typed.Code == code
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

// TypeName is the envelope error type for a code.
func TypeName(code Code) string {
	switch code {
	case CodeUsage:
		return "usage_error"
	case CodeUnavailable:
		return "connectivity_error"
	case CodeUnsupported:
		return "unsupported"
	case CodePartial:
		return "partial_failure"
	case CodeBlocked:
		return "action_blocked"
	case CodeSigner:
		return "signer_error"
	case CodeChainMismatch:
		return "chain_mismatch"
	case CodeSubmission:
		return "submission_failed"
	case CodeReverted:
		return "reverted"
	case CodeActionTimeout:
		return "receipt_timeout"
	case CodeLocked:
		return "run_locked"
	default:
		return "internal_error"
	}
}
