package dps

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dPS/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

// ErrCode classifies store layer errors into a closed set of outcomes.
type ErrCode uint8

const (
	CodeConnection    ErrCode = iota + 1 // Back end unreachable
	CodeBackend                          // Back end rejected a request
	CodeNotFound                         // Store, key or lock does not exist
	CodeAlreadyExists                    // Store or lock already exists
	CodeLockTimeout                      // A required lock could not be acquired in time
	CodeInconsistent                     // Persisted state is damaged; fatal for the affected store
	CodeInvalidInput                     // Caller passed an unusable argument
)

func (c ErrCode) String() string {
	switch c {
	case CodeConnection:
		return "connection"
	case CodeBackend:
		return "backend"
	case CodeNotFound:
		return "not found"
	case CodeAlreadyExists:
		return "already exists"
	case CodeLockTimeout:
		return "lock timeout"
	case CodeInconsistent:
		return "inconsistent"
	case CodeInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the store layer.
type Error struct {
	Code  ErrCode
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dps (%s): %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("dps (%s): %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the error code from an error chain, 0 if none.
func CodeOf(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

func newError(code ErrCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

func newErrorf(code ErrCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// backendError wraps a driver failure, promoting lock timeouts to their
// own code so callers can retry them specifically.
func backendError(msg string, cause error) *Error {
	if errors.Is(cause, lockmgr.ErrLockTimeout) {
		return newError(CodeLockTimeout, msg, cause)
	}
	return newError(CodeBackend, msg, cause)
}
