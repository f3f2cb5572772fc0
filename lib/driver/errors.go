package driver

import "fmt"

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// ErrKind classifies driver errors so callers can decide between
// retrying, reconnecting and surfacing the failure.
type ErrKind uint8

const (
	KindConnection ErrKind = iota // Connection lost or unreachable, reconnect + retry is safe
	KindBackend                   // Back end rejected the request
	KindRedirect                  // Key is served by another node (clustered back ends only)
)

func (k ErrKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindBackend:
		return "backend"
	case KindRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Error is the error type returned by all driver implementations.
type Error struct {
	Kind  ErrKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("driver (%s): %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("driver (%s): %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a connection-kind driver error.
func NewConnectionError(msg string, cause error) *Error {
	return &Error{Kind: KindConnection, Msg: msg, Cause: cause}
}

// NewBackendError creates a backend-kind driver error.
func NewBackendError(msg string, cause error) *Error {
	return &Error{Kind: KindBackend, Msg: msg, Cause: cause}
}

// --------------------------------------------------------------------------
// Redirects
// --------------------------------------------------------------------------

// Redirect is returned by clustered back ends when another node owns the
// requested key. Ask marks a one-shot redirect during slot migration,
// otherwise the ownership moved permanently.
type Redirect struct {
	Ask  bool
	Addr string
	Key  string
}

func (r *Redirect) Error() string {
	if r.Ask {
		return fmt.Sprintf("driver (redirect): ask %s for key %q", r.Addr, r.Key)
	}
	return fmt.Sprintf("driver (redirect): moved to %s for key %q", r.Addr, r.Key)
}

// AsRedirect extracts a redirect from a driver error chain.
func AsRedirect(err error) (*Redirect, bool) {
	for err != nil {
		if r, ok := err.(*Redirect); ok {
			return r, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
