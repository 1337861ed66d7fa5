package metadata

import "errors"

// StoreError represents a metadata store failure other than absence.
//
// Absence is not an error in this contract: ReadIndex returns an empty
// index and GetFile returns nil. StoreError covers malformed input, corrupt
// persisted data and infrastructure failures.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Domain is the tenant the operation was scoped to (if applicable)
	Domain string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Domain != "" {
		msg += " (domain " + e.Domain + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrInvalidArgument indicates an empty domain or id, or a record
	// without an id.
	ErrInvalidArgument ErrorCode = iota

	// ErrCorrupt indicates a persisted value that no longer decodes.
	ErrCorrupt

	// ErrIOError indicates the underlying database failed.
	ErrIOError

	// ErrClosed indicates the store was used after Close.
	ErrClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrCorrupt:
		return "corrupt value"
	case ErrIOError:
		return "i/o error"
	case ErrClosed:
		return "store closed"
	default:
		return "unknown"
	}
}

// IsCode reports whether err is a *StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == code
}

// NewError builds a StoreError.
func NewError(code ErrorCode, domain, message string, cause error) *StoreError {
	return &StoreError{Code: code, Message: message, Domain: domain, Err: cause}
}
