package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so a re-worded error
// built with NewDomainError still matches the sentinel under errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidIdentifier = NewDomainError("INVALID_IDENTIFIER", "Malformed identifier")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrTransientStore    = NewDomainError("TRANSIENT_STORE_FAILURE", "Persistence store unavailable or timed out")
)

// StoreError wraps a failed persistence call. It matches ErrTransientStore
// under errors.Is and unwraps to the driver error.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a transient store failure for operation op
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes every StoreError match ErrTransientStore
func (e *StoreError) Is(target error) bool {
	return target == ErrTransientStore
}
