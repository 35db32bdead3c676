package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared across the fiberflow packages.

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidArgument indicates a call-site contract violation
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceExhausted indicates that a fixed-size table has no free entries
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrNotInitialized indicates use of a component before it was constructed
	ErrNotInitialized = errors.New("not initialized")

	// ErrAlreadyInitialized indicates a second construction of a singleton
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ContractError is the panic value of a failed fatal assertion.
// Kind is one of the sentinel errors above.
type ContractError struct {
	Module string
	Kind   error
	Msg    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Module, e.Kind, e.Msg)
}

func (e *ContractError) Unwrap() error {
	return e.Kind
}

// Fatal panics with a *ContractError. It is reserved for programmer errors:
// double initialization, use of an invalid group, empty submissions and the like.
func Fatal(module string, kind error, format string, args ...interface{}) {
	panic(&ContractError{
		Module: module,
		Kind:   kind,
		Msg:    fmt.Sprintf(format, args...),
	})
}

// Assert calls Fatal when cond is false.
func Assert(cond bool, module string, kind error, format string, args ...interface{}) {
	if !cond {
		Fatal(module, kind, format, args...)
	}
}

// IsContractViolation reports whether a recovered panic value is a ContractError
// of the given kind. A nil kind matches any ContractError.
func IsContractViolation(recovered interface{}, kind error) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var ce *ContractError
	if !errors.As(err, &ce) {
		return false
	}
	return kind == nil || errors.Is(ce, kind)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
