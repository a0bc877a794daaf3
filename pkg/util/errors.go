// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match with errors.Is regardless of the context attached.
var (
	ErrUnsupportedDeviceType = errors.New("unsupported device type")
	ErrUnknownRouter         = errors.New("unknown router")
	ErrDuplicateRouter       = errors.New("duplicate router")
	ErrAddressResolution     = errors.New("address resolution failed")
	ErrConnectTimeout        = errors.New("connect timeout")
	ErrNotConnected          = errors.New("router not connected")
	ErrNotStaged             = errors.New("configuration not staged")
	ErrAlreadyStaged         = errors.New("configuration already staged")
	ErrAlreadyFinal          = errors.New("configuration already committed or discarded")
	ErrTemplateRender        = errors.New("template render failed")
	ErrDriver                = errors.New("driver error")
	ErrLocked                = errors.New("run locked by another holder")
	ErrValidationFailed      = errors.New("validation failed")
)

// RouterError attaches the router and orchestration phase to a failure.
type RouterError struct {
	Router string
	Phase  string
	Err    error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Router, e.Phase, e.Err)
}

func (e *RouterError) Unwrap() error {
	return e.Err
}

// NewRouterError wraps err with router and phase context.
func NewRouterError(router, phase string, err error) *RouterError {
	return &RouterError{Router: router, Phase: phase, Err: err}
}

// DriverError is a device driver failure that was not treated as a
// retryable boot-wait condition. It matches both ErrDriver and the cause.
type DriverError struct {
	Router string
	Op     string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s on %s: %v", e.Op, e.Router, e.Err)
}

func (e *DriverError) Unwrap() []error {
	return []error{ErrDriver, e.Err}
}

// NewDriverError creates a driver error
func NewDriverError(router, op string, err error) *DriverError {
	return &DriverError{Router: router, Op: op, Err: err}
}

// StateError reports a lifecycle operation attempted from the wrong state.
type StateError struct {
	Router string
	Op     string
	State  string
	kind   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s on %s in state %s: %v", e.Op, e.Router, e.State, e.kind)
}

func (e *StateError) Unwrap() error {
	return e.kind
}

// NewStateError creates a state error of the given sentinel kind.
func NewStateError(router, op, state string, kind error) *StateError {
	return &StateError{Router: router, Op: op, State: state, kind: kind}
}

// UnsupportedTypeError names the router and the rejected device type.
type UnsupportedTypeError struct {
	Router string
	Type   string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("router %s: unsupported device type %q", e.Router, e.Type)
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedDeviceType
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}
