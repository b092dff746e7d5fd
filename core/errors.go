package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// ErrDuplicateCommand is returned when a command name or alias is already registered
var ErrDuplicateCommand = errors.New("duplicate command")

// ErrRegistrySealed is returned when registering after startup has finished
var ErrRegistrySealed = errors.New("command registry is sealed")

// ErrPersistenceUnavailable marks failures of the moderation store
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsPersistenceUnavailable checks if an error originated in the moderation store
func IsPersistenceUnavailable(err error) bool {
	return err != nil && errors.Is(err, ErrPersistenceUnavailable)
}

// MissingArgumentError is returned by handlers when a required argument was not supplied
type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s is a required argument that is missing.", e.Param)
}

// MissingPermissionsError is returned when either the invoking user or the agent
// itself lacks guild permissions needed by a command.
type MissingPermissionsError struct {
	Permissions []string
	Bot         bool
}

func (e *MissingPermissionsError) Error() string {
	subject := "user"
	if e.Bot {
		subject = "bot"
	}
	return fmt.Sprintf("%s is missing permission(s): %s", subject, strings.Join(e.Permissions, ", "))
}

// HandlerError marks an expected command failure. The cause is logged but never
// shown to the end user.
type HandlerError struct {
	Op  string
	Err error
}

func (e *HandlerError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// NewHandlerError wraps err as an expected command failure
func NewHandlerError(op string, err error) error {
	return &HandlerError{Op: op, Err: err}
}

// PanicError carries a value recovered from a panicking command handler
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command handler panicked: %v", e.Value)
}

// IsMissingArgument checks if an error is a MissingArgumentError
func IsMissingArgument(err error) (*MissingArgumentError, bool) {
	var target *MissingArgumentError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsMissingPermissions checks if an error is a MissingPermissionsError
func IsMissingPermissions(err error) (*MissingPermissionsError, bool) {
	var target *MissingPermissionsError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsHandlerError checks if an error is an expected handler failure, including recovered panics
func IsHandlerError(err error) bool {
	var handlerErr *HandlerError
	var panicErr *PanicError
	return errors.As(err, &handlerErr) || errors.As(err, &panicErr)
}
