// Package errors provides centralized error definitions and error handling utilities
// for the bridge. It defines sentinel errors, typed errors that carry channel
// context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - ChannelError: a channel operation failed for a caller-facing reason
//     (for example a payload that cannot be encoded)
//   - ContractError: the shared ledger holds a value outside the protocol's
//     encoding. These are environment bugs; the protocol panics with them
//     instead of returning them.
//
// Semantic errors:
//   - ValidationError: invalid configuration or CLI input
//
// # Usage
//
//	err := errors.NewChannelError("encode payload", cause).WithFrequency("demo")
//	if errors.Is(err, errors.ErrEncodePayload) { ... }
//
//	var contract *errors.ContractError
//	if errors.As(recovered, &contract) { ... }
//
// Stuck locks and late subscriptions are documented behaviour, not errors, so
// nothing in this package represents them.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Ledger encoding sentinel errors
var (
	// ErrMalformedQueue indicates a mailbox value that is not a JSON array of strings.
	ErrMalformedQueue = New("malformed mailbox queue")
	// ErrInvalidLock indicates a lock value outside the three sentinels.
	ErrInvalidLock = New("invalid mailbox lock sentinel")
	// ErrUnknownPeer indicates a peer identity other than the two fixed peers.
	ErrUnknownPeer = New("unknown peer")
)

// Channel sentinel errors
var (
	// ErrEncodePayload indicates a message that cannot be serialized.
	ErrEncodePayload = New("cannot encode message payload")
	// ErrLoopClosed indicates work was posted to a stopped peer loop.
	ErrLoopClosed = New("peer loop closed")
	// ErrSwitchboardClosed indicates a channel was requested after Close.
	ErrSwitchboardClosed = New("switchboard closed")
	// ErrEmptyFrequency indicates an empty channel name.
	ErrEmptyFrequency = New("frequency must not be empty")
)

// General sentinel errors
var (
	// ErrAlreadySettled indicates a second settlement of a deferred value.
	ErrAlreadySettled = New("deferred value already settled")
	// ErrNotSettled indicates a read of a deferred value that is still pending.
	ErrNotSettled = New("deferred value not settled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ChannelError represents a failed channel operation.
//
// Example:
//
//	err := errors.NewChannelError("encode payload", errors.ErrEncodePayload)
//	err = err.WithFrequency("demo").WithPeer("inject")
//	fmt.Println(err) // "channel error [frequency=demo, peer=inject]: encode payload: cannot encode message payload"
type ChannelError struct {
	baseError
	Frequency string
	Peer      string
}

// NewChannelError creates a new ChannelError.
func NewChannelError(message string, cause error) *ChannelError {
	return &ChannelError{
		baseError: baseError{
			message: message,
			cause:   cause,
		},
	}
}

// WithFrequency adds the channel name to the error context.
func (e *ChannelError) WithFrequency(frequency string) *ChannelError {
	e.Frequency = frequency
	return e
}

// WithPeer adds the peer side to the error context.
func (e *ChannelError) WithPeer(peer string) *ChannelError {
	e.Peer = peer
	return e
}

// Error returns the formatted error message.
func (e *ChannelError) Error() string {
	var parts []string
	if e.Frequency != "" {
		parts = append(parts, fmt.Sprintf("frequency=%s", e.Frequency))
	}
	if e.Peer != "" {
		parts = append(parts, fmt.Sprintf("peer=%s", e.Peer))
	}

	prefix := "channel error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("channel error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ChannelError) Is(target error) bool {
	if _, ok := target.(*ChannelError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ContractError reports a ledger value that violates the channel encoding.
// Peers are trusted and co-located, so a ContractError means the environment
// or a caller corrupted the ledger. It is raised with panic and never
// recovered by the protocol itself.
//
// Example:
//
//	panic(errors.NewContractError("ldemo", "7", errors.ErrInvalidLock))
type ContractError struct {
	baseError
	Key   string
	Value string
}

// NewContractError creates a new ContractError for the raw ledger key and value.
func NewContractError(key, value string, cause error) *ContractError {
	return &ContractError{
		baseError: baseError{
			message: "ledger contract violation",
			cause:   cause,
		},
		Key:   key,
		Value: value,
	}
}

// Error returns the formatted error message.
func (e *ContractError) Error() string {
	prefix := fmt.Sprintf("contract error [key=%s, value=%q]", e.Key, e.Value)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ContractError) Is(target error) bool {
	if _, ok := target.(*ContractError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("frequency cannot be empty")
//	err = err.WithField("channel.frequencies").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message: message,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsContractViolation returns true if err is or wraps a ContractError.
func IsContractViolation(err error) bool {
	if err == nil {
		return false
	}
	var contract *ContractError
	return As(err, &contract)
}

// FromPanic converts a recovered panic value into an error. Errors are
// returned as-is; anything else is formatted.
func FromPanic(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to decode queue")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
