// Package errors provides error types and handling for the frontier.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Config represents configuration errors: malformed source lists,
	// invalid snapshots, state inconsistent with loaded requests. Fatal.
	Config
	// Usage represents programmer mistakes: completing or reclaiming a key
	// that is not in flight, double reclaim. Fatal.
	Usage
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// Persistence represents state store read/write failures.
	Persistence
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Config:
		return "config"
	case Usage:
		return "usage"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case Persistence:
		return "persistence"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTransient returns whether errors of this type may succeed on retry.
// Config and usage errors never do; a persist write can be retried on the
// next save signal.
func (t ErrorType) IsTransient() bool {
	switch t {
	case Network, Timeout, Persistence:
		return true
	default:
		return false
	}
}

// QueueError represents a categorized frontier error.
type QueueError struct {
	Type      ErrorType
	Key       string // offending request key or persist key, if any
	Op        string
	Message   string
	Cause     error
	Transient bool
}

// Error implements the error interface.
func (e *QueueError) Error() string {
	target := e.Key
	if target == "" {
		target = "<none>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %q: %s (caused by: %v)",
			e.Type.String(), e.Op, target, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %q: %s",
		e.Type.String(), e.Op, target, e.Message)
}

// Unwrap returns the underlying error.
func (e *QueueError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *QueueError) Is(target error) bool {
	t, ok := target.(*QueueError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new QueueError.
func New(errType ErrorType, key, op, message string, cause error) *QueueError {
	return &QueueError{
		Type:      errType,
		Key:       key,
		Op:        op,
		Message:   message,
		Cause:     cause,
		Transient: errType.IsTransient(),
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(key, op, message string) *QueueError {
	return New(Config, key, op, message, nil)
}

// NewConfigErrorf creates a configuration error with a formatted message.
func NewConfigErrorf(key, op, format string, args ...interface{}) *QueueError {
	return New(Config, key, op, fmt.Sprintf(format, args...), nil)
}

// NewUsageError creates a usage error.
func NewUsageError(key, op, message string) *QueueError {
	return New(Usage, key, op, message, nil)
}

// NewNetworkError creates a network error.
func NewNetworkError(target, op string, cause error) *QueueError {
	return New(Network, target, op, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(target, op string, cause error) *QueueError {
	return New(Timeout, target, op, "request timed out", cause)
}

// NewPersistError creates a persistence error.
func NewPersistError(key, op string, cause error) *QueueError {
	return New(Persistence, key, op, "state store operation failed", cause)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(target, op string) *QueueError {
	err := New(Cancelled, target, op, "operation cancelled", nil)
	err.Transient = false
	return err
}

// Categorize determines the error type from a generic transport error.
func Categorize(err error, target string) *QueueError {
	if err == nil {
		return nil
	}

	// Already a QueueError
	var qerr *QueueError
	if errors.As(err, &qerr) {
		return qerr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(target, "fetch")
	}

	if isTimeout(err) {
		return NewTimeoutError(target, "fetch", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(target, "fetch", err)
	}

	return New(Unknown, target, "fetch", err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp")
}

// IsTransient checks if an error may succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var qerr *QueueError
	if errors.As(err, &qerr) {
		return qerr.Transient
	}

	return isTimeout(err) || isNetworkError(err)
}

// IsConfig checks if an error is a configuration error.
func IsConfig(err error) bool {
	var qerr *QueueError
	if errors.As(err, &qerr) {
		return qerr.Type == Config
	}
	return false
}

// IsUsage checks if an error is a usage error.
func IsUsage(err error) bool {
	var qerr *QueueError
	if errors.As(err, &qerr) {
		return qerr.Type == Usage
	}
	return false
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var qerr *QueueError
	if errors.As(err, &qerr) {
		return qerr.Type
	}
	return Unknown
}
