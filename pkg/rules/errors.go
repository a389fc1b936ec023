package rules

import (
	"fmt"
	"time"
)

// InvalidRelationError indicates an unsupported relational operator token.
type InvalidRelationError struct {
	Token string
}

// Error returns the error message.
func (e *InvalidRelationError) Error() string {
	return fmt.Sprintf("unsupported relation %q (want one of >, >=, <, <=, ==, !=)", e.Token)
}

// MalformedResultError indicates a detector returned a result the executor
// cannot interpret (nil, or no usable numeric score).
type MalformedResultError struct {
	PluginKey string
	Reason    string
}

// Error returns the error message.
func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("plugin %q returned a malformed result: %s", e.PluginKey, e.Reason)
}

// ExecutionError indicates the detector call itself failed: an error return,
// a panic, or a timeout.
type ExecutionError struct {
	PluginKey string
	Cause     error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("plugin %q execution failed: %v", e.PluginKey, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a detector call exceeded its per-rule timeout.
type TimeoutError struct {
	PluginKey string
	Timeout   time.Duration
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("plugin %q timed out after %v", e.PluginKey, e.Timeout)
}
