// Package apperr defines the error taxonomy shared by the scheduling,
// campaign and automation engines. Callers branch with errors.As.
package apperr

import "fmt"

// ValidationError reports malformed or missing input caught before any send
// begins (empty recipient list, scheduled item without a template reference).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Validation builds a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent template, account or campaign for the owner.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// NotFound builds a NotFoundError.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// TransportError reports a mail send or fetch failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport " + e.Op + ": " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for the given operation.
func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// ConfigError reports a credential decryption failure or a malformed
// recurrence pattern.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "config: " + e.Msg + ": " + e.Err.Error()
	}
	return "config: " + e.Msg
}
func (e *ConfigError) Unwrap() error { return e.Err }

// Config builds a ConfigError, optionally wrapping a cause.
func Config(msg string, err error) error {
	return &ConfigError{Msg: msg, Err: err}
}

// PersistenceError reports a work-store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError for the given operation.
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
