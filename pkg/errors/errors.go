// Package errors provides custom error types for the sarral-scan event subsystem.
// These errors enable programmatic error checking across the stream client,
// the event router and the development stream server.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// As and Is re-export the standard library helpers so callers need one import.
var (
	As = errors.As
	Is = errors.Is
)

// Common sentinel errors
var (
	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoCredential indicates that no stored credential is available
	ErrNoCredential = errors.New("no credential")

	// ErrUnauthorized indicates that a credential was rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidListener indicates a nil or non-comparable listener
	ErrInvalidListener = errors.New("invalid listener")

	// ErrUndeclaredType indicates an event type outside the allow-list
	ErrUndeclaredType = errors.New("undeclared event type")

	// ErrTransport indicates a stream transport failure
	ErrTransport = errors.New("transport failure")

	// ErrClosed indicates use of a closed component
	ErrClosed = errors.New("closed")
)

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// TransportError represents a failure of the stream transport: a refused
// dial, a non-2xx response, an unexpected content type or a dropped socket.
type TransportError struct {
	Transport  string // "sse", "websocket"
	Endpoint   string // credential-free endpoint
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transport error from %s (status %d): %s", e.Transport, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s transport error from %s: %s", e.Transport, e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrUnauthorized
	}
	return false
}

// NewTransportError creates a new TransportError
func NewTransportError(transport, endpoint string, statusCode int, message string, err error) *TransportError {
	return &TransportError{
		Transport:  transport,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "sse", "yaml"
	Source  string // event type, file or frame origin
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// ListenerError represents a listener that panicked or failed while
// handling a dispatched event.
type ListenerError struct {
	EventType string
	Listener  string
	Recovered any
	Err       error
}

// Error implements the error interface
func (e *ListenerError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("listener %s panicked handling %s: %v", e.Listener, e.EventType, e.Recovered)
	}
	return fmt.Sprintf("listener %s failed handling %s: %v", e.Listener, e.EventType, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// NewListenerError creates a new ListenerError
func NewListenerError(eventType, listener string, recovered any, err error) *ListenerError {
	return &ListenerError{
		EventType: eventType,
		Listener:  listener,
		Recovered: recovered,
		Err:       err,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents an authentication/authorization error
type AuthenticationError struct {
	Subject string
	Method  string // "jwt", "query_token", "bearer"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Subject, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(subject, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Subject: subject,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "start", "stop", "dial"
	Resource  string // "client", "stream", "server", "token"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNoCredential checks if an error reports a missing credential
func IsNoCredential(err error) bool {
	return errors.Is(err, ErrNoCredential)
}

// IsUnauthorized checks if an error reports a rejected credential
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Message: err.Error(), Err: err}
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}
