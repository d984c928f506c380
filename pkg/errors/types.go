// Package errors provides structured error handling for remindersd.
// It defines error types that map onto the stable JSON-RPC error codes and
// carry enough context for diagnostics without leaking backend detail to
// the wire.
package errors

import (
	"fmt"
	"time"
)

// Category classifies an error for propagation policy decisions
type Category string

const (
	// CategoryTransport errors are connection-fatal: the frame stream is
	// corrupt and no per-request recovery is possible.
	CategoryTransport Category = "transport"
	// CategoryProtocol errors are malformed envelopes, recoverable per request
	CategoryProtocol Category = "protocol"
	// CategoryValidation errors are schema mismatches, recoverable per request
	CategoryValidation Category = "validation"
	// CategoryAuthorization errors signal provider access was not granted
	CategoryAuthorization Category = "authorization"
	// CategoryProvider errors come from the task-list backend
	CategoryProvider Category = "provider"
	// CategoryInternal errors are invariant violations; logged, never fatal
	CategoryInternal Category = "internal"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where and when an error occurred
type Context struct {
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RPCError is the interface implemented by all remindersd errors
type RPCError interface {
	error

	// Code returns the JSON-RPC error code
	Code() int

	// Message returns the human-readable, wire-safe error message
	Message() string

	// Details returns the technical description kept out of responses
	Details() string

	// Data returns structured error data for the wire, if any
	Data() interface{}

	// Category returns the taxonomy category
	Category() Category

	// Severity returns the severity level
	Severity() Severity

	// Context returns the error context information
	Context() *Context

	// WithContext returns a copy of the error with the provided context
	WithContext(ctx *Context) RPCError

	// WithDetail returns a copy of the error with additional detail
	WithDetail(detail string) RPCError

	// WithData returns a copy of the error with structured wire data
	WithData(data interface{}) RPCError

	// Unwrap returns the underlying cause for error chain traversal
	Unwrap() error
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.message, e.details)
	}
	return e.message
}

func (e *baseError) Code() int           { return e.code }
func (e *baseError) Message() string     { return e.message }
func (e *baseError) Details() string     { return e.details }
func (e *baseError) Data() interface{}   { return e.data }
func (e *baseError) Category() Category  { return e.category }
func (e *baseError) Severity() Severity  { return e.severity }
func (e *baseError) Context() *Context   { return e.context }
func (e *baseError) Unwrap() error       { return e.cause }

func (e *baseError) WithContext(ctx *Context) RPCError {
	newErr := *e
	newErr.context = ctx
	return &newErr
}

func (e *baseError) WithDetail(detail string) RPCError {
	newErr := *e
	if newErr.details != "" {
		newErr.details = fmt.Sprintf("%s; %s", newErr.details, detail)
	} else {
		newErr.details = detail
	}
	return &newErr
}

func (e *baseError) WithData(data interface{}) RPCError {
	newErr := *e
	newErr.data = data
	return &newErr
}

// New creates a new RPCError with the specified parameters
func New(code int, message string, category Category, severity Severity) RPCError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// Newf creates a new RPCError with a formatted message
func Newf(code int, category Category, severity Severity, format string, args ...interface{}) RPCError {
	return &baseError{
		code:     code,
		message:  fmt.Sprintf(format, args...),
		category: category,
		severity: severity,
		context:  &Context{Timestamp: time.Now()},
	}
}

// Wrap wraps an existing error as an RPCError
func Wrap(err error, code int, message string, category Category, severity Severity) RPCError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  &Context{Timestamp: time.Now()},
	}
}

// AsRPCError extracts an RPCError from any error
func AsRPCError(err error) (RPCError, bool) {
	if err == nil {
		return nil, false
	}
	rpcErr, ok := err.(RPCError)
	return rpcErr, ok
}

// IsCategory checks whether an error belongs to a taxonomy category
func IsCategory(err error, category Category) bool {
	if rpcErr, ok := AsRPCError(err); ok {
		return rpcErr.Category() == category
	}
	return false
}

// IsCode checks whether an error carries a specific wire code
func IsCode(err error, code int) bool {
	if rpcErr, ok := AsRPCError(err); ok {
		return rpcErr.Code() == code
	}
	return false
}
