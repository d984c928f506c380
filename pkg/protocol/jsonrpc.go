// Package protocol defines the JSON-RPC 2.0 message envelopes, the wire
// error codes, and the tool-facing payload types spoken by remindersd.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// JSONRPCVersion is the supported JSON-RPC version
	JSONRPCVersion = "2.0"

	// ProtocolRevision is the protocol-version marker returned by initialize
	ProtocolRevision = "2025-03-26"
)

// ErrorCode represents a JSON-RPC 2.0 error code
type ErrorCode int

// Standard error codes as per JSON-RPC 2.0 specification
const (
	ParseError     ErrorCode = -32700
	InvalidRequest ErrorCode = -32600
	MethodNotFound ErrorCode = -32601
	InvalidParams  ErrorCode = -32602
	InternalError  ErrorCode = -32603
)

// Domain-specific error codes in the application-reserved range.
// These are part of the wire contract and must stay stable.
const (
	// AccessDenied indicates the task-list provider refused or has not
	// granted access
	AccessDenied ErrorCode = -32001
	// NotFound indicates the referenced record does not exist
	NotFound ErrorCode = -32002
	// NotReady indicates a tool call arrived before initialization completed
	NotReady ErrorCode = -32003
	// ProviderUnavailable indicates the task-list backend is unreachable
	ProviderUnavailable ErrorCode = -32004
)

// ErrBothResultAndError is returned when marshalling a Response that
// carries both a result and an error, or neither.
var ErrBothResultAndError = errors.New("protocol: response must carry exactly one of result or error")

// JSONRPCMessage carries the version tag common to every envelope
type JSONRPCMessage struct {
	JSONRPC string `json:"jsonrpc"`
}

// Request represents a JSON-RPC 2.0 request. ID is a string or an
// integral number; requests without an ID are notifications and are
// modelled by Notification instead.
type Request struct {
	JSONRPCMessage
	ID     interface{}     `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest creates a new JSON-RPC 2.0 request
func NewRequest(id interface{}, method string, params interface{}) (*Request, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	return &Request{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Notification represents a JSON-RPC 2.0 notification
type Notification struct {
	JSONRPCMessage
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewNotification creates a new JSON-RPC 2.0 notification
func NewNotification(method string, params interface{}) (*Notification, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}

	return &Notification{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		Method:         method,
		Params:         paramsJSON,
	}, nil
}

// Response represents a JSON-RPC 2.0 response. Exactly one of Result and
// Error is populated; MarshalJSON refuses to serialize anything else, so a
// malformed response can never reach the wire. Use NewResponse and
// NewErrorResponse rather than building the struct by hand.
type Response struct {
	JSONRPCMessage
	ID     interface{}     `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// NewResponse creates a new JSON-RPC 2.0 success response. A nil result is
// encoded as JSON null so that the result member is always present.
func NewResponse(id interface{}, result interface{}) (*Response, error) {
	resultJSON := json.RawMessage("null")
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Result:         resultJSON,
	}, nil
}

// NewErrorResponse creates a new JSON-RPC 2.0 error response
func NewErrorResponse(id interface{}, code ErrorCode, message string, data interface{}) (*Response, error) {
	var dataJSON interface{}
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal error data: %w", err)
		}
		dataJSON = json.RawMessage(dataBytes)
	}

	return &Response{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: JSONRPCVersion},
		ID:             id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    dataJSON,
		},
	}, nil
}

// MarshalJSON enforces the result/error exclusivity invariant at the last
// possible moment before bytes hit the transport.
func (r *Response) MarshalJSON() ([]byte, error) {
	if (r.Result == nil) == (r.Error == nil) {
		return nil, ErrBothResultAndError
	}
	type responseAlias Response
	return json.Marshal((*responseAlias)(r))
}

// Error represents a JSON-RPC 2.0 error object
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface so a wire error can travel through
// ordinary error returns.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}
