package errors

import (
	"fmt"

	"github.com/taskwire/remindersd/pkg/protocol"
)

// Wire error codes. Standard JSON-RPC codes first, then the
// application-reserved domain codes. Both sets are frozen.
const (
	CodeParseError     = int(protocol.ParseError)
	CodeInvalidRequest = int(protocol.InvalidRequest)
	CodeMethodNotFound = int(protocol.MethodNotFound)
	CodeInvalidParams  = int(protocol.InvalidParams)
	CodeInternalError  = int(protocol.InternalError)

	CodeAccessDenied        = int(protocol.AccessDenied)
	CodeNotFound            = int(protocol.NotFound)
	CodeNotReady            = int(protocol.NotReady)
	CodeProviderUnavailable = int(protocol.ProviderUnavailable)
)

// ParseError reports a frame that was not valid JSON
func ParseError(reason string) RPCError {
	return New(CodeParseError, "Parse error", CategoryProtocol, SeverityError).
		WithDetail(reason)
}

// InvalidRequest reports a well-formed frame that is not a valid request envelope
func InvalidRequest(reason string) RPCError {
	return New(CodeInvalidRequest, "Invalid Request", CategoryProtocol, SeverityError).
		WithDetail(reason)
}

// MethodNotFound reports an unknown method name
func MethodNotFound(method string) RPCError {
	return Newf(CodeMethodNotFound, CategoryProtocol, SeverityError,
		"Method not found: %s", method)
}

// InvalidParams reports arguments that failed schema validation. The
// detail is wire-safe and included as error data so callers can repair
// their request.
func InvalidParams(reason string) RPCError {
	return New(CodeInvalidParams, "Invalid params", CategoryValidation, SeverityError).
		WithData(map[string]string{"reason": reason}).
		WithDetail(reason)
}

// MissingParameter reports a required argument that was absent or empty
func MissingParameter(name string) RPCError {
	return InvalidParams(fmt.Sprintf("required parameter %q is missing or empty", name))
}

// Internal reports an invariant violation. The cause is logged but never
// serialized to the wire.
func Internal(operation string, cause error) RPCError {
	return Wrap(cause, CodeInternalError, "Internal error",
		CategoryInternal, SeverityCritical).
		WithContext(&Context{Operation: operation})
}

// NotReady reports a tool call that arrived before the session reached Ready
func NotReady(phase string) RPCError {
	return New(CodeNotReady, "Server not ready", CategoryAuthorization, SeverityWarning).
		WithData(map[string]string{"phase": phase}).
		WithDetail(fmt.Sprintf("session phase is %s", phase))
}

// AccessDenied reports that provider authorization was refused
func AccessDenied() RPCError {
	return New(CodeAccessDenied, "Access to the task-list store was denied",
		CategoryAuthorization, SeverityError)
}

// NotFound reports a record id that did not resolve
func NotFound(id string) RPCError {
	return New(CodeNotFound, "Reminder not found", CategoryProvider, SeverityError).
		WithData(map[string]string{"id": id}).
		WithDetail(fmt.Sprintf("no record with id %q", id))
}

// ListNotFound reports a list name that did not resolve
func ListNotFound(name string) RPCError {
	return New(CodeNotFound, "List not found", CategoryProvider, SeverityError).
		WithData(map[string]string{"listName": name}).
		WithDetail(fmt.Sprintf("no list named %q", name))
}

// ProviderUnavailable reports an unreachable task-list backend
func ProviderUnavailable(cause error) RPCError {
	return Wrap(cause, CodeProviderUnavailable, "Task-list store unavailable",
		CategoryProvider, SeverityCritical)
}

// TransportError reports a connection-level failure; these are fatal to
// the stream, never answered with a JSON-RPC error.
func TransportError(operation string, cause error) RPCError {
	return Wrap(cause, CodeInternalError, "transport failure",
		CategoryTransport, SeverityCritical).
		WithContext(&Context{Component: "transport", Operation: operation})
}

// ToWireError translates any error into the protocol error object placed in
// a response. Errors that are not RPCErrors collapse into a generic
// Internal Error so backend text never leaks to clients untranslated.
func ToWireError(err error) *protocol.Error {
	rpcErr, ok := AsRPCError(err)
	if !ok {
		return &protocol.Error{
			Code:    protocol.InternalError,
			Message: "Internal error",
		}
	}
	return &protocol.Error{
		Code:    protocol.ErrorCode(rpcErr.Code()),
		Message: rpcErr.Message(),
		Data:    rpcErr.Data(),
	}
}
