package protocol

import (
	"encoding/json"
)

// Reserved method names
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
	MethodPing       = "ping"

	// NotificationInitialized is sent by clients after they have processed
	// the initialize result. It carries no payload and expects no response.
	NotificationInitialized = "notifications/initialized"
)

// ToolDescriptor advertises one callable operation: its name, a
// human-readable description, and the JSON schema its arguments must
// satisfy. Descriptors are immutable after registration.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ClientInfo identifies the connecting client
type ClientInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// ServerInfo identifies this server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines the parameters of the initialize request.
// All fields are optional; initialize requires no params.
type InitializeParams struct {
	ProtocolVersion string      `json:"protocolVersion,omitempty"`
	ClientInfo      *ClientInfo `json:"clientInfo,omitempty"`
}

// InitializeResult is returned once capability negotiation completes. It
// carries the full immutable tool set and the protocol-version marker.
type InitializeResult struct {
	ProtocolVersion string           `json:"protocolVersion"`
	ServerInfo      ServerInfo       `json:"serverInfo"`
	Tools           []ToolDescriptor `json:"tools"`
}

// ListToolsResult defines the response for tools/list
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolParams defines parameters for tools/call
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}
