// Package remindersd provides a long-running daemon that exposes task-list
// tools over JSON-RPC 2.0 (protocol revision 2025-03-26) on stdio.
package remindersd

import (
	"github.com/taskwire/remindersd/pkg/client"
	"github.com/taskwire/remindersd/pkg/protocol"
	"github.com/taskwire/remindersd/pkg/provider/localstore"
	"github.com/taskwire/remindersd/pkg/server"
	"github.com/taskwire/remindersd/pkg/transport"
)

// Version is the current release of remindersd
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewServer creates a protocol server over a transport and provider
	NewServer = server.New

	// NewClient creates a client for driving a remindersd instance
	NewClient = client.New

	// NewStdioTransport creates a newline-delimited stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// OpenStore opens the SQLite-backed task-list provider
	OpenStore = localstore.Open
)

// Tool names exposed by the daemon
const (
	ToolCreateReminder   = server.ToolCreateReminder
	ToolListReminders    = server.ToolListReminders
	ToolCompleteReminder = server.ToolCompleteReminder
	ToolGetLists         = server.ToolGetLists
)

// ProtocolRevision is the protocol-version marker returned by initialize
const ProtocolRevision = protocol.ProtocolRevision
