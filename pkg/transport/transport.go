// Package transport provides the byte-stream transport for remindersd.
//
// Framing is newline-delimited: one complete JSON document per line. This
// is the simpler of the two common stdio framings and the one every client
// in the wild speaks; content-length framing was deliberately not chosen.
// Partial reads are buffered by the scanner; a frame is surfaced only when
// a complete line is assembled. A line that exceeds the configured maximum
// frame size corrupts the stream and fails the connection with a transport
// error rather than a JSON-RPC error, since no well-formed request exists
// to correlate a response to.
package transport

import (
	"context"
	"errors"
)

// DefaultMaxFrameSize bounds a single frame. Oversized lines fail the
// connection.
const DefaultMaxFrameSize = 1 << 20 // 1 MiB

// ErrFrameTooLarge reports a line that exceeded the frame-size bound.
var ErrFrameTooLarge = errors.New("transport: frame exceeds maximum size")

// ErrNotStarted is returned by Send before the transport is usable.
var ErrNotStarted = errors.New("transport: not initialized")

// FrameHandler processes one complete incoming frame. Handlers are invoked
// sequentially from the read loop and must not block; long work belongs in
// a goroutine spawned by the handler.
type FrameHandler func(data []byte)

// ErrorHandler observes non-fatal processing errors.
type ErrorHandler func(err error)

// Transport moves whole frames between remindersd and its peer.
type Transport interface {
	// Start begins the read loop and blocks until the context is
	// canceled, the input stream ends, or framing fails.
	Start(ctx context.Context) error

	// Send writes one complete frame. Concurrent calls are serialized so
	// partial messages never interleave on the output stream.
	Send(data []byte) error

	// SetFrameHandler installs the handler for complete incoming frames.
	// Must be called before Start.
	SetFrameHandler(handler FrameHandler)

	// SetErrorHandler installs the handler for non-fatal errors.
	SetErrorHandler(handler ErrorHandler)

	// Stop halts the transport and flushes buffered output.
	Stop(ctx context.Context) error
}
