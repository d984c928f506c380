package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	rderrors "github.com/taskwire/remindersd/pkg/errors"
	"github.com/taskwire/remindersd/pkg/logging"
)

// StdioTransport implements Transport over standard input and output.
// Stdin carries requests, stdout carries responses; stderr is reserved for
// diagnostics and never receives protocol bytes.
type StdioTransport struct {
	reader       io.Reader
	writer       io.Writer
	rawWriter    *bufio.Writer // guarded by mutex
	maxFrameSize int
	logger       logging.Logger

	frameHandler FrameHandler
	errorHandler ErrorHandler
	mutex        sync.RWMutex
	done         chan struct{}
	stopOnce     sync.Once
}

// StdioOption configures a StdioTransport
type StdioOption func(*StdioTransport)

// WithMaxFrameSize overrides the frame-size bound
func WithMaxFrameSize(size int) StdioOption {
	return func(t *StdioTransport) {
		if size > 0 {
			t.maxFrameSize = size
		}
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger logging.Logger) StdioOption {
	return func(t *StdioTransport) {
		t.logger = logger
	}
}

// NewStdioTransport creates a stdio transport. Nil reader/writer default to
// os.Stdin/os.Stdout; tests pass pipes or buffers.
func NewStdioTransport(reader io.Reader, writer io.Writer, opts ...StdioOption) *StdioTransport {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	t := &StdioTransport{
		reader:       reader,
		writer:       writer,
		rawWriter:    bufio.NewWriter(writer),
		maxFrameSize: DefaultMaxFrameSize,
		logger:       logging.Nop(),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// SetFrameHandler installs the handler for complete incoming frames
func (t *StdioTransport) SetFrameHandler(handler FrameHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.frameHandler = handler
}

// SetErrorHandler installs the handler for non-fatal errors
func (t *StdioTransport) SetErrorHandler(handler ErrorHandler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.errorHandler = handler
}

// Start reads frames until the context is canceled, the stream ends, or
// framing fails. Framing failures are connection-fatal and returned.
func (t *StdioTransport) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	scanner := bufio.NewScanner(t.reader)
	initial := 64 * 1024
	if t.maxFrameSize < initial {
		initial = t.maxFrameSize
	}
	scanner.Buffer(make([]byte, initial), t.maxFrameSize)

	scannerDone := make(chan struct{})

	g.Go(func() error {
		defer close(scannerDone)

		for scanner.Scan() {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-t.done:
				return nil
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			// Copy: the scanner reuses its buffer on the next Scan
			data := make([]byte, len(line))
			copy(data, line)

			t.dispatchFrame(data)
		}

		if err := scanner.Err(); err != nil {
			// A reader closed by shutdown is not a failure
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-t.done:
				return nil
			default:
			}
			if err == bufio.ErrTooLong {
				return rderrors.TransportError("scan_input", ErrFrameTooLarge)
			}
			if err != io.EOF {
				return rderrors.TransportError("scan_input", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			t.closeReader()
			return gctx.Err()
		case <-t.done:
			t.closeReader()
			return nil
		case <-scannerDone:
			return nil
		}
	})

	return g.Wait()
}

// dispatchFrame hands one frame to the handler with panic isolation so a
// misbehaving handler cannot kill the read loop.
func (t *StdioTransport) dispatchFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in frame handler",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			t.handleError(fmt.Errorf("panic processing frame: %v", r))
		}
	}()

	t.mutex.RLock()
	handler := t.frameHandler
	t.mutex.RUnlock()

	if handler == nil {
		t.handleError(fmt.Errorf("frame received with no handler installed"))
		return
	}

	handler(data)
}

// Send writes one frame followed by a newline and flushes. The mutex
// serializes concurrent senders so whole messages are emitted atomically.
func (t *StdioTransport) Send(data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.rawWriter == nil {
		return ErrNotStarted
	}

	if _, err := t.rawWriter.Write(data); err != nil {
		return rderrors.TransportError("write_frame", err)
	}
	if err := t.rawWriter.WriteByte('\n'); err != nil {
		return rderrors.TransportError("write_newline", err)
	}
	if err := t.rawWriter.Flush(); err != nil {
		return rderrors.TransportError("flush_output", err)
	}

	return nil
}

// Stop halts the read loop and flushes buffered output
func (t *StdioTransport) Stop(ctx context.Context) error {
	var flushErr error

	t.stopOnce.Do(func() {
		close(t.done)
		t.closeReader()

		t.mutex.Lock()
		if t.rawWriter != nil {
			flushErr = t.rawWriter.Flush()
		}
		t.errorHandler = nil
		t.mutex.Unlock()
	})

	if flushErr != nil {
		return rderrors.TransportError("flush_on_stop", flushErr)
	}
	return nil
}

// closeReader unblocks a pending Scan when the reader is closable
func (t *StdioTransport) closeReader() {
	if closer, ok := t.reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

func (t *StdioTransport) handleError(err error) {
	t.mutex.RLock()
	handler := t.errorHandler
	t.mutex.RUnlock()

	if handler != nil {
		handler(err)
	}
}
