// Package server implements the remindersd protocol core: frame decoding,
// the session state machine, capability negotiation, and tool dispatch
// against a task-list provider.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rderrors "github.com/taskwire/remindersd/pkg/errors"
	"github.com/taskwire/remindersd/pkg/logging"
	"github.com/taskwire/remindersd/pkg/protocol"
	"github.com/taskwire/remindersd/pkg/provider"
	"github.com/taskwire/remindersd/pkg/transport"
)

// Default server identity advertised in the initialize result
const (
	ServerName    = "remindersd"
	ServerVersion = "1.0.0"
)

// Metrics receives dispatch observations. The concrete implementation lives
// in the observability package; a nil Metrics disables recording.
type Metrics interface {
	RecordRequest(method, status string, duration time.Duration)
	RecordToolCall(tool, status string)
	RequestStarted()
	RequestFinished()
}

// Server is the protocol core. It owns a transport, a provider, the session
// state machine, and the immutable tool registry.
type Server struct {
	transport transport.Transport
	provider  provider.Provider
	registry  *registry
	session   *session
	logger    logging.Logger
	metrics   Metrics
	tracer    trace.Tracer

	info protocol.ServerInfo

	// wg tracks in-flight request goroutines for drain on shutdown
	wg sync.WaitGroup

	mu       sync.Mutex
	draining bool
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the diagnostic logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics installs a dispatch metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracer installs an OpenTelemetry tracer for request spans
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithServerInfo overrides the advertised server identity
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = protocol.ServerInfo{Name: name, Version: version}
	}
}

// New creates a server bound to the given transport and provider
func New(t transport.Transport, p provider.Provider, opts ...Option) (*Server, error) {
	if t == nil {
		return nil, fmt.Errorf("server: nil transport")
	}
	if p == nil {
		return nil, fmt.Errorf("server: nil provider")
	}

	reg, err := newRegistry(p)
	if err != nil {
		return nil, err
	}

	s := &Server{
		transport: t,
		provider:  p,
		registry:  reg,
		session:   newSession(),
		logger:    logging.Nop(),
		info:      protocol.ServerInfo{Name: ServerName, Version: ServerVersion},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Session returns a snapshot of the session state, for health reporting
func (s *Server) Session() SessionSnapshot {
	return s.session.snapshot()
}

// Serve installs the frame handler and runs the transport read loop until
// the context is canceled or the input stream ends.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.baseCtx = ctx
	s.cancel = cancel
	s.mu.Unlock()

	s.transport.SetFrameHandler(s.handleFrame)
	s.transport.SetErrorHandler(func(err error) {
		s.logger.WithError(err).Warn("frame processing error")
	})

	s.logger.Info("server started",
		logging.String("component", "server"),
		logging.Int("tools", len(s.registry.order)))

	return s.transport.Start(ctx)
}

// Stop drains in-flight requests for at most grace, then stops the
// transport. Requests still running after the grace period are abandoned by
// canceling their context.
func (s *Server) Stop(ctx context.Context, grace time.Duration) error {
	s.mu.Lock()
	s.draining = true
	cancel := s.cancel
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all requests drained")
	case <-time.After(grace):
		s.logger.Warn("grace period elapsed with requests in flight")
	case <-ctx.Done():
	}

	if cancel != nil {
		cancel()
	}

	return s.transport.Stop(ctx)
}

// handleFrame classifies one frame and dispatches it. Runs on the transport
// read loop, so request work is pushed onto goroutines immediately.
func (s *Server) handleFrame(data []byte) {
	req, notif, err := protocol.DecodeMessage(data)
	if err != nil {
		s.rejectFrame(err)
		return
	}

	if notif != nil {
		s.handleNotification(notif)
		return
	}

	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		s.sendError(req.ID, rderrors.NotReady("draining"))
		return
	}
	ctx := s.baseCtx
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in request handler",
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())))
				s.sendError(req.ID, rderrors.Internal("dispatch",
					fmt.Errorf("panic: %v", r)))
			}
		}()
		s.dispatch(ctx, req)
	}()
}

// rejectFrame answers an undecodable frame. Parse errors carry no
// recoverable id and are answered with id null.
func (s *Server) rejectFrame(err error) {
	decErr, ok := err.(*protocol.DecodeError)
	if !ok {
		s.logger.WithError(err).Error("unexpected decode failure")
		return
	}

	s.logger.Warn("rejected frame",
		logging.Int("code", int(decErr.Code)),
		logging.String("reason", decErr.Reason))

	resp, err := protocol.NewErrorResponse(decErr.ID, decErr.Code,
		wireMessageFor(decErr.Code), map[string]string{"reason": decErr.Reason})
	if err != nil {
		s.logger.WithError(err).Error("building reject response")
		return
	}
	s.sendResponse(resp)
}

func wireMessageFor(code protocol.ErrorCode) string {
	switch code {
	case protocol.ParseError:
		return "Parse error"
	case protocol.InvalidRequest:
		return "Invalid Request"
	default:
		return "Internal error"
	}
}

// handleNotification processes a notification. Notifications never get a
// response, even when unknown or malformed.
func (s *Server) handleNotification(n *protocol.Notification) {
	switch n.Method {
	case protocol.NotificationInitialized:
		s.logger.Debug("client reported initialized")
	default:
		s.logger.Debug("ignoring notification",
			logging.String("method", n.Method))
	}
}

// dispatch routes one request, records metrics, and always sends exactly
// one response.
func (s *Server) dispatch(ctx context.Context, req *protocol.Request) {
	requestID := uuid.NewString()
	ctx = logging.ContextWithRequestID(ctx, requestID)
	log := s.logger.WithContext(ctx).WithFields(
		logging.String("method", req.Method))

	if s.metrics != nil {
		s.metrics.RequestStarted()
		defer s.metrics.RequestFinished()
	}

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "rpc "+req.Method,
			trace.WithAttributes(attribute.String("rpc.method", req.Method)))
		defer span.End()
	}

	start := time.Now()
	result, err := s.route(ctx, req)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordRequest(req.Method, status, elapsed)
	}

	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		log.WithError(err).Warn("request failed",
			logging.Duration("elapsed", elapsed))
		s.sendError(req.ID, err)
		return
	}

	log.Debug("request completed", logging.Duration("elapsed", elapsed))

	resp, respErr := protocol.NewResponse(req.ID, result)
	if respErr != nil {
		log.WithError(respErr).Error("building response")
		s.sendError(req.ID, rderrors.Internal("encode_response", respErr))
		return
	}
	s.sendResponse(resp)
}

// route executes the method behind a request
func (s *Server) route(ctx context.Context, req *protocol.Request) (interface{}, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, req.Params)
	case protocol.MethodListTools:
		return s.handleListTools()
	case protocol.MethodCallTool:
		return s.handleCallTool(ctx, req.Params)
	case protocol.MethodPing:
		return struct{}{}, nil
	default:
		return nil, rderrors.MethodNotFound(req.Method)
	}
}

// handleInitialize performs capability negotiation. It blocks until the
// provider resolves authorization; the session reaches Ready whether the
// decision was granted or denied. A repeated initialize re-queries the
// provider, so a client may recover from an earlier denial.
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, rderrors.InvalidParams(err.Error())
		}
	}

	clientName, clientVersion := "", ""
	if p.ClientInfo != nil {
		clientName, clientVersion = p.ClientInfo.Name, p.ClientInfo.Version
	}
	s.session.beginInitialize(clientName, clientVersion)

	s.logger.Info("initialize received",
		logging.String("client", clientName),
		logging.String("client_version", clientVersion))

	decision, err := s.provider.RequestAuthorization(ctx)
	if err != nil {
		// Authorization did not resolve; the session stays where it was so
		// a retry can succeed.
		s.logger.WithError(err).Error("authorization request failed")
		return nil, mapProviderError(err)
	}

	s.session.resolveAuthorization(decision)

	s.logger.Info("session ready",
		logging.String("authorization", decision.String()))

	return &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		ServerInfo:      s.info,
		Tools:           s.registry.descriptors(),
	}, nil
}

func (s *Server) handleListTools() (interface{}, error) {
	ready, _ := s.session.gate()
	if !ready {
		return nil, rderrors.NotReady(s.session.snapshot().Phase.String())
	}
	return &protocol.ListToolsResult{Tools: s.registry.descriptors()}, nil
}

// handleCallTool gates on session state, validates arguments against the
// tool schema, and runs the handler. Validation happens before the provider
// is touched, so malformed input never reaches the backend.
func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	ready, granted := s.session.gate()
	if !ready {
		return nil, rderrors.NotReady(s.session.snapshot().Phase.String())
	}
	if !granted {
		return nil, rderrors.AccessDenied()
	}

	if len(params) == 0 {
		return nil, rderrors.MissingParameter("name")
	}
	var call protocol.CallToolParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, rderrors.InvalidParams(err.Error())
	}
	if call.Name == "" {
		return nil, rderrors.MissingParameter("name")
	}

	t, ok := s.registry.lookup(call.Name)
	if !ok {
		if s.metrics != nil {
			s.metrics.RecordToolCall(call.Name, "unknown")
		}
		return nil, rderrors.MethodNotFound(call.Name)
	}

	if err := t.schema.Validate(call.Arguments); err != nil {
		if s.metrics != nil {
			s.metrics.RecordToolCall(call.Name, "invalid")
		}
		return nil, rderrors.InvalidParams(err.Error())
	}

	result, err := t.handler(ctx, call.Arguments)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordToolCall(call.Name, status)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// sendError translates err into a wire error response for id
func (s *Server) sendError(id interface{}, err error) {
	wireErr := rderrors.ToWireError(err)
	resp, buildErr := protocol.NewErrorResponse(id, wireErr.Code, wireErr.Message, wireErr.Data)
	if buildErr != nil {
		s.logger.WithError(buildErr).Error("building error response")
		return
	}
	s.sendResponse(resp)
}

// sendResponse serializes and writes one response frame
func (s *Server) sendResponse(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithError(err).Error("marshaling response")
		return
	}
	if err := s.transport.Send(data); err != nil {
		s.logger.WithError(err).Error("sending response")
	}
}
