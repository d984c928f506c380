// Package client provides a Go client for remindersd, used by integration
// tests and tooling that drives the daemon over a transport.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskwire/remindersd/pkg/protocol"
	"github.com/taskwire/remindersd/pkg/provider"
	"github.com/taskwire/remindersd/pkg/transport"
)

// DefaultRequestTimeout bounds a single round trip when the caller's
// context carries no deadline.
const DefaultRequestTimeout = 30 * time.Second

// Client speaks the remindersd wire protocol over a Transport. It
// correlates responses to requests by id and is safe for concurrent use.
type Client struct {
	transport transport.Transport
	timeout   time.Duration

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *protocol.Response
	closed  bool

	serverInfo protocol.ServerInfo
	tools      []protocol.ToolDescriptor
}

// Option configures a Client
type Option func(*Client)

// WithRequestTimeout overrides the default per-request timeout
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client over the given transport. The caller starts the
// transport; Start on the client only installs the frame handler.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		timeout:   DefaultRequestTimeout,
		pending:   make(map[int64]chan *protocol.Response),
	}
	for _, opt := range opts {
		opt(c)
	}

	t.SetFrameHandler(c.handleFrame)
	return c
}

// handleFrame routes one incoming frame to the waiting caller
func (c *Client) handleFrame(data []byte) {
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}

	id, ok := responseID(resp.ID)
	if !ok {
		// id null: a frame we sent was rejected before decoding; no
		// caller can be matched
		return
	}

	c.mu.Lock()
	ch := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ch != nil {
		ch <- &resp
	}
}

// responseID normalizes the decoded id to the int64 the client issued
func responseID(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// call performs one request round trip
func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := c.nextID.Add(1)
	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	ch := make(chan *protocol.Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.transport.Send(data); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("sending request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case resp := <-ch:
		if resp == nil {
			return fmt.Errorf("client closed while waiting for response")
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decoding result: %w", err)
			}
		}
		return nil
	}
}

// notify sends a notification; no response is expected
func (c *Client) notify(method string, params interface{}) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("building notification: %w", err)
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	return c.transport.Send(data)
}

// Initialize negotiates capabilities with the server and records the
// advertised tool set. It blocks while the server resolves provider
// authorization, then acknowledges with the initialized notification.
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolRevision,
		ClientInfo:      &protocol.ClientInfo{Name: clientName, Version: clientVersion},
	}

	var result protocol.InitializeResult
	if err := c.call(ctx, protocol.MethodInitialize, &params, &result); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.tools = result.Tools
	c.mu.Unlock()

	if err := c.notify(protocol.NotificationInitialized, nil); err != nil {
		return nil, err
	}

	return &result, nil
}

// ServerInfo returns the identity advertised by the last initialize
func (c *Client) ServerInfo() protocol.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// ListTools fetches the current tool descriptors
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	var result protocol.ListToolsResult
	if err := c.call(ctx, protocol.MethodListTools, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool by name with raw arguments
func (c *Client) CallTool(ctx context.Context, name string, args interface{}, result interface{}) error {
	var rawArgs json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encoding arguments: %w", err)
		}
		rawArgs = data
	}

	params := protocol.CallToolParams{Name: name, Arguments: rawArgs}
	return c.call(ctx, protocol.MethodCallTool, &params, result)
}

// Ping checks liveness
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, protocol.MethodPing, nil, nil)
}

// CreateReminder creates a reminder and returns its id
func (c *Client) CreateReminder(ctx context.Context, title, notes string, dueDate *time.Time) (string, error) {
	args := map[string]interface{}{"title": title}
	if notes != "" {
		args["notes"] = notes
	}
	if dueDate != nil {
		args["dueDate"] = dueDate.Format(time.RFC3339)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.CallTool(ctx, "create_reminder", args, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// ListReminders fetches reminders from a list; empty listName means the
// default list.
func (c *Client) ListReminders(ctx context.Context, listName string, includeCompleted bool) ([]provider.Reminder, error) {
	args := map[string]interface{}{}
	if listName != "" {
		args["listName"] = listName
	}
	if includeCompleted {
		args["includeCompleted"] = true
	}

	var result struct {
		Reminders []provider.Reminder `json:"reminders"`
	}
	if err := c.CallTool(ctx, "list_reminders", args, &result); err != nil {
		return nil, err
	}
	return result.Reminders, nil
}

// CompleteReminder marks a reminder done by id
func (c *Client) CompleteReminder(ctx context.Context, id string) error {
	args := map[string]interface{}{"id": id}

	var result struct {
		Success bool `json:"success"`
	}
	return c.CallTool(ctx, "complete_reminder", args, &result)
}

// GetLists fetches all reminder lists
func (c *Client) GetLists(ctx context.Context) ([]provider.ReminderList, error) {
	var result struct {
		Lists []provider.ReminderList `json:"lists"`
	}
	if err := c.CallTool(ctx, "get_lists", nil, &result); err != nil {
		return nil, err
	}
	return result.Lists, nil
}

// Close abandons pending calls and stops accepting new ones. The transport
// is owned by the caller and is not stopped here.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
