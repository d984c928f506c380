package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rderrors "github.com/taskwire/remindersd/pkg/errors"
	"github.com/taskwire/remindersd/pkg/protocol"
	"github.com/taskwire/remindersd/pkg/provider"
	"github.com/taskwire/remindersd/pkg/schema"
)

// Tool names. Frozen: they are the wire contract clients dispatch on.
const (
	ToolCreateReminder   = "create_reminder"
	ToolListReminders    = "list_reminders"
	ToolCompleteReminder = "complete_reminder"
	ToolGetLists         = "get_lists"
)

// toolHandler executes one validated tool call. Arguments arrive
// schema-validated but still raw; the handler does the typed decode.
type toolHandler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// tool binds a descriptor, its validation schema, and its handler
type tool struct {
	descriptor protocol.ToolDescriptor
	schema     *schema.Schema
	handler    toolHandler
}

// registry holds the immutable tool set. Built once at server construction;
// never mutated afterwards, so lookups need no lock.
type registry struct {
	tools map[string]*tool
	order []string
}

func (r *registry) descriptors() []protocol.ToolDescriptor {
	out := make([]protocol.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].descriptor)
	}
	return out
}

func (r *registry) lookup(name string) (*tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// createReminderArgs are the arguments of create_reminder
type createReminderArgs struct {
	Title   string `json:"title"`
	Notes   string `json:"notes,omitempty"`
	DueDate string `json:"dueDate,omitempty"`
}

// listRemindersArgs are the arguments of list_reminders
type listRemindersArgs struct {
	ListName         string `json:"listName,omitempty"`
	IncludeCompleted bool   `json:"includeCompleted,omitempty"`
}

// completeReminderArgs are the arguments of complete_reminder
type completeReminderArgs struct {
	ID string `json:"id"`
}

// createReminderResult carries the id of the new record
type createReminderResult struct {
	ID string `json:"id"`
}

// listRemindersResult carries the matching reminders
type listRemindersResult struct {
	Reminders []provider.Reminder `json:"reminders"`
}

// completeReminderResult reports completion. Success is always true in a
// success response; failures travel as wire errors instead.
type completeReminderResult struct {
	Success bool `json:"success"`
}

// getListsResult carries all reminder lists
type getListsResult struct {
	Lists []provider.ReminderList `json:"lists"`
}

// newRegistry builds the four-tool registry against the given provider
func newRegistry(p provider.Provider) (*registry, error) {
	r := &registry{tools: make(map[string]*tool)}

	entries := []struct {
		name        string
		description string
		schema      *schema.Schema
		handler     toolHandler
	}{
		{
			name:        ToolCreateReminder,
			description: "Create a new reminder on the default list",
			schema: &schema.Schema{
				Type: schema.TypeObject,
				Properties: map[string]*schema.Schema{
					"title": {
						Type:        schema.TypeString,
						Description: "Reminder title",
					},
					"notes": {
						Type:        schema.TypeString,
						Description: "Free-form notes attached to the reminder",
					},
					"dueDate": {
						Type:        schema.TypeString,
						Format:      "date-time",
						Description: "Due date in RFC 3339 form",
					},
				},
				Required: []string{"title"},
			},
			handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				return handleCreateReminder(ctx, p, args)
			},
		},
		{
			name:        ToolListReminders,
			description: "List reminders, optionally from a named list and including completed items",
			schema: &schema.Schema{
				Type: schema.TypeObject,
				Properties: map[string]*schema.Schema{
					"listName": {
						Type:        schema.TypeString,
						Description: "List to read; the default list when omitted",
					},
					"includeCompleted": {
						Type:        schema.TypeBoolean,
						Default:     false,
						Description: "Include completed reminders",
					},
				},
			},
			handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				return handleListReminders(ctx, p, args)
			},
		},
		{
			name:        ToolCompleteReminder,
			description: "Mark a reminder as completed by id",
			schema: &schema.Schema{
				Type: schema.TypeObject,
				Properties: map[string]*schema.Schema{
					"id": {
						Type:        schema.TypeString,
						Description: "Identifier returned by create_reminder or list_reminders",
					},
				},
				Required: []string{"id"},
			},
			handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				return handleCompleteReminder(ctx, p, args)
			},
		},
		{
			name:        ToolGetLists,
			description: "List all reminder lists",
			schema: &schema.Schema{
				Type:       schema.TypeObject,
				Properties: map[string]*schema.Schema{},
			},
			handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
				return handleGetLists(ctx, p)
			},
		},
	}

	for _, e := range entries {
		raw, err := e.schema.MarshalRaw()
		if err != nil {
			return nil, fmt.Errorf("building schema for %s: %w", e.name, err)
		}
		r.tools[e.name] = &tool{
			descriptor: protocol.ToolDescriptor{
				Name:        e.name,
				Description: e.description,
				InputSchema: raw,
			},
			schema:  e.schema,
			handler: e.handler,
		}
		r.order = append(r.order, e.name)
	}

	return r, nil
}

func handleCreateReminder(ctx context.Context, p provider.Provider, raw json.RawMessage) (interface{}, error) {
	var args createReminderArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Title == "" {
		return nil, rderrors.MissingParameter("title")
	}

	var due *time.Time
	if args.DueDate != "" {
		t, err := time.Parse(time.RFC3339, args.DueDate)
		if err != nil {
			return nil, rderrors.InvalidParams(
				fmt.Sprintf("dueDate must be RFC 3339: %v", err))
		}
		due = &t
	}

	id, err := p.Create(ctx, args.Title, args.Notes, due)
	if err != nil {
		return nil, mapProviderError(err)
	}

	return &createReminderResult{ID: id}, nil
}

func handleListReminders(ctx context.Context, p provider.Provider, raw json.RawMessage) (interface{}, error) {
	var args listRemindersArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	reminders, err := p.List(ctx, args.ListName, args.IncludeCompleted)
	if err != nil {
		if provider.KindOf(err) == provider.KindNotFound {
			return nil, rderrors.ListNotFound(args.ListName)
		}
		return nil, mapProviderError(err)
	}
	if reminders == nil {
		reminders = []provider.Reminder{}
	}

	return &listRemindersResult{Reminders: reminders}, nil
}

func handleCompleteReminder(ctx context.Context, p provider.Provider, raw json.RawMessage) (interface{}, error) {
	var args completeReminderArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.ID == "" {
		return nil, rderrors.MissingParameter("id")
	}

	if _, err := p.Complete(ctx, args.ID); err != nil {
		if provider.KindOf(err) == provider.KindNotFound {
			return nil, rderrors.NotFound(args.ID)
		}
		return nil, mapProviderError(err)
	}

	return &completeReminderResult{Success: true}, nil
}

func handleGetLists(ctx context.Context, p provider.Provider) (interface{}, error) {
	lists, err := p.Lists(ctx)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if lists == nil {
		lists = []provider.ReminderList{}
	}

	return &getListsResult{Lists: lists}, nil
}

// decodeArgs unmarshals raw arguments into the typed struct. The schema has
// already validated shape and types, so a failure here is a decode bug, not
// client input.
func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return rderrors.InvalidParams(err.Error())
	}
	return nil
}

// mapProviderError translates a typed provider failure into its wire error.
// Unknown kinds, including KindInvalid leaking past dispatch validation,
// collapse into an internal error.
func mapProviderError(err error) error {
	switch provider.KindOf(err) {
	case provider.KindAccessDenied:
		return rderrors.AccessDenied()
	case provider.KindNotFound:
		return rderrors.NotFound("")
	case provider.KindUnavailable:
		return rderrors.ProviderUnavailable(err)
	default:
		return rderrors.Internal("provider_call", err)
	}
}
