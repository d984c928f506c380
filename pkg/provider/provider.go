// Package provider defines the contract between the protocol core and the
// task-list backend. The core depends only on the Provider interface; a
// concrete backend lives in a subpackage, and tests substitute scripted
// fakes without any real external access.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Decision is the outcome of an authorization request
type Decision int

const (
	// DecisionUnknown means authorization has not been resolved yet
	DecisionUnknown Decision = iota
	// DecisionGranted means the backend allowed access
	DecisionGranted
	// DecisionDenied means the backend refused access. A later
	// RequestAuthorization call may still flip this if the external
	// system grants access after the fact.
	DecisionDenied
)

// String returns the lowercase name of the decision
func (d Decision) String() string {
	switch d {
	case DecisionGranted:
		return "granted"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Reminder is one task record. ID is opaque and stable for the lifetime of
// the underlying record; the core never parses it.
type Reminder struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Completed bool       `json:"completed"`
	ListName  string     `json:"listName"`
}

// ReminderList is one named list of reminders
type ReminderList struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// ErrorKind classifies provider failures
type ErrorKind int

const (
	// KindAccessDenied means the backend refused the operation
	KindAccessDenied ErrorKind = iota + 1
	// KindNotFound means the referenced record does not exist
	KindNotFound
	// KindUnavailable means the backend is unreachable
	KindUnavailable
	// KindInvalid means malformed input reached the adapter. Dispatch
	// validation should make this impossible; when it happens anyway it
	// is treated as an internal-error signal, not a client error.
	KindInvalid
)

// String returns the name of the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is the typed failure every Provider method returns on error
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "complete"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a typed provider error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the error kind, or 0 when err is not a provider error
func KindOf(err error) ErrorKind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return 0
}

// Provider is the sole interface the core requires from a task-list
// backend. Every method takes a context because backends may suspend on
// external systems; implementations must honor cancellation.
type Provider interface {
	// RequestAuthorization resolves whether this process may touch the
	// task-list store. It may block on an out-of-band user decision.
	// Re-invocation is idempotent: backends that support re-prompting may
	// return a different decision after an earlier denial.
	RequestAuthorization(ctx context.Context) (Decision, error)

	// Create stores a new reminder on the default list and returns its id.
	Create(ctx context.Context, title, notes string, dueDate *time.Time) (string, error)

	// List returns reminders on the named list, or the default list when
	// listName is empty. Ordering is backend-defined but must be stable
	// for a fixed store state.
	List(ctx context.Context, listName string, includeCompleted bool) ([]Reminder, error)

	// Complete marks the reminder done. Completing an already-completed
	// reminder succeeds idempotently. A missing id fails with KindNotFound.
	Complete(ctx context.Context, id string) (bool, error)

	// Lists returns all reminder lists in stable order.
	Lists(ctx context.Context) ([]ReminderList, error)
}
