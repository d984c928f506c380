// Package localstore implements the provider contract over a local SQLite
// database. It is the shipping default backend: authorization is granted
// by construction because the store is owned by the same user that runs
// the daemon, and no out-of-band prompt exists.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/taskwire/remindersd/pkg/logging"
	"github.com/taskwire/remindersd/pkg/provider"
)

// DefaultListName is the list reminders land on when no list is named
const DefaultListName = "Reminders"

// Store is a SQLite-backed task-list provider
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the diagnostic logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates or opens the store at path. The schema is created if it does
// not exist, parent directories are created as needed, and the default list
// is bootstrapped.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps readers unblocked while a tool call writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s.db = db

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.logger.Info("local store opened", logging.String("path", path))
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lists (
			name       TEXT PRIMARY KEY,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reminders (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			due_date   TEXT,
			completed  INTEGER NOT NULL DEFAULT 0,
			list_name  TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (list_name) REFERENCES lists(name)
		);

		CREATE INDEX IF NOT EXISTS idx_reminders_list
			ON reminders(list_name, completed);

		CREATE INDEX IF NOT EXISTS idx_reminders_created
			ON reminders(created_at, id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Bootstrap the default list exactly once
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO lists (name, is_default, created_at) VALUES (?, 1, ?)`,
		DefaultListName, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// RequestAuthorization always grants: the store lives in a file owned by
// the daemon's own user, so there is no external gatekeeper to consult.
func (s *Store) RequestAuthorization(ctx context.Context) (provider.Decision, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return provider.DecisionUnknown,
			provider.NewError(provider.KindUnavailable, "authorize", err)
	}
	return provider.DecisionGranted, nil
}

// Create stores a new reminder on the default list and returns its id
func (s *Store) Create(ctx context.Context, title, notes string, dueDate *time.Time) (string, error) {
	if title == "" {
		return "", provider.NewError(provider.KindInvalid, "create",
			fmt.Errorf("empty title"))
	}

	id := uuid.NewString()

	var due sql.NullString
	if dueDate != nil {
		due = sql.NullString{String: dueDate.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (id, title, notes, due_date, completed, list_name, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, title, notes, due, DefaultListName,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", provider.NewError(provider.KindUnavailable, "create", err)
	}

	s.logger.Debug("reminder created", logging.String("id", id))
	return id, nil
}

// List returns reminders on the named list in creation order. Creation
// order is stable for a fixed store state, which is all the contract asks.
func (s *Store) List(ctx context.Context, listName string, includeCompleted bool) ([]provider.Reminder, error) {
	if listName == "" {
		name, err := s.defaultListName(ctx)
		if err != nil {
			return nil, err
		}
		listName = name
	} else if err := s.listExists(ctx, listName); err != nil {
		return nil, err
	}

	query := `SELECT id, title, notes, due_date, completed, list_name
		  FROM reminders WHERE list_name = ?`
	if !includeCompleted {
		query += ` AND completed = 0`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, listName)
	if err != nil {
		return nil, provider.NewError(provider.KindUnavailable, "list", err)
	}
	defer rows.Close()

	reminders := []provider.Reminder{}
	for rows.Next() {
		var r provider.Reminder
		var due sql.NullString
		var completed int
		if err := rows.Scan(&r.ID, &r.Title, &r.Notes, &due, &completed, &r.ListName); err != nil {
			return nil, provider.NewError(provider.KindUnavailable, "list", err)
		}
		r.Completed = completed != 0
		if due.Valid {
			t, err := time.Parse(time.RFC3339Nano, due.String)
			if err != nil {
				return nil, provider.NewError(provider.KindUnavailable, "list",
					fmt.Errorf("corrupt due_date for %s: %w", r.ID, err))
			}
			r.DueDate = &t
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.NewError(provider.KindUnavailable, "list", err)
	}

	return reminders, nil
}

// Complete marks a reminder done. Re-completing an already-done reminder
// succeeds; an unknown id is NotFound.
func (s *Store) Complete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, provider.NewError(provider.KindInvalid, "complete",
			fmt.Errorf("empty id"))
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return false, provider.NewError(provider.KindUnavailable, "complete", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, provider.NewError(provider.KindUnavailable, "complete", err)
	}
	if affected == 0 {
		// Distinguish "already completed" from "does not exist"
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM reminders WHERE id = ?`, id).Scan(&exists)
		if err == sql.ErrNoRows {
			return false, provider.NewError(provider.KindNotFound, "complete",
				fmt.Errorf("no reminder with id %q", id))
		}
		if err != nil {
			return false, provider.NewError(provider.KindUnavailable, "complete", err)
		}
	}

	return true, nil
}

// Lists returns all reminder lists, default list first, then by name
func (s *Store) Lists(ctx context.Context) ([]provider.ReminderList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, is_default FROM lists ORDER BY is_default DESC, name`)
	if err != nil {
		return nil, provider.NewError(provider.KindUnavailable, "lists", err)
	}
	defer rows.Close()

	lists := []provider.ReminderList{}
	for rows.Next() {
		var l provider.ReminderList
		var isDefault int
		if err := rows.Scan(&l.Name, &isDefault); err != nil {
			return nil, provider.NewError(provider.KindUnavailable, "lists", err)
		}
		l.IsDefault = isDefault != 0
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, provider.NewError(provider.KindUnavailable, "lists", err)
	}

	return lists, nil
}

// CreateList adds a named list; used by tooling and tests, not exposed as
// a tool operation.
func (s *Store) CreateList(ctx context.Context, name string) error {
	if name == "" {
		return provider.NewError(provider.KindInvalid, "create_list",
			fmt.Errorf("empty list name"))
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lists (name, is_default, created_at) VALUES (?, 0, ?)`,
		name, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return provider.NewError(provider.KindUnavailable, "create_list", err)
	}
	return nil
}

func (s *Store) defaultListName(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM lists WHERE is_default = 1 LIMIT 1`).Scan(&name)
	if err == sql.ErrNoRows {
		return "", provider.NewError(provider.KindNotFound, "list",
			fmt.Errorf("no default list"))
	}
	if err != nil {
		return "", provider.NewError(provider.KindUnavailable, "list", err)
	}
	return name, nil
}

func (s *Store) listExists(ctx context.Context, name string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM lists WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return provider.NewError(provider.KindNotFound, "list",
			fmt.Errorf("no list named %q", name))
	}
	if err != nil {
		return provider.NewError(provider.KindUnavailable, "list", err)
	}
	return nil
}

// compile-time contract check
var _ provider.Provider = (*Store)(nil)
