package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwire/remindersd/pkg/provider"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenBootstrapsDefaultList(t *testing.T) {
	s := openTestStore(t)

	lists, err := s.Lists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, DefaultListName, lists[0].Name)
	assert.True(t, lists[0].IsDefault)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")

	s1, err := Open(path)
	require.NoError(t, err)

	_, err = s1.Create(context.Background(), "persisted", "", nil)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	reminders, err := s2.List(context.Background(), "", false)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "persisted", reminders[0].Title)
}

func TestRequestAuthorizationGrants(t *testing.T) {
	s := openTestStore(t)

	decision, err := s.RequestAuthorization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.DecisionGranted, decision)
}

func TestCreateAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	id1, err := s.Create(ctx, "first", "some notes", &due)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.Create(ctx, "second", "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	reminders, err := s.List(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	// Creation order is preserved
	assert.Equal(t, "first", reminders[0].Title)
	assert.Equal(t, "second", reminders[1].Title)

	assert.Equal(t, "some notes", reminders[0].Notes)
	require.NotNil(t, reminders[0].DueDate)
	assert.True(t, due.Equal(*reminders[0].DueDate))
	assert.Nil(t, reminders[1].DueDate)
	assert.Equal(t, DefaultListName, reminders[0].ListName)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Create(context.Background(), "", "", nil)
	require.Error(t, err)
	assert.Equal(t, provider.KindInvalid, provider.KindOf(err))
}

func TestListFiltersCompleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	idDone, err := s.Create(ctx, "done", "", nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, "open", "", nil)
	require.NoError(t, err)

	_, err = s.Complete(ctx, idDone)
	require.NoError(t, err)

	active, err := s.List(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].Title)

	all, err := s.List(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListUnknownList(t *testing.T) {
	s := openTestStore(t)

	_, err := s.List(context.Background(), "NoSuchList", false)
	require.Error(t, err)
	assert.Equal(t, provider.KindNotFound, provider.KindOf(err))
}

func TestListNamedList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateList(ctx, "Work"))

	// Reminders land on the default list; the named list starts empty
	_, err := s.Create(ctx, "on default", "", nil)
	require.NoError(t, err)

	work, err := s.List(ctx, "Work", false)
	require.NoError(t, err)
	assert.Empty(t, work)

	byName, err := s.List(ctx, DefaultListName, false)
	require.NoError(t, err)
	assert.Len(t, byName, 1)
}

func TestCompleteUnknownID(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Complete(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Equal(t, provider.KindNotFound, provider.KindOf(err))
}

func TestCompleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "task", "", nil)
	require.NoError(t, err)

	ok, err := s.Complete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	// Completing again succeeds rather than reporting NotFound
	ok, err = s.Complete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListsOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateList(ctx, "Zeta"))
	require.NoError(t, s.CreateList(ctx, "Alpha"))

	lists, err := s.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)

	// Default list first, the rest by name
	assert.Equal(t, DefaultListName, lists[0].Name)
	assert.Equal(t, "Alpha", lists[1].Name)
	assert.Equal(t, "Zeta", lists[2].Name)
}
