package client_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskwire/remindersd/pkg/client"
	"github.com/taskwire/remindersd/pkg/protocol"
	"github.com/taskwire/remindersd/pkg/provider/localstore"
	"github.com/taskwire/remindersd/pkg/server"
	"github.com/taskwire/remindersd/pkg/transport"
)

// startPair wires a real server and client together over in-memory pipes,
// backed by a throwaway SQLite store.
func startPair(t *testing.T) *client.Client {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	serverTr := transport.NewStdioTransport(serverReader, serverWriter)
	clientTr := transport.NewStdioTransport(clientReader, clientWriter)

	srv, err := server.New(serverTr, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Serve(ctx) }()

	c := client.New(clientTr)
	go func() { _ = clientTr.Start(ctx) }()

	t.Cleanup(func() {
		c.Close()
		_ = srv.Stop(context.Background(), time.Second)
		_ = clientTr.Stop(context.Background())
	})

	return c
}

func TestClientInitialize(t *testing.T) {
	c := startPair(t)
	ctx := context.Background()

	result, err := c.Initialize(ctx, "client-test", "0.0.1")
	require.NoError(t, err)

	assert.Equal(t, protocol.ProtocolRevision, result.ProtocolVersion)
	assert.Equal(t, server.ServerName, result.ServerInfo.Name)
	assert.Len(t, result.Tools, 4)
	assert.Equal(t, server.ServerName, c.ServerInfo().Name)
}

func TestClientFullWorkflow(t *testing.T) {
	c := startPair(t)
	ctx := context.Background()

	_, err := c.Initialize(ctx, "client-test", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, c.Ping(ctx))

	due := time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)
	id, err := c.CreateReminder(ctx, "Water plants", "balcony too", &due)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	reminders, err := c.ListReminders(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Water plants", reminders[0].Title)
	assert.Equal(t, "balcony too", reminders[0].Notes)
	require.NotNil(t, reminders[0].DueDate)
	assert.True(t, due.Equal(*reminders[0].DueDate))

	require.NoError(t, c.CompleteReminder(ctx, id))

	active, err := c.ListReminders(ctx, "", false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := c.ListReminders(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Completed)

	lists, err := c.GetLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, localstore.DefaultListName, lists[0].Name)
}

func TestClientErrorsSurfaceWireCodes(t *testing.T) {
	c := startPair(t)
	ctx := context.Background()

	t.Run("call before initialize", func(t *testing.T) {
		_, err := c.ListReminders(ctx, "", false)
		require.Error(t, err)

		rpcErr, ok := err.(*protocol.Error)
		require.True(t, ok)
		assert.Equal(t, protocol.NotReady, rpcErr.Code)
	})

	_, err := c.Initialize(ctx, "client-test", "0.0.1")
	require.NoError(t, err)

	t.Run("complete unknown id", func(t *testing.T) {
		err := c.CompleteReminder(ctx, "no-such-id")
		require.Error(t, err)

		rpcErr, ok := err.(*protocol.Error)
		require.True(t, ok)
		assert.Equal(t, protocol.NotFound, rpcErr.Code)
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := c.CreateReminder(ctx, "", "", nil)
		require.Error(t, err)

		rpcErr, ok := err.(*protocol.Error)
		require.True(t, ok)
		assert.Equal(t, protocol.InvalidParams, rpcErr.Code)
	})

	t.Run("unknown list", func(t *testing.T) {
		_, err := c.ListReminders(ctx, "Nowhere", false)
		require.Error(t, err)

		rpcErr, ok := err.(*protocol.Error)
		require.True(t, ok)
		assert.Equal(t, protocol.NotFound, rpcErr.Code)
	})
}

func TestClientListToolsMatchesInitialize(t *testing.T) {
	c := startPair(t)
	ctx := context.Background()

	result, err := c.Initialize(ctx, "client-test", "0.0.1")
	require.NoError(t, err)

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Tools, tools)
}
