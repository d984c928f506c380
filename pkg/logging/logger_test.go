package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rderrors "github.com/taskwire/remindersd/pkg/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"", InfoLevel, false},
		{"WARN", WarnLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(WarnLevel)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Error("also visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "also visible")
}

func TestTextFormatterLayout(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger.WithFields(
		String("component", "server"),
		String("operation", "dispatch"),
	).Info("request completed",
		String("method", "tools/call"),
		Int("count", 3))

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "server/dispatch: request completed")
	assert.Contains(t, line, "count=3")
	assert.Contains(t, line, "method=tools/call")
	// Sorted fields: count before method
	assert.Less(t, strings.Index(line, "count="), strings.Index(line, "method="))
}

func TestJSONFormatterOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("first", String("k", "v"))
	logger.Warn("second")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "first", entry["message"])
	assert.Equal(t, "v", entry["k"])
}

func TestWithContextCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.WithContext(ctx).Info("handled")

	assert.Contains(t, buf.String(), "[req-42]")
}

func TestWithErrorExtractsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.WithError(rderrors.NotFound("r-9")).Warn("lookup failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, float64(-32002), entry["error_code"])
	assert.Equal(t, "provider", entry["error_category"])
}

func TestWithErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger.WithError(errors.New("plain failure")).Error("boom")
	assert.Contains(t, buf.String(), "plain failure")
}

func TestDurationField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	logger.Info("timed", Duration("elapsed", 1500*time.Millisecond))
	assert.Contains(t, buf.String(), "elapsed=1.5s")
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Info("goes nowhere", String("k", "v"))
	})
}
