package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.Equal(t, 10*time.Second, cfg.Server.GracePeriod.Std())
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
store:
  path: /tmp/test-reminders.db
server:
  grace_period: 5s
metrics:
  enabled: true
  addr: "127.0.0.1:9999"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/test-reminders.db", cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.Server.GracePeriod.Std())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Addr)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("REMINDERS_DB", "/data/reminders.db")

	path := writeConfig(t, `
store:
  path: ${REMINDERS_DB}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/reminders.db", cfg.Store.Path)
}

func TestLoadConfigUnsetEnvFails(t *testing.T) {
	// An unset variable expands empty, which store.path rejects
	path := writeConfig(t, `
store:
  path: ${DEFINITELY_NOT_SET_ANYWHERE_12345}
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/no/such/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"negative grace", func(c *Config) { c.Server.GracePeriod = Duration(-time.Second) }},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}},
		{"bad exporter", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "zipkin"
		}},
		{"otlp without endpoint", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp-grpc"
			c.Tracing.Endpoint = ""
		}},
		{"sample rate out of range", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "noop"
			c.Tracing.SampleRate = 1.5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBuildLoggerLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"

	logger := cfg.BuildLogger()
	assert.Equal(t, "WARN", logger.GetLevel().String())
}
