package daemon

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taskwire/remindersd/pkg/logging"
	"github.com/taskwire/remindersd/pkg/observability"
)

// Config is the daemon configuration, loaded from YAML with ${ENV_VAR}
// expansion. Every field has a usable default so remindersd runs with no
// config file at all.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig controls the stderr diagnostic stream
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// StoreConfig locates the local task-list database
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Duration wraps time.Duration so YAML accepts strings like "10s"
type Duration time.Duration

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in Go syntax
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig tunes the protocol core
type ServerConfig struct {
	Name         string   `yaml:"name"`
	Version      string   `yaml:"version"`
	GracePeriod  Duration `yaml:"grace_period"`
	MaxFrameSize int      `yaml:"max_frame_size"`
}

// MetricsConfig controls the side HTTP listener. The listener is separate
// from the protocol stream; stdio carries only protocol bytes.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// TracingConfig controls OpenTelemetry export
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // otlp-grpc, otlp-http, noop
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRate  float64 `yaml:"sample_rate"`
	Environment string  `yaml:"environment"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Path: home + "/.remindersd/reminders.db",
		},
		Server: ServerConfig{
			Name:        "remindersd",
			Version:     "1.0.0",
			GracePeriod: Duration(10 * time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "noop",
			SampleRate: 1.0,
		},
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv substitutes ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadConfig reads, expands, and validates a YAML config file. An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values and fills remaining zero values
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}

	if c.Server.GracePeriod < 0 {
		return fmt.Errorf("server.grace_period must not be negative")
	}
	if c.Server.GracePeriod == 0 {
		c.Server.GracePeriod = Duration(10 * time.Second)
	}
	if c.Server.MaxFrameSize < 0 {
		return fmt.Errorf("server.max_frame_size must not be negative")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Addr == "" {
			return fmt.Errorf("metrics.addr must be set when metrics are enabled")
		}
		if c.Metrics.Path == "" {
			c.Metrics.Path = "/metrics"
		}
	}

	if c.Tracing.Enabled {
		switch observability.ExporterType(c.Tracing.Exporter) {
		case observability.ExporterTypeOTLPGRPC, observability.ExporterTypeOTLPHTTP:
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("tracing.endpoint must be set for exporter %q", c.Tracing.Exporter)
			}
		case observability.ExporterTypeNoop, "":
		default:
			return fmt.Errorf("tracing.exporter must be otlp-grpc, otlp-http, or noop, got %q", c.Tracing.Exporter)
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
		}
	}

	return nil
}

// BuildLogger constructs the daemon logger from the logging section
func (c *Config) BuildLogger() logging.Logger {
	var formatter logging.Formatter
	if c.Logging.Format == "json" {
		formatter = logging.NewJSONFormatter()
	} else {
		formatter = logging.NewTextFormatter()
	}

	logger := logging.New(os.Stderr, formatter)
	level, _ := logging.ParseLevel(c.Logging.Level)
	logger.SetLevel(level)
	return logger
}
