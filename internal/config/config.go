package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reconciler/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "reconciler.json"

	// DefaultAddress is the default inspector server address.
	DefaultAddress = ":8080"

	// DefaultMaxFlushIterations is the default number of passes one flush may run.
	DefaultMaxFlushIterations = 50

	// DefaultHeartbeat is the default WebSocket ping interval.
	DefaultHeartbeat = "30s"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "reconciler"
)

// fileNames are the configuration files Load looks for, in order.
var fileNames = []string{ConfigFileName, "reconciler.yaml", "reconciler.yml"}

// Config represents the complete reconciler configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Renderer contains render pass settings.
	Renderer RendererConfig `json:"renderer,omitempty" yaml:"renderer,omitempty"`

	// Server contains inspector server settings.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RendererConfig contains render pass settings.
type RendererConfig struct {
	// MaxFlushIterations bounds the passes of a single flush.
	MaxFlushIterations int `json:"maxFlushIterations,omitempty" yaml:"maxFlushIterations,omitempty"`

	// Debug enables hook order validation.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// ServerConfig contains inspector server settings.
type ServerConfig struct {
	// Address is the address to listen on.
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// MaxClients limits concurrent viewers. Zero means unlimited.
	MaxClients int `json:"maxClients,omitempty" yaml:"maxClients,omitempty"`

	// ClientBuffer is the number of frames queued per viewer.
	ClientBuffer int `json:"clientBuffer,omitempty" yaml:"clientBuffer,omitempty"`

	// History is the number of patch frames kept for resuming viewers.
	History int `json:"history,omitempty" yaml:"history,omitempty"`

	// Heartbeat is the WebSocket ping interval (e.g., "30s").
	Heartbeat string `json:"heartbeat,omitempty" yaml:"heartbeat,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the render metrics observer.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled registers the tracing observer.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// TracerName is the instrumentation name spans are created under.
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Renderer: RendererConfig{
			MaxFlushIterations: DefaultMaxFlushIterations,
		},
		Server: ServerConfig{
			Address:      DefaultAddress,
			ClientBuffer: 64,
			History:      256,
			Heartbeat:    DefaultHeartbeat,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: "reconciler",
		},
	}
}

// Load reads configuration from the specified directory. It looks for
// reconciler.json, then reconciler.yaml and reconciler.yml.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("R041").
		WithDetail("No reconciler.json or reconciler.yaml found in " + dir)
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("R041").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("R040").Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("R040").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML when the
// extension says so and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("R040").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("R040").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()
	if c.Renderer.MaxFlushIterations == 0 {
		c.Renderer.MaxFlushIterations = d.Renderer.MaxFlushIterations
	}
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.ClientBuffer == 0 {
		c.Server.ClientBuffer = d.Server.ClientBuffer
	}
	if c.Server.History == 0 {
		c.Server.History = d.Server.History
	}
	if c.Server.Heartbeat == "" {
		c.Server.Heartbeat = d.Server.Heartbeat
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var problems []string
	if c.Renderer.MaxFlushIterations < 1 {
		problems = append(problems, "renderer.maxFlushIterations must be at least 1")
	}
	if c.Server.MaxClients < 0 {
		problems = append(problems, "server.maxClients must not be negative")
	}
	if c.Server.ClientBuffer < 1 {
		problems = append(problems, "server.clientBuffer must be at least 1")
	}
	if c.Server.History < 1 {
		problems = append(problems, "server.history must be at least 1")
	}
	if d, err := time.ParseDuration(c.Server.Heartbeat); err != nil || d <= 0 {
		problems = append(problems, fmt.Sprintf("server.heartbeat %q is not a positive duration", c.Server.Heartbeat))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("log.format %q must be text or json", c.Log.Format))
	}
	if len(problems) > 0 {
		return errors.New("R040").WithDetail(strings.Join(problems, "; "))
	}
	return nil
}

// HeartbeatInterval returns Server.Heartbeat as a duration, or the default
// when it does not parse.
func (c *Config) HeartbeatInterval() time.Duration {
	if d, err := time.ParseDuration(c.Server.Heartbeat); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// Level returns the configured log level, or info when it does not parse.
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q must be debug, info, warn or error", s)
	}
	return level, nil
}

// NewLogger creates a logger writing to w with the configured level and format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the directory containing a
// configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("R041").
				WithDetail("No reconciler.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
