package config

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/reconciler/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func code(err error) string {
	var re *errors.ReconcilerError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()
	assert.Equal(t, DefaultMaxFlushIterations, cfg.Renderer.MaxFlushIterations)
	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
	assert.NoError(t, cfg.Validate())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, "R041", code(err))

	writeFile(t, dir, ConfigFileName, `{
  "renderer": {"maxFlushIterations": 10, "debug": true},
  "server": {"address": "127.0.0.1:9000", "maxClients": 4},
  "log": {"level": "debug", "format": "json"}
}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Renderer.MaxFlushIterations)
	assert.True(t, cfg.Renderer.Debug)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Server.MaxClients)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Path())

	// Unset fields keep their defaults.
	assert.Equal(t, 64, cfg.Server.ClientBuffer)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reconciler.yml", `
renderer:
  maxFlushIterations: 5
server:
  history: 32
  heartbeat: 5s
metrics:
  enabled: false
  namespace: demo
tracing:
  enabled: true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Renderer.MaxFlushIterations)
	assert.Equal(t, 32, cfg.Server.History)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval())
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "demo", cfg.Metrics.Namespace)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "reconciler", cfg.Tracing.TracerName)
}

func TestLoadPrefersJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "reconciler.yaml", "name: from-yaml\n")
	writeFile(t, dir, ConfigFileName, `{"name": "from-json"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.Name)
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(writeFile(t, dir, ConfigFileName, `{ invalid json }`))
	assert.Equal(t, "R040", code(err))

	_, err = LoadFile(writeFile(t, dir, "bad.yaml", "renderer: [1, 2"))
	assert.Equal(t, "R040", code(err))

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Equal(t, "R041", code(err))
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := New()
			cfg.Name = "todo"
			cfg.Server.MaxClients = 3
			require.NoError(t, cfg.SaveTo(path))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "todo", loaded.Name)
			assert.Equal(t, 3, loaded.Server.MaxClients)

			loaded.Name = "renamed"
			require.NoError(t, loaded.Save())
			again, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "renamed", again.Name)
		})
	}

	assert.Error(t, New().Save(), "no path to save to")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero flush iterations", func(c *Config) { c.Renderer.MaxFlushIterations = 0 }},
		{"negative max clients", func(c *Config) { c.Server.MaxClients = -1 }},
		{"zero client buffer", func(c *Config) { c.Server.ClientBuffer = 0 }},
		{"zero history", func(c *Config) { c.Server.History = 0 }},
		{"bad heartbeat", func(c *Config) { c.Server.Heartbeat = "soon" }},
		{"negative heartbeat", func(c *Config) { c.Server.Heartbeat = "-1s" }},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, "R040", code(err))
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "reconciler.yaml", "name: app\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)

	_, err = FindProjectRoot(t.TempDir())
	assert.Equal(t, "R041", code(err))
}

func TestNewLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Level = "warn"
	logger := cfg.NewLogger(os.Stderr)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
