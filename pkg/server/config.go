package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerConfig holds configuration for the inspector server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// WebSocket buffer sizes

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 1024.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// Timeouts

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ReadTimeout is how long a client may stay silent, pongs included,
	// before it is dropped.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ReadHeaderTimeout bounds reading HTTP request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// Limits

	// MaxClients is the maximum number of connected clients.
	// 0 means no limit.
	MaxClients int

	// ClientBuffer is the number of frames queued per client. A client
	// that falls further behind is disconnected.
	// Default: 64.
	ClientBuffer int

	// MaxPatchHistory is the number of recent frames kept for replay.
	// Default: 256.
	MaxPatchHistory int

	// Registry receives the server's metrics and backs /metrics.
	// Default: a new registry.
	Registry *prometheus.Registry
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           ":8080",
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       60 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		ClientBuffer:      64,
		MaxPatchHistory:   256,
	}
}

// withDefaults fills zero fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	d := DefaultServerConfig()
	if c == nil {
		c = &ServerConfig{}
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.ClientBuffer == 0 {
		out.ClientBuffer = d.ClientBuffer
	}
	if out.MaxPatchHistory == 0 {
		out.MaxPatchHistory = d.MaxPatchHistory
	}
	if out.Registry == nil {
		out.Registry = prometheus.NewRegistry()
	}
	return &out
}

// ValidateConfig reports configuration values that cannot work.
func (c *ServerConfig) ValidateConfig() error {
	var errs []error
	if c.ReadBufferSize < 0 || c.WriteBufferSize < 0 {
		errs = append(errs, errors.New("buffer sizes must not be negative"))
	}
	if c.MaxClients < 0 {
		errs = append(errs, fmt.Errorf("MaxClients must not be negative, got %d", c.MaxClients))
	}
	if c.ClientBuffer < 0 {
		errs = append(errs, fmt.Errorf("ClientBuffer must not be negative, got %d", c.ClientBuffer))
	}
	if c.HeartbeatInterval > 0 && c.ReadTimeout > 0 && c.HeartbeatInterval >= c.ReadTimeout {
		errs = append(errs, fmt.Errorf("HeartbeatInterval (%s) must be shorter than ReadTimeout (%s)", c.HeartbeatInterval, c.ReadTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}
