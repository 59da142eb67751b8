package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/config"
	"github.com/vango-dev/reconciler/internal/errors"
	"github.com/vango-dev/reconciler/pkg/middleware"
	"github.com/vango-dev/reconciler/pkg/server"
	"github.com/vango-dev/reconciler/pkg/vango"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		interval   time.Duration
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live inspector",
		Long: `Mount a demo board and stream every committed pass to WebSocket
viewers as protocol frames.

Settings come from reconciler.json (or reconciler.yaml) in the working
directory when present; flags override them.

Routes:
  GET /ws        frame stream (?since=<seq> to resume)
  GET /tree      committed host tree as JSON (?format=markup for text)
  GET /metrics   Prometheus metrics
  GET /healthz   liveness

Examples:
  reconciler serve
  reconciler serve --addr=localhost:9000 --interval=250ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("R040").
					WithDetail(fmt.Sprintf("--interval must be positive, got %s.", interval))
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			if debug {
				cfg.Renderer.Debug = true
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg, interval)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file (default: reconciler.json in the working directory)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "Time between board ticks")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Validate hook order and log every pass")

	return cmd
}

// loadConfig reads path, or the working directory's configuration file
// when path is empty. A missing file in the working directory means
// defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.Load(".")
	var re *errors.ReconcilerError
	if stderrors.As(err, &re) && re.Code == "R041" {
		return config.New(), nil
	}
	return cfg, err
}

func runServe(cfg *config.Config, interval time.Duration) error {
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	srv := server.New(&server.ServerConfig{
		Address:           cfg.Server.Address,
		MaxClients:        cfg.Server.MaxClients,
		ClientBuffer:      cfg.Server.ClientBuffer,
		MaxPatchHistory:   cfg.Server.History,
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Registry:          registry,
	})
	srv.SetLogger(logger)

	opts := []vango.Option{
		vango.WithLogger(logger),
		vango.WithDebug(cfg.Renderer.Debug),
		vango.WithMaxFlushIterations(cfg.Renderer.MaxFlushIterations),
		vango.WithErrorBoundary(func(e *vango.ComponentError) {
			logger.Error("component failed", "error", errors.FromError(e, "").FormatCompact())
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, vango.WithObserver(middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(registry),
		)))
	}
	if cfg.Tracing.Enabled {
		opts = append(opts, vango.WithObserver(middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
		)))
	}

	sched := vango.NewRenderScheduler()
	if err := sched.Init(); err != nil {
		return err
	}
	defer sched.Teardown()
	r := vango.NewRenderer(sched, srv, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := newBoard("reconciler", []string{"alpha", "bravo", "charlie", "delta"})
	if _, err := r.Mount(ctx, b.App.Invoke(nil)); err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	success("Inspector listening on %s", cfg.Server.Address)
	info("Frames:  ws://%s/ws", displayAddr(cfg.Server.Address))
	info("Tree:    http://%s/tree?format=markup", displayAddr(cfg.Server.Address))
	info("Metrics: http://%s/metrics", displayAddr(cfg.Server.Address))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return <-errCh
		case <-ticker.C:
			if _, err := r.Dispatch(ctx, b.tick); err != nil {
				logger.Error("tick failed", "error", err)
			}
		case <-sched.Wake():
			if _, err := r.Flush(ctx); err != nil && !stderrors.Is(err, vango.ErrNotMounted) {
				logger.Error("flush failed", "error", err)
			}
		}
	}
}

// displayAddr turns a listen address into one a browser can open.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
