package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/reconciler/pkg/host"
	"github.com/vango-dev/reconciler/pkg/protocol"
	"github.com/vango-dev/reconciler/pkg/vdom"
)

// Server is a renderer host that mirrors every committed pass and streams
// it to WebSocket clients as protocol frames.
//
// Routes:
//
//	GET /ws        frame stream; ?since=<seq> resumes after a disconnect
//	GET /tree      committed host tree as JSON (?format=markup for text)
//	GET /metrics   Prometheus metrics from ServerConfig.Registry
//	GET /healthz   liveness
type Server struct {
	config   *ServerConfig
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
	metrics  *serverMetrics
	history  *PatchHistory

	mu      sync.Mutex
	mirror  *host.Tree
	frames  *protocol.FrameWriter
	lastSeq uint64
	clients map[*client]struct{}
	closed  bool

	httpServer *http.Server
}

// New creates a server. A nil config uses DefaultServerConfig.
func New(config *ServerConfig) *Server {
	config = config.withDefaults()
	s := &Server{
		config: config,
		logger: slog.Default().With("component", "inspector"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		metrics: newServerMetrics(config.Registry),
		history: NewPatchHistory(config.MaxPatchHistory),
		mirror:  host.New(),
		clients: make(map[*client]struct{}),
	}
	s.frames = protocol.NewFrameWriter(frameSink{s})
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/tree", s.handleTree)
	r.Get("/ws", s.HandleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.config.Registry, promhttp.HandlerOpts{}))
	return r
}

// requestLogger logs each HTTP request at debug level.
func requestLogger(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Handler returns the server's routes for mounting in another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Apply implements vango.Host. The patches are applied to a copy of the
// mirror and encoded; the copy replaces the mirror only when both succeed,
// so a rejected pass is neither broadcast nor mirrored.
func (s *Server) Apply(patches []vdom.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	next := s.mirror.Clone()
	if err := next.Apply(patches); err != nil {
		return err
	}
	if err := s.frames.Apply(patches); err != nil {
		return err
	}
	s.mirror = next
	return nil
}

// frameSink receives each encoded patch frame from the FrameWriter.
// It is only written to from Apply, so s.mu is held.
type frameSink struct{ s *Server }

func (fs frameSink) Write(data []byte) (int, error) {
	s := fs.s
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		return 0, err
	}
	seq, err := protocol.NewDecoder(f.Payload).ReadUvarint()
	if err != nil {
		return 0, err
	}

	s.lastSeq = seq
	s.history.Add(seq, data)
	s.metrics.historyFrames.Set(float64(s.history.Count()))
	s.broadcastLocked(data, f.Type)
	return len(data), nil
}

// broadcastLocked queues data to every client. Clients whose queue is full
// are dropped. Must hold s.mu.
func (s *Server) broadcastLocked(data []byte, ft protocol.FrameType) {
	for c := range s.clients {
		select {
		case c.send <- data:
			s.metrics.framesSent.WithLabelValues(ft.String()).Inc()
			s.metrics.bytesSent.Add(float64(len(data)))
		default:
			s.dropLocked(c, ErrClientTooSlow)
			s.metrics.dropped.Inc()
		}
	}
}

// dropLocked disconnects c. Must hold s.mu.
func (s *Server) dropLocked(c *client, reason error) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	s.metrics.clients.Dec()
	c.close()
	if reason != nil {
		s.logger.Warn("client dropped", "client", c.id, "reason", reason)
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	s.dropLocked(c, nil)
	s.mu.Unlock()
}

// treeResponse is the JSON form of GET /tree.
type treeResponse struct {
	Seq  uint64     `json:"seq"`
	Root *host.Node `json:"root"`
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var (
		body []byte
		err  error
	)
	if r.URL.Query().Get("format") == "markup" {
		body = []byte(s.mirror.String())
	} else {
		body, err = json.Marshal(treeResponse{Seq: s.lastSeq, Root: s.mirror.Root()})
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("tree encode error", "error", err)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("format") == "markup" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(body)
}

// HandleWebSocket upgrades the connection and streams frames to it. A new
// client first receives a FrameTree snapshot; a client reconnecting with
// ?since=<seq> receives only the patch frames it missed when they are still
// buffered.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var (
		since    uint64
		hasSince bool
	)
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since, hasSince = n, true
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.config.ClientBuffer)
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		closeConn(conn, websocket.CloseGoingAway, ErrServerClosed.Error())
		return
	case s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients:
		s.mu.Unlock()
		closeConn(conn, websocket.CloseTryAgainLater, ErrMaxClientsReached.Error())
		return
	}
	s.resyncLocked(c, since, hasSince)
	s.clients[c] = struct{}{}
	s.metrics.clients.Inc()
	s.metrics.connections.Inc()
	s.mu.Unlock()

	s.logger.Info("client connected", "client", c.id, "remote", r.RemoteAddr)
	go s.writeLoop(c)
	s.readLoop(c)
	s.logger.Info("client disconnected", "client", c.id)
}

// resyncLocked queues the frames a new client needs. Must hold s.mu.
func (s *Server) resyncLocked(c *client, since uint64, hasSince bool) {
	if hasSince {
		if frames, ok := s.history.Since(since); ok && len(frames) <= cap(c.send) {
			for _, f := range frames {
				c.send <- f
			}
			s.metrics.replays.WithLabelValues("replay").Inc()
			return
		}
	}

	f, err := protocol.EncodeTree(s.lastSeq, wireFromHost(s.mirror.Root()))
	if err != nil {
		s.logger.Error("snapshot encode error", "error", err)
		em := protocol.NewFatalError(protocol.ErrServerError, err.Error())
		f = protocol.NewFrame(protocol.FrameError, protocol.EncodeErrorMessage(em))
	}
	data := f.Encode()
	c.send <- data
	s.metrics.replays.WithLabelValues("snapshot").Inc()
	s.metrics.framesSent.WithLabelValues(f.Type.String()).Inc()
	s.metrics.bytesSent.Add(float64(len(data)))
}

// wireFromHost converts a mirror node to its wire form.
func wireFromHost(n *host.Node) *protocol.VNodeWire {
	if n == nil {
		return nil
	}
	w := &protocol.VNodeWire{Kind: n.Kind, Tag: n.Tag, Text: n.Text, Attrs: n.Attrs}
	if len(n.Children) > 0 {
		w.Children = make([]*protocol.VNodeWire, len(n.Children))
		for i, c := range n.Children {
			w.Children[i] = wireFromHost(c)
		}
	}
	return w
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Seq returns the sequence number of the last frame broadcast.
func (s *Server) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

// History returns the replay buffer.
func (s *Server) History() *PatchHistory {
	return s.history
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger.With("component", "inspector")
	}
}

// Run serves HTTP on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.config.ValidateConfig(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown disconnects every client and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		s.dropLocked(c, nil)
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
