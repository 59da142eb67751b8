package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var clientIDs atomic.Uint64

// client is one connected WebSocket viewer.
type client struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   clientIDs.Add(1),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// close stops the client's write loop.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// writeLoop writes queued frames and heartbeat pings until the client is
// closed or a write fails.
func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				s.logger.Error("write error", "client", c.id, "error", err)
				s.remove(c)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("ping error", "client", c.id, "error", err)
				s.remove(c)
				return
			}

		case <-c.done:
			closeConn(c.conn, websocket.CloseNormalClosure, "")
			return
		}
	}
}

// readLoop discards client messages and returns when the connection
// closes or stays silent past ReadTimeout.
func (s *Server) readLoop(c *client) {
	defer s.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

// closeConn sends a close message and closes conn.
func closeConn(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
