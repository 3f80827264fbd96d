// Package notify fans annotation change events out to connected WebSocket
// clients. Browsers watching the same video see saves from other sessions
// without polling.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/vannot/vannot/pkg/streaming"
)

const (
	sendChSize = 256
	writeWait  = 10 * time.Second
)

// client is one connected WebSocket session with its own write goroutine.
type client struct {
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
}

// Hub tracks connected clients and broadcasts envelopes to all of them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Register adopts an upgraded connection and services it until the peer
// disconnects. Blocks for the lifetime of the connection; call from the
// connection's handler goroutine.
func (h *Hub) Register(conn *ws.Conn) {
	c := &client{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("WebSocket client connected", "clients", count)

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	count = len(h.clients)
	h.mu.Unlock()

	close(c.done)
	_ = conn.Close()
	h.logger.Info("WebSocket client disconnected", "clients", count)
}

// writeLoop drains the client's send channel and writes to the socket.
func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				h.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				h.logger.Warn("WebSocket write error", "error", err)
				return
			}
		}
	}
}

// readLoop consumes and discards inbound frames so pings and close frames
// are processed. Returns when the peer goes away.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast sends the envelope to every connected client. Non-blocking;
// a client with a full send channel loses the message.
func (h *Hub) broadcast(env streaming.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Could not marshal envelope", "type", env.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.sendCh <- data:
		default:
			h.logger.Warn("Client send channel full, dropping message", "type", env.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// VideoUpdated implements service.Notifier.
func (h *Hub) VideoUpdated(videoID string, objectCount int) {
	env, err := streaming.NewEnvelope(streaming.TypeContainerUpdated,
		streaming.ContainerUpdatedPayload{VideoID: videoID, ObjectCount: objectCount})
	if err != nil {
		h.logger.Error("Could not build update envelope", "error", err)
		return
	}
	h.broadcast(env)
}

// VideoDeleted implements service.Notifier.
func (h *Hub) VideoDeleted(videoID string) {
	env, err := streaming.NewEnvelope(streaming.TypeContainerDeleted,
		streaming.ContainerDeletedPayload{VideoID: videoID})
	if err != nil {
		h.logger.Error("Could not build delete envelope", "error", err)
		return
	}
	h.broadcast(env)
}
