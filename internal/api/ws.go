package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"exchange_go/internal/event"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 64
)

// eventEnvelope is the wire frame pushed to every WebSocket client.
type eventEnvelope struct {
	Type    event.Type  `json:"type"`
	Ts      int64       `json:"ts"`
	Payload event.Event `json:"payload"`
}

// Hub fans the core event stream out to WebSocket clients. A client that
// cannot keep up is dropped rather than allowed to stall the broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan eventEnvelope
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]chan eventEnvelope),
	}
}

// Run consumes the core event stream until ctx is cancelled, broadcasting
// each event to every connected client.
func (h *Hub) Run(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-events:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(eventEnvelope{Type: ev.EventType(), Ts: ev.At(), Payload: ev})
		}
	}
}

func (h *Hub) broadcast(env eventEnvelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, send := range h.clients {
		select {
		case send <- env:
		default:
			slog.Warn("websocket client lagging, dropping connection", "client", id)
			close(send)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, send := range h.clients {
		close(send)
		delete(h.clients, id)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handle upgrades the request and streams events until the client leaves.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}

	id := uuid.NewString()
	send := make(chan eventEnvelope, clientSendSize)
	h.mu.Lock()
	h.clients[id] = send
	h.mu.Unlock()
	slog.Info("websocket client connected", "client", id)

	go h.writeLoop(id, conn, send)
	h.readLoop(id, conn)
}

// writeLoop pushes envelopes to one client. Exits when the send channel is
// closed by the broadcaster.
func (h *Hub) writeLoop(id string, conn *websocket.Conn, send <-chan eventEnvelope) {
	defer conn.Close()
	for env := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(env); err != nil {
			slog.Warn("websocket write failed", "client", id, "err", err)
			h.drop(id)
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// readLoop discards inbound frames; its job is noticing the disconnect.
func (h *Hub) readLoop(id string, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(id)
			slog.Info("websocket client disconnected", "client", id)
			return
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.clients[id]; ok {
		close(send)
		delete(h.clients, id)
	}
}
