package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket connection limits.
const (
	MaxMessageSize = 64 * 1024        // Largest accepted client command
	WriteWait      = 10 * time.Second // Deadline for a single write
	SendBuffer     = 16               // Queued messages per client
)

// WebSocketConn is the interface for WebSocket connection operations.
type WebSocketConn interface {
	io.Closer
	WriteJSON(v any) error
	ReadJSON(v any) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows same-origin, loopback and private-network pages. The
// agent only ever serves the intake page on the local network.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		slog.Warn("rejected websocket connection: invalid origin", "origin", origin)
		return false
	}
	host := u.Hostname()

	requestHost := r.Host
	if h, _, err := net.SplitHostPort(requestHost); err == nil {
		requestHost = h
	}
	if host == "localhost" || host == requestHost {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}

	slog.Warn("rejected websocket connection", "origin", origin, "host", host)
	return false
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and applies the
// read limit.
func UpgradeConnection(w http.ResponseWriter, r *http.Request) (WebSocketConn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(MaxMessageSize)
	return &deadlineConn{Conn: conn}, nil
}

// deadlineConn bounds every write so a stalled client cannot block its writer.
type deadlineConn struct {
	*websocket.Conn
}

func (c *deadlineConn) WriteJSON(v any) error {
	if err := c.SetWriteDeadline(time.Now().Add(WriteWait)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(v)
}

// Hub fans messages out to every connected client.
type Hub struct {
	mu      sync.Mutex
	clients map[chan<- any]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan<- any]struct{})}
}

// Register adds a client send channel. The returned func removes it and must
// be called before the channel is closed.
func (h *Hub) Register(send chan<- any) func() {
	h.mu.Lock()
	h.clients[send] = struct{}{}
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.clients, send)
		h.mu.Unlock()
	}
}

// Broadcast queues msg for every client, skipping clients whose buffer is full.
func (h *Hub) Broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for send := range h.clients {
		trySend(send, "broadcast", msg)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
