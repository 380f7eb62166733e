package sync

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// EventBuffer is how many published events may wait for delivery
	// before Publish starts dropping them.
	EventBuffer  = 256
	writeTimeout = 2 * time.Second
)

// Hub fans catalog events out to TCP and websocket subscribers. A single
// dispatcher goroutine delivers events in publish order; every write to a
// subscriber happens under mu, so a connection never has two writers.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]struct{}
	log       *zap.Logger

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]struct{}),
		log:       log,
		events:    make(chan any, EventBuffer),
		done:      make(chan struct{}),
	}
	go h.dispatch()
	return h
}

func (h *Hub) dispatch() {
	for {
		select {
		case v := <-h.events:
			h.BroadcastJSON(v)
		case <-h.done:
			return
		}
	}
}

// Close stops the dispatcher. Events still queued are discarded.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Add registers a TCP subscriber and greets it. The greeting is written
// before any broadcast can reach the connection.
func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}

	b, _ := json.Marshal(welcome{Type: "welcome", Transport: "tcp", Clients: len(h.clients)})
	if err := h.writeTCP(conn, append(b, '\n')); err != nil {
		h.dropTCP(conn)
	}
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS registers a websocket subscriber and greets it.
func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wsClients[ws] = struct{}{}

	b, _ := json.Marshal(welcome{Type: "welcome", Transport: "websocket", Clients: len(h.wsClients)})
	if err := h.writeWS(ws, b); err != nil {
		h.dropWS(ws)
	}
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish queues ev for delivery without blocking the caller. A nil hub
// drops it, and so does a full queue.
func (h *Hub) Publish(ev CatalogEvent) {
	if h == nil {
		return
	}
	select {
	case h.events <- ev:
	default:
		h.log.Warn("feed queue full, event dropped",
			zap.String("type", ev.Type),
			zap.String("collection", ev.Collection),
			zap.String("id", ev.ID))
	}
}

// BroadcastJSON writes v as one line to every subscriber, synchronously.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("broadcast encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	line := append(b, '\n')
	for c := range h.clients {
		if err := h.writeTCP(c, line); err != nil {
			h.dropTCP(c)
		}
	}
	for ws := range h.wsClients {
		if err := h.writeWS(ws, line); err != nil {
			h.dropWS(ws)
		}
	}
}

func (h *Hub) writeTCP(c net.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.Write(b)
	return err
}

func (h *Hub) writeWS(ws *websocket.Conn, b []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteMessage(websocket.TextMessage, b)
}

// dropTCP and dropWS expect h.mu to be held.
func (h *Hub) dropTCP(c net.Conn) {
	_ = c.Close()
	delete(h.clients, c)
	h.log.Debug("tcp subscriber dropped", zap.String("remote", c.RemoteAddr().String()))
}

func (h *Hub) dropWS(ws *websocket.Conn) {
	_ = ws.Close()
	delete(h.wsClients, ws)
	h.log.Debug("ws subscriber dropped", zap.String("remote", ws.RemoteAddr().String()))
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}
