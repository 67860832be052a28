package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/quiz"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	key  string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// EventHub fans quiz session events out to websocket subscribers of the
// session key. Slow subscribers are dropped rather than allowed to block the
// session.
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{clients: map[string]map[*client]struct{}{}}
}

// Serve upgrades the request and streams events of the session key until the
// peer goes away.
func (h *EventHub) Serve(w http.ResponseWriter, r *http.Request, key string) {
	log := logger.FromContext(r.Context()).WithPrefix("hub")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed: %v", err)
		return
	}

	c := &client{key: key, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	log.Info("subscriber connected to %s (total: %d)", key, h.Count(key))

	go h.writePump(c)
	go func() {
		defer h.unregister(c)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *EventHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *EventHub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.key] == nil {
		h.clients[c.key] = map[*client]struct{}{}
	}
	h.clients[c.key][c] = struct{}{}
}

func (h *EventHub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.key]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			c.close()
		}
		if len(set) == 0 {
			delete(h.clients, c.key)
		}
	}
}

// Count returns the number of subscribers of key.
func (h *EventHub) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Publish sends ev to every subscriber of its session key.
func (h *EventHub) Publish(ev quiz.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Default().WithPrefix("hub").Error("failed to encode %s event: %v", ev.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[ev.SessionKey]
	for c := range set {
		select {
		case c.send <- data:
		default:
			delete(set, c)
			c.close()
		}
	}
	if len(set) == 0 {
		delete(h.clients, ev.SessionKey)
	}
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.clients {
		for c := range set {
			c.close()
		}
		delete(h.clients, key)
	}
}
