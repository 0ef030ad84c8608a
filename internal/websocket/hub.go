// Package websocket fans state changes and notices out to live views.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/state"
)

// Message is one frame pushed to every connected view. Change messages carry
// entity and action, notices carry level and text, and snapshot messages
// carry the full state in Data.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`
	Action string `json:"action,omitempty"`
	ID     string `json:"id,omitempty"`
	Level  string `json:"level,omitempty"`
	Text   string `json:"text,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// NewMessage builds a change message typed "<entity>_<action>".
func NewMessage(entity, action, id string) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

func NoticeMessage(n state.Notice) Message {
	return Message{
		Type:   "notice",
		Entity: n.Entity,
		Action: n.Action,
		Level:  string(n.Level),
		Text:   n.Message,
	}
}

func SnapshotMessage(data any) Message {
	return Message{Type: "snapshot", Data: data}
}

// Hub tracks connected clients. The most recent snapshot message is kept and
// replayed to clients as they register so a fresh view starts populated.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	latest  []byte
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Calling it twice
// is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every client without blocking; a client whose
// buffer is full misses the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Type == "snapshot" {
		h.latest = data
	}

	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("broadcast dropped", "type", msg.Type, "clients", dropped)
	}
}

// Notify makes the hub a state.Notifier.
func (h *Hub) Notify(n state.Notice) {
	h.Broadcast(NoticeMessage(n))
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
