// Package network fans server events out to the live connection of each
// player.
package network

import (
	"sync"
)

const bufferSize = 100

type MessageType string

const (
	MsgPosition MessageType = "position"
	MsgExplore  MessageType = "explore"
	MsgNotice   MessageType = "notice"
	MsgError    MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

// Hub keeps one buffered channel per player. A newer connection replaces
// the older one.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Message
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan Message)}
}

func (h *Hub) Register(playerID string) <-chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subscribers[playerID]; ok {
		close(old)
	}
	ch := make(chan Message, bufferSize)
	h.subscribers[playerID] = ch
	return ch
}

// Unregister removes the subscription only if ch is still the current one,
// so a closing stale connection cannot drop its replacement.
func (h *Hub) Unregister(playerID string, ch <-chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.subscribers[playerID]; ok && cur == ch {
		close(cur)
		delete(h.subscribers, playerID)
	}
}

// SendTo never blocks; a full buffer drops the message.
func (h *Hub) SendTo(playerID string, msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.subscribers[playerID]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) HasSubscriber(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subscribers[playerID]
	return ok
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
