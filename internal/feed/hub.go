package feed

import (
	"sync"
)

// EventType identifies live-stream payload variants.
type EventType string

const (
	TypeMessageReceived EventType = "message_received"
	TypeDecoyReply      EventType = "decoy_reply"
	TypeScamVerdict     EventType = "scam_verdict"
)

// Event is one observable conversation occurrence pushed to stream clients.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role,omitempty"`
	Text           string    `json:"text,omitempty"`
	Category       string    `json:"category,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	TSMs           int64     `json:"ts_ms"`
}

// Hub fans conversation events out to per-conversation subscribers.
// Publish never blocks: slow subscribers lose events rather than stalling
// the request path.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a listener for one conversation id. The returned
// cancel func must be called exactly once; it closes the channel.
func (h *Hub) Subscribe(conversationID string) (<-chan Event, func()) {
	ch := make(chan Event, 64)

	h.mu.Lock()
	set, ok := h.subs[conversationID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[conversationID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[conversationID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, conversationID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Publish delivers ev to all subscribers of its conversation, dropping on
// full buffers.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.ConversationID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports active listeners for a conversation.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[conversationID])
}
