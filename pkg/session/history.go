package session

import (
	"sync"

	"charchat/pkg/models"
)

// History is the client-side message list. Subscription delivery is
// at-least-once, so Add dedupes by message ID; merging the same message
// twice is a no-op.
type History struct {
	mu   sync.Mutex
	msgs []models.Message
	seen map[string]struct{}
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// Add appends msg unless its ID was seen before. Returns true when the
// message was new.
func (h *History) Add(msg models.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.seen[msg.ID]; dup {
		return false
	}
	h.seen[msg.ID] = struct{}{}
	h.msgs = append(h.msgs, msg)
	return true
}

// Replace resets the history to msgs, used after a resync re-list.
func (h *History) Replace(msgs []models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = h.msgs[:0]
	h.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := h.seen[m.ID]; dup {
			continue
		}
		h.seen[m.ID] = struct{}{}
		h.msgs = append(h.msgs, m)
	}
}

// Messages returns a copy of the history in insertion order.
func (h *History) Messages() []models.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// ChatMessages converts the history to the wire form sent upstream.
func (h *History) ChatMessages() []models.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.ChatMessage, 0, len(h.msgs))
	for _, m := range h.msgs {
		out = append(out, models.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Len returns the number of messages held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
