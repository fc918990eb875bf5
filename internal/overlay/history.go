package overlay

import (
	"sync"

	"github.com/jmylchreest/overbar/internal/model"
)

// ChangeType indicates the type of history change.
type ChangeType int

const (
	// ChangeTypeAppend indicates a message was displayed and recorded.
	ChangeTypeAppend ChangeType = iota
	// ChangeTypeReset indicates the history was cleared.
	ChangeTypeReset
)

// String returns the string representation of ChangeType.
func (c ChangeType) String() string {
	switch c {
	case ChangeTypeAppend:
		return "append"
	case ChangeTypeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ChangeEvent signals history content changes.
type ChangeEvent struct {
	Type    ChangeType
	Message model.Message // Set for ChangeTypeAppend
	Count   int           // Entries after the change
}

// History is the append-only record of messages displayed since the
// overlay was last hidden. The detail view reads it through Entries and
// Subscribe, possibly from another goroutine, so it carries its own lock.
type History struct {
	mu          sync.RWMutex
	entries     []model.Message
	subscribers []chan ChangeEvent
	closed      bool
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		entries:     make([]model.Message, 0),
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// Append records a message that was just displayed.
func (h *History) Append(m model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, m)
	h.notifyChange(ChangeEvent{
		Type:    ChangeTypeAppend,
		Message: m,
		Count:   len(h.entries),
	})
}

// Reset empties the history.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return
	}
	h.entries = make([]model.Message, 0)
	h.notifyChange(ChangeEvent{Type: ChangeTypeReset})
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []model.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]model.Message, len(h.entries))
	copy(result, h.entries)
	return result
}

// Len returns the number of recorded messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Subscribe returns a channel that receives change events.
// Slow subscribers miss events rather than block the overlay.
func (h *History) Subscribe() <-chan ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeEvent, 16)
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (h *History) Unsubscribe(ch <-chan ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subscribers {
		if sub == ch {
			close(sub)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Close closes all subscriber channels.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}

// notifyChange sends an event to all subscribers. Caller must hold the lock.
func (h *History) notifyChange(event ChangeEvent) {
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}
