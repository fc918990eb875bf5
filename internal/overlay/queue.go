package overlay

import (
	"github.com/jmylchreest/overbar/internal/model"
)

// Queue is the ordered buffer of messages waiting for the display slot.
// It is owned by the Overlay and never exposed for direct mutation.
type Queue struct {
	items []model.Message
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends m to the tail. An immediate message instead replaces the
// whole pending sequence with [m] and returns what was pending, so the
// caller can report the loss. The replacement is a single slice swap.
func (q *Queue) Enqueue(m model.Message) []model.Message {
	if !m.Immediate {
		q.items = append(q.items, m)
		return nil
	}

	removed := q.items
	q.items = []model.Message{m}
	if removed == nil {
		removed = []model.Message{}
	}
	return removed
}

// DequeueNext removes and returns the head of the queue.
func (q *Queue) DequeueNext() (model.Message, bool) {
	if len(q.items) == 0 {
		return model.Message{}, false
	}
	head := q.items[0]
	q.items[0] = model.Message{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return head, true
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() (model.Message, bool) {
	if len(q.items) == 0 {
		return model.Message{}, false
	}
	return q.items[0], true
}

// IsEmpty reports whether nothing is pending.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	return len(q.items)
}

// ClearAll empties the queue and returns everything that was pending.
func (q *Queue) ClearAll() []model.Message {
	removed := q.items
	q.items = nil
	return removed
}

// Pending returns a copy of the pending messages in display order.
func (q *Queue) Pending() []model.Message {
	result := make([]model.Message, len(q.items))
	copy(result, q.items)
	return result
}
