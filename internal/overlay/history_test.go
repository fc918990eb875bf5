package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/model"
)

func TestHistory_AppendAndReset(t *testing.T) {
	h := NewHistory()

	h.Append(msg(t, "a", model.MessageTypeActivity, 0))
	h.Append(msg(t, "b", model.MessageTypeFinish, 0))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []string{"a", "b"}, texts(h.Entries()))

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Entries())
}

func TestHistory_Subscribe(t *testing.T) {
	h := NewHistory()
	ch := h.Subscribe()

	h.Append(msg(t, "a", model.MessageTypeActivity, 0))
	h.Reset()
	h.Reset() // empty, no event

	ev := <-ch
	assert.Equal(t, ChangeTypeAppend, ev.Type)
	assert.Equal(t, "a", ev.Message.Text)
	assert.Equal(t, 1, ev.Count)

	ev = <-ch
	assert.Equal(t, ChangeTypeReset, ev.Type)
	assert.Equal(t, 0, ev.Count)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev.Type)
	default:
	}

	h.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestHistory_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHistory()
	ch := h.Subscribe()

	for i := 0; i < 40; i++ {
		h.Append(msg(t, "x", model.MessageTypeActivity, 0))
	}

	assert.Len(t, ch, 16)
	assert.Equal(t, 40, h.Len())
}

func TestHistory_Close(t *testing.T) {
	h := NewHistory()
	ch := h.Subscribe()

	h.Close()
	h.Close()

	_, open := <-ch
	assert.False(t, open)

	late := h.Subscribe()
	_, open = <-late
	require.False(t, open)
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "append", ChangeTypeAppend.String())
	assert.Equal(t, "reset", ChangeTypeReset.String())
	assert.Equal(t, "unknown", ChangeType(9).String())
}
