package overlay

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/model"
)

func TestAnimator_OneTransitionAtATime(t *testing.T) {
	r := &recordingRenderer{hold: true}
	a := NewAnimator(r, Synchronous, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var done []model.Phase
	for _, p := range []model.Phase{model.PhaseShown, model.PhaseShrinked, model.PhaseHidden} {
		a.Submit(Frame{Phase: p}, func() { done = append(done, p) })
	}

	assert.True(t, a.Busy())
	assert.Len(t, r.frames, 1)
	assert.Equal(t, 2, a.Pending())

	r.completeNext()
	assert.Equal(t, []model.Phase{model.PhaseShown}, done)
	assert.Len(t, r.frames, 2)

	r.completeNext()
	r.completeNext()
	assert.Equal(t, []model.Phase{model.PhaseShown, model.PhaseShrinked, model.PhaseHidden}, done)
	assert.False(t, a.Busy())
	assert.Equal(t, 0, a.Pending())
}

func TestAnimator_DoubleCompletionIgnored(t *testing.T) {
	var saved func()
	a := NewAnimator(RendererFunc(func(_ Frame, done func()) {
		saved = done
	}), nil, nil)

	calls := 0
	a.Submit(Frame{}, func() { calls++ })
	require.NotNil(t, saved)

	saved()
	saved()
	assert.Equal(t, 1, calls)
}

func TestAnimator_DispatchesCompletion(t *testing.T) {
	var queued []func()
	dispatch := func(f func()) { queued = append(queued, f) }

	a := NewAnimator(nil, dispatch, nil)
	ran := false
	a.Submit(Frame{}, func() { ran = true })

	assert.False(t, ran, "completion waits for the event loop")
	require.Len(t, queued, 1)
	queued[0]()
	assert.True(t, ran)
}
