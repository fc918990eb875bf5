package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/model"
)

func TestOverlay_StartsHidden(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	_, ok := h.overlay.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, h.overlay.QueueLen())
}

func TestOverlay_PostShowsWhenHidden(t *testing.T) {
	h := newHarness(t)

	a := msg(t, "Uploading", model.MessageTypeFinish, 2*time.Second)
	h.overlay.Post(a)

	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	current, ok := h.overlay.Current()
	require.True(t, ok)
	assert.Equal(t, a.ID, current.ID)
	assert.Equal(t, 1, h.clock.armed())

	require.Len(t, h.delegate.events, 1)
	assert.Equal(t, "switch", h.delegate.events[0].kind)
	assert.Nil(t, h.delegate.events[0].old)
	assert.Equal(t, []string{"Uploading"}, texts(h.overlay.History().Entries()))
}

func TestOverlay_FIFOOrder(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	h.overlay.Post(msg(t, "B", model.MessageTypeFinish, time.Second))
	h.overlay.Post(msg(t, "C", model.MessageTypeFinish, time.Second))

	assert.Equal(t, []string{"A"}, h.delegate.switchedTexts())
	assert.Equal(t, 2, h.overlay.QueueLen())

	h.clock.Advance(time.Second)
	assert.Equal(t, []string{"A", "B"}, h.delegate.switchedTexts())

	h.clock.Advance(time.Second)
	assert.Equal(t, []string{"A", "B", "C"}, h.delegate.switchedTexts())
	assert.Equal(t, []string{"A", "B", "C"}, texts(h.overlay.History().Entries()))

	h.clock.Advance(time.Second)
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, []string{"switch", "switch", "switch", "hide"}, h.delegate.kinds())
	assert.Equal(t, 0, h.overlay.History().Len())
}

func TestOverlay_ImmediateOverride(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "X", model.MessageTypeFinish, 5*time.Second))
	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	h.overlay.Post(msg(t, "B", model.MessageTypeFinish, time.Second))
	require.Equal(t, 2, h.overlay.QueueLen())

	i := immediate(t, "I", model.MessageTypeError, time.Second)
	h.overlay.Post(i)

	assert.Equal(t, []string{"switch", "loss", "switch"}, h.delegate.kinds())
	assert.Equal(t, []string{"A", "B"}, texts(h.delegate.events[1].removed))

	sw := h.delegate.events[2]
	require.NotNil(t, sw.old)
	assert.Equal(t, "X", sw.old.Text)
	assert.Equal(t, i.ID, sw.new.ID)

	current, _ := h.overlay.Current()
	assert.Equal(t, "I", current.Text)
	assert.Equal(t, 0, h.overlay.QueueLen())
	assert.Equal(t, 1, h.clock.armed(), "the preempted timer must be cancelled")
}

func TestOverlay_ImmediateWithEmptyQueueReportsNoLoss(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "X", model.MessageTypeFinish, 5*time.Second))
	h.overlay.Post(immediate(t, "I", model.MessageTypeFinish, time.Second))

	assert.Equal(t, []string{"switch", "switch"}, h.delegate.kinds())
}

func TestOverlay_ZeroDurationActivityPersists(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Syncing", model.MessageTypeActivity, 0))
	h.clock.Advance(24 * time.Hour)

	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	assert.Equal(t, 0, h.clock.armed())
	assert.Equal(t, 0, h.delegate.count("hide"))
}

func TestOverlay_ActivityWithDurationStaysAfterExpiry(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Indexing", model.MessageTypeActivity, time.Second))
	h.clock.Advance(10 * time.Second)

	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	assert.Equal(t, 0, h.delegate.count("hide"))

	// With its duration spent, the next post replaces it at once.
	h.overlay.Post(msg(t, "Done", model.MessageTypeFinish, time.Second))
	assert.Equal(t, []string{"Indexing", "Done"}, h.delegate.switchedTexts())
}

func TestOverlay_ZeroDurationFinishPersistsUntilReplaced(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Saved", model.MessageTypeFinish, 0))
	h.clock.Advance(time.Hour)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())

	h.overlay.Post(msg(t, "Next", model.MessageTypeActivity, 0))
	current, _ := h.overlay.Current()
	assert.Equal(t, "Next", current.Text)
}

func TestOverlay_HistoryExcludesSupersededMessages(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "X", model.MessageTypeFinish, 5*time.Second))
	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	h.overlay.Post(immediate(t, "I", model.MessageTypeFinish, time.Second))

	assert.Equal(t, []string{"X", "I"}, texts(h.overlay.History().Entries()))

	h.clock.Advance(time.Second)
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, 0, h.overlay.History().Len())
}

func TestOverlay_IdenticalRepostStillSwitches(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Loading", model.MessageTypeActivity, 0))
	h.overlay.Post(msg(t, "Loading", model.MessageTypeActivity, 0))

	require.Equal(t, 2, h.delegate.count("switch"))
	second := h.delegate.events[1]
	require.NotNil(t, second.old)
	assert.Equal(t, "Loading", second.old.Text)
	assert.Equal(t, "Loading", second.new.Text)
}

func TestOverlay_IdenticalTextDifferentTypeSwitches(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Sync", model.MessageTypeActivity, 0))
	h.overlay.Post(msg(t, "Sync", model.MessageTypeError, 0))

	require.Equal(t, 2, h.delegate.count("switch"))
	assert.Equal(t, model.MessageTypeError, h.delegate.events[1].new.Type)
}

func TestOverlay_EndToEnd(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Saving…", model.MessageTypeActivity, 0))
	h.overlay.Post(msg(t, "Saved", model.MessageTypeFinish, 2*time.Second))

	current, _ := h.overlay.Current()
	assert.Equal(t, "Saved", current.Text)
	assert.Equal(t, 2, h.overlay.History().Len())

	h.clock.Advance(time.Second)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())

	h.clock.Advance(time.Second)
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, 0, h.overlay.History().Len())
	assert.Equal(t, 1, h.delegate.count("hide"))

	_, ok := h.overlay.Current()
	assert.False(t, ok)
}

func TestOverlay_HideIsIdempotent(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	h.overlay.Hide()
	h.overlay.Hide()

	assert.Equal(t, 1, h.delegate.count("hide"))
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
}

func TestOverlay_HideWhenHiddenIsNoop(t *testing.T) {
	h := newHarness(t)

	h.overlay.Hide()
	h.overlay.OnTimerFired()

	assert.Empty(t, h.delegate.events)
	assert.Empty(t, h.renderer.frames)
}

func TestOverlay_HideWhenHiddenKeepsRestoredShrink(t *testing.T) {
	store := memStore{StateKeyShrinked: true}
	h := newHarness(t)
	h.overlay.store = store

	require.NoError(t, h.overlay.RestoreState())
	h.overlay.Hide()

	assert.True(t, h.overlay.ShrinkPreferred())
	assert.Empty(t, h.delegate.events)

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	assert.Equal(t, model.PhaseShrinked, h.overlay.Phase())

	require.NoError(t, h.overlay.SaveState())
	assert.True(t, store[StateKeyShrinked])
}

func TestOverlay_HideReportsLossBeforeHide(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "X", model.MessageTypeFinish, 5*time.Second))
	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	h.overlay.Post(msg(t, "B", model.MessageTypeFinish, time.Second))

	h.overlay.Hide()

	assert.Equal(t, []string{"switch", "loss", "hide"}, h.delegate.kinds())
	assert.Equal(t, []string{"A", "B"}, texts(h.delegate.events[1].removed))
	assert.Equal(t, 0, h.clock.armed())
	assert.Equal(t, 0, h.overlay.History().Len())
}

func TestOverlay_StaleTimerFiringIsIgnored(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "X", model.MessageTypeFinish, 2*time.Second))
	stale := h.clock.timers[0]

	h.overlay.Post(immediate(t, "I", model.MessageTypeFinish, 5*time.Second))

	// Simulate a firing that raced with cancellation.
	stale.f()

	current, _ := h.overlay.Current()
	assert.Equal(t, "I", current.Text)
	assert.Equal(t, 2, h.delegate.count("switch"))
	assert.Equal(t, 0, h.delegate.count("hide"))

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())

	h.clock.Advance(3 * time.Second)
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
}

func TestOverlay_ImmediateCancelsHideInProgress(t *testing.T) {
	h := newHarness(t)
	h.renderer.hold = true

	h.overlay.Post(msg(t, "Done", model.MessageTypeFinish, time.Second))
	h.clock.Advance(time.Second)
	require.True(t, h.overlay.HideInProgress())
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())

	h.overlay.Post(immediate(t, "Retry", model.MessageTypeActivity, 0))
	assert.False(t, h.overlay.HideInProgress())

	for len(h.renderer.waiting) > 0 {
		h.renderer.completeNext()
	}

	current, ok := h.overlay.Current()
	require.True(t, ok)
	assert.Equal(t, "Retry", current.Text)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	assert.Equal(t, 0, h.delegate.count("hide"))
	assert.Equal(t, []string{"Done", "Retry"}, h.delegate.switchedTexts())
}

func TestOverlay_PostDuringHideWaitsForHide(t *testing.T) {
	h := newHarness(t)
	h.renderer.hold = true

	h.overlay.Post(msg(t, "Done", model.MessageTypeFinish, time.Second))
	h.clock.Advance(time.Second)
	require.True(t, h.overlay.HideInProgress())

	h.overlay.Post(msg(t, "Later", model.MessageTypeFinish, time.Second))
	current, _ := h.overlay.Current()
	assert.Equal(t, "Done", current.Text, "a queued post must not resurrect the hiding message")
	assert.Equal(t, 1, h.overlay.QueueLen())

	for len(h.renderer.waiting) > 0 {
		h.renderer.completeNext()
	}

	assert.Equal(t, []string{"switch", "hide", "switch"}, h.delegate.kinds())
	assert.Nil(t, h.delegate.events[2].old)
	current, _ = h.overlay.Current()
	assert.Equal(t, "Later", current.Text)
	assert.Equal(t, []string{"Later"}, texts(h.overlay.History().Entries()))
}

func TestOverlay_ExplicitHideDuringHideFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.renderer.hold = true

	h.overlay.Post(msg(t, "Done", model.MessageTypeFinish, time.Second))
	h.clock.Advance(time.Second)
	h.overlay.Hide()

	for len(h.renderer.waiting) > 0 {
		h.renderer.completeNext()
	}

	assert.Equal(t, 1, h.delegate.count("hide"))
	assert.False(t, h.overlay.HideInProgress())
}

func TestOverlay_HideTemporaryAndShow(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Working", model.MessageTypeActivity, 0))
	h.overlay.HideTemporary()

	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, 1, h.delegate.count("hide"))
	assert.Equal(t, 1, h.overlay.History().Len(), "history is retained")

	h.overlay.Show()

	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	current, ok := h.overlay.Current()
	require.True(t, ok)
	assert.Equal(t, "Working", current.Text)
	assert.Equal(t, 1, h.overlay.History().Len(), "redisplay is not a new history entry")
	assert.Equal(t, 2, h.delegate.count("switch"))
}

func TestOverlay_HideTemporaryRestartsDurationOnShow(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "Done", model.MessageTypeFinish, 2*time.Second))
	h.clock.Advance(time.Second)
	h.overlay.HideTemporary()
	assert.Equal(t, 0, h.clock.armed())

	h.clock.Advance(5 * time.Second)
	h.overlay.Show()
	assert.Equal(t, 1, h.clock.armed())

	h.clock.Advance(2 * time.Second)
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, 0, h.overlay.History().Len())
}

func TestOverlay_ShowWithNothingRememberedIsNoop(t *testing.T) {
	h := newHarness(t)

	h.overlay.Show()
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	h.overlay.Hide()
	h.overlay.Show()

	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
	assert.Equal(t, 1, h.delegate.count("switch"))
}

func TestOverlay_HideAfterHideTemporaryForgets(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	h.overlay.HideTemporary()
	h.overlay.Hide()

	assert.Equal(t, 1, h.delegate.count("hide"))
	assert.Equal(t, 0, h.overlay.History().Len())

	h.overlay.Show()
	assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
}

func TestOverlay_PostWhileTemporarilyHiddenShowsNewMessage(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	h.overlay.HideTemporary()
	h.overlay.Post(msg(t, "B", model.MessageTypeActivity, 0))

	current, _ := h.overlay.Current()
	assert.Equal(t, "B", current.Text)
	assert.Equal(t, []string{"A", "B"}, texts(h.overlay.History().Entries()))

	// B replaced the remembered message.
	h.overlay.HideTemporary()
	h.overlay.Show()
	current, _ = h.overlay.Current()
	assert.Equal(t, "B", current.Text)
}

func TestOverlay_Touch(t *testing.T) {
	h := newHarness(t)

	h.overlay.Touch(model.GestureTap)
	assert.Empty(t, h.delegate.events, "gestures on a hidden overlay are ignored")

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))

	h.overlay.Touch(model.GestureTap)
	assert.Equal(t, model.PhaseShrinked, h.overlay.Phase())
	assert.True(t, h.overlay.ShrinkPreferred())

	h.overlay.Touch(model.GestureTap)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
	assert.False(t, h.overlay.ShrinkPreferred())

	h.overlay.Touch(model.GestureExpand)
	assert.Equal(t, model.PhaseExpandedDetail, h.overlay.Phase())
	assert.Equal(t, []string{"A"}, texts(h.renderer.last().History))

	h.overlay.Touch(model.GestureTap)
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())

	assert.Equal(t, 4, h.delegate.count("gesture"))
}

func TestOverlay_HideFromAnyPhase(t *testing.T) {
	for _, g := range []model.Gesture{model.GestureTap, model.GestureExpand} {
		t.Run(g.String(), func(t *testing.T) {
			h := newHarness(t)
			h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
			h.overlay.Touch(g)
			require.NotEqual(t, model.PhaseShown, h.overlay.Phase())

			h.overlay.Hide()
			assert.Equal(t, model.PhaseHidden, h.overlay.Phase())
			assert.Equal(t, 1, h.delegate.count("hide"))
		})
	}
}

func TestOverlay_ShrinkPreferenceSurvivesAutoHide(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	h.overlay.Touch(model.GestureTap)
	h.clock.Advance(time.Second)
	require.Equal(t, model.PhaseHidden, h.overlay.Phase())

	h.overlay.Post(msg(t, "B", model.MessageTypeActivity, 0))
	assert.Equal(t, model.PhaseShrinked, h.overlay.Phase())

	// An explicit hide resets it.
	h.overlay.Hide()
	h.overlay.Post(msg(t, "C", model.MessageTypeActivity, 0))
	assert.Equal(t, model.PhaseShown, h.overlay.Phase())
}

type memStore map[string]bool

func (s memStore) GetBool(key string) (bool, error) {
	return s[key], nil
}

func (s memStore) SetBool(key string, value bool) error {
	s[key] = value
	return nil
}

func TestOverlay_SaveAndRestoreState(t *testing.T) {
	store := memStore{}

	first := New(Options{Clock: newManualClock(), StateStore: store})
	first.Post(msg(t, "A", model.MessageTypeActivity, 0))
	first.Touch(model.GestureTap)
	require.NoError(t, first.SaveState())
	assert.True(t, store[StateKeyShrinked])

	second := New(Options{Clock: newManualClock(), StateStore: store})
	require.NoError(t, second.RestoreState())
	assert.True(t, second.ShrinkPreferred())

	second.Post(msg(t, "B", model.MessageTypeActivity, 0))
	assert.Equal(t, model.PhaseShrinked, second.Phase())

	store[StateKeyShrinked] = false
	require.NoError(t, second.RestoreState())
	assert.Equal(t, model.PhaseShown, second.Phase())
}

func TestOverlay_StateWithoutStore(t *testing.T) {
	o := New(Options{Clock: newManualClock()})
	assert.NoError(t, o.SaveState())
	assert.NoError(t, o.RestoreState())
}

func TestOverlay_FramesCarryAnimation(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	f := h.renderer.last()
	require.NotNil(t, f.Message)
	assert.True(t, f.Animated)
	assert.Equal(t, model.AnimationFade, f.Animation)
	assert.Equal(t, model.PhaseShown, f.Phase)

	h.clock.Advance(time.Second)
	f = h.renderer.last()
	assert.Nil(t, f.Message)
	assert.Equal(t, model.PhaseHidden, f.Phase)
}

func TestOverlay_DisableAnimations(t *testing.T) {
	r := &recordingRenderer{}
	o := New(Options{Clock: newManualClock(), Renderer: r, DisableAnimations: true})

	o.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	assert.False(t, r.last().Animated)
}

func TestOverlay_RenderingIsSerialised(t *testing.T) {
	h := newHarness(t)
	h.renderer.hold = true

	h.overlay.Post(msg(t, "A", model.MessageTypeActivity, 0))
	h.overlay.Post(msg(t, "B", model.MessageTypeActivity, 0))
	h.overlay.Post(msg(t, "C", model.MessageTypeActivity, 0))

	assert.Len(t, h.renderer.frames, 1)
	assert.Equal(t, 2, h.overlay.animator.Pending())

	for len(h.renderer.waiting) > 0 {
		h.renderer.completeNext()
	}
	require.Len(t, h.renderer.frames, 3)
	assert.Equal(t, "C", h.renderer.last().Message.Text)
}

func TestOverlay_NoDelegate(t *testing.T) {
	o := New(Options{Clock: newManualClock()})

	assert.NotPanics(t, func() {
		o.Post(msg(t, "A", model.MessageTypeActivity, 0))
		o.Post(immediate(t, "B", model.MessageTypeError, time.Second))
		o.Touch(model.GestureTap)
		o.Hide()
	})
}

func TestOverlay_NegativeDurationClamped(t *testing.T) {
	h := newHarness(t)

	m := msg(t, "A", model.MessageTypeFinish, time.Second)
	m.Duration = -time.Second
	h.overlay.Post(m)

	current, _ := h.overlay.Current()
	assert.Equal(t, time.Duration(0), current.Duration)
	assert.Equal(t, 0, h.clock.armed())
}

func TestOverlay_DelegateMayReenter(t *testing.T) {
	var o *Overlay
	hides := 0
	o = New(Options{
		Clock: newManualClock(),
		Delegate: DelegateFuncs{
			OnSwitch: func(_ *model.Message, m model.Message) {
				if m.Text == "bye" {
					o.Hide()
				}
			},
			OnHide: func() { hides++ },
		},
	})

	o.Post(msg(t, "bye", model.MessageTypeActivity, 0))

	assert.Equal(t, model.PhaseHidden, o.Phase())
	assert.Equal(t, 1, hides)
}

func TestLazy(t *testing.T) {
	calls := 0
	l := NewLazy(func() Options {
		calls++
		return Options{Clock: newManualClock()}
	})

	a := l.Get()
	b := l.Get()

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.PhaseHidden, a.Phase())
}

func TestMultiDelegate(t *testing.T) {
	a, b := &recordingDelegate{}, &recordingDelegate{}
	o := New(Options{Clock: newManualClock(), Delegate: MultiDelegate{a, nil, b}})

	o.Post(msg(t, "A", model.MessageTypeActivity, 0))
	o.Hide()

	assert.Equal(t, []string{"switch", "hide"}, a.kinds())
	assert.Equal(t, a.kinds(), b.kinds())
}

func TestOverlay_FramesPreviewNextMessage(t *testing.T) {
	h := newHarness(t)

	h.overlay.Post(msg(t, "A", model.MessageTypeFinish, time.Second))
	assert.Empty(t, h.renderer.last().Next)

	h.overlay.Post(msg(t, "B", model.MessageTypeFinish, time.Second))
	h.overlay.Post(msg(t, "C", model.MessageTypeFinish, time.Second))
	assert.Equal(t, []string{"B", "C"}, texts(h.overlay.Pending()))

	h.overlay.Touch(model.GestureTap)
	f := h.renderer.last()
	assert.Equal(t, 2, f.Queued)
	assert.Equal(t, "B", f.Next)

	h.clock.Advance(time.Second)
	f = h.renderer.last()
	assert.Equal(t, "B", f.Message.Text)
	assert.Equal(t, "C", f.Next)
}
