package overlay

import (
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/model"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		due := c.due(target)
		if due == nil {
			break
		}
		c.now = due.at
		due.fired = true
		due.f()
	}
	c.now = target
}

func (c *manualClock) due(target time.Time) *manualTimer {
	var live []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(target) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].at.Before(live[j].at) })
	return live[0]
}

// armed returns the number of timers that may still fire.
func (c *manualClock) armed() int {
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// event is a delegate callback in delivery order.
type event struct {
	kind    string
	old     *model.Message
	new     model.Message
	removed []model.Message
	gesture model.Gesture
}

type recordingDelegate struct {
	events []event
}

func (d *recordingDelegate) GestureRecognized(g model.Gesture) {
	d.events = append(d.events, event{kind: "gesture", gesture: g})
}

func (d *recordingDelegate) Hidden() {
	d.events = append(d.events, event{kind: "hide"})
}

func (d *recordingDelegate) MessageSwitched(old *model.Message, new model.Message) {
	d.events = append(d.events, event{kind: "switch", old: old, new: new})
}

func (d *recordingDelegate) QueueClearedWithLoss(removed []model.Message) {
	d.events = append(d.events, event{kind: "loss", removed: removed})
}

func (d *recordingDelegate) kinds() []string {
	kinds := make([]string, 0, len(d.events))
	for _, e := range d.events {
		kinds = append(kinds, e.kind)
	}
	return kinds
}

func (d *recordingDelegate) count(kind string) int {
	n := 0
	for _, e := range d.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func (d *recordingDelegate) switchedTexts() []string {
	var texts []string
	for _, e := range d.events {
		if e.kind == "switch" {
			texts = append(texts, e.new.Text)
		}
	}
	return texts
}

// recordingRenderer keeps every frame. When hold is set, completions are
// stored instead of called so tests can finish transitions by hand.
type recordingRenderer struct {
	frames  []Frame
	hold    bool
	waiting []func()
}

func (r *recordingRenderer) Render(f Frame, done func()) {
	r.frames = append(r.frames, f)
	if r.hold {
		r.waiting = append(r.waiting, done)
		return
	}
	done()
}

// completeNext finishes the oldest held transition.
func (r *recordingRenderer) completeNext() {
	if len(r.waiting) == 0 {
		return
	}
	done := r.waiting[0]
	r.waiting = r.waiting[1:]
	done()
}

func (r *recordingRenderer) last() Frame {
	return r.frames[len(r.frames)-1]
}

type harness struct {
	overlay  *Overlay
	clock    *manualClock
	delegate *recordingDelegate
	renderer *recordingRenderer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:    newManualClock(),
		delegate: &recordingDelegate{},
		renderer: &recordingRenderer{},
	}
	h.overlay = New(Options{
		Clock:     h.clock,
		Dispatch:  Synchronous,
		Renderer:  h.renderer,
		Delegate:  h.delegate,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Animation: model.AnimationFade,
	})
	t.Cleanup(h.overlay.Close)
	return h
}

func msg(t *testing.T, text string, typ model.MessageType, d time.Duration) model.Message {
	t.Helper()
	m, err := model.NewMessage(text, typ, d, true, false)
	require.NoError(t, err)
	return m
}

func immediate(t *testing.T, text string, typ model.MessageType, d time.Duration) model.Message {
	t.Helper()
	m, err := model.NewMessage(text, typ, d, true, true)
	require.NoError(t, err)
	return m
}

func texts(ms []model.Message) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Text)
	}
	return out
}
