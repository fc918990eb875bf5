package overlay

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/overbar/internal/model"
)

// StateKeyShrinked is the storage key of the persisted shrink flag.
const StateKeyShrinked = "overlay.shrinked"

// StateStore is durable key-value storage for the shrink flag.
type StateStore interface {
	GetBool(key string) (bool, error)
	SetBool(key string, value bool) error
}

// Options configures an Overlay. Zero values fall back to a wall clock with
// synchronous dispatch, a renderer that completes at once, no delegate and
// no persistence.
type Options struct {
	Clock      Clock
	Dispatch   Dispatcher
	Renderer   Renderer
	Delegate   Delegate
	StateStore StateStore
	Logger     *slog.Logger

	// Animation is the transition style used for animated messages.
	Animation model.Animation
	// DisableAnimations renders every transition without animation.
	DisableAnimations bool
}

// Overlay is the display state machine. It owns the message queue, the
// single display slot, the duration timer and the history.
//
// Overlay does no locking: all methods must be called from the host's
// event loop, and asynchronous work re-enters through Options.Dispatch.
type Overlay struct {
	logger   *slog.Logger
	clock    Clock
	animator *Animator
	store    StateStore

	animation         model.Animation
	disableAnimations bool

	queue   *Queue
	history *History
	notify  notifier

	current *model.Message
	phase   model.Phase

	// The armed timer and the generation it was armed for. Firings carrying
	// any other generation belong to a superseded message and are dropped.
	timer    Timer
	timerGen uint64

	hideInProgress bool
	hideGen        uint64

	gen uint64

	// Remembered by HideTemporary so Show can bring it back.
	suspended *model.Message

	// Shrinked geometry is preferred whenever the overlay (re)appears.
	shrinkPreferred bool
}

// New creates a hidden overlay.
func New(opts Options) *Overlay {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = Synchronous
	}
	clock := opts.Clock
	if clock == nil {
		clock = NewSystemClock(dispatch)
	}

	return &Overlay{
		logger:            logger,
		clock:             clock,
		animator:          NewAnimator(opts.Renderer, dispatch, logger),
		store:             opts.StateStore,
		animation:         opts.Animation,
		disableAnimations: opts.DisableAnimations,
		queue:             NewQueue(),
		history:           NewHistory(),
		notify:            notifier{delegate: opts.Delegate},
		phase:             model.PhaseHidden,
	}
}

// Lazy creates its Overlay on first access and keeps it for the lifetime
// of the process. The host owns the Lazy; there is no package-level instance.
type Lazy struct {
	once    sync.Once
	options func() Options
	overlay *Overlay
}

// NewLazy returns a Lazy that builds the overlay from options() on first use.
func NewLazy(options func() Options) *Lazy {
	return &Lazy{options: options}
}

// Get returns the overlay, creating it if needed.
func (l *Lazy) Get() *Overlay {
	l.once.Do(func() {
		var opts Options
		if l.options != nil {
			opts = l.options()
		}
		l.overlay = New(opts)
	})
	return l.overlay
}

// Post enqueues m and displays it as soon as the display slot is free.
// An immediate message discards everything pending, reports the loss, and
// replaces the current message right away, cancelling a hide in progress.
func (o *Overlay) Post(m model.Message) {
	o.notify.begin()
	defer o.notify.flush()

	if m.Duration < 0 {
		m.Duration = 0
	}

	removed := o.queue.Enqueue(m)

	o.logger.Debug("message posted",
		"message_id", m.ID,
		"type", m.Type,
		"immediate", m.Immediate,
		"queue_len", o.queue.Len(),
	)

	if !m.Immediate {
		o.advanceIfIdle()
		return
	}

	o.notify.queueLost(removed)
	if o.hideInProgress {
		o.logger.Debug("immediate message cancels hide", "message_id", m.ID)
		o.cancelHide()
	}
	o.cancelTimer()
	o.advance()
}

// AdvanceIfIdle displays the next queued message if the display slot is
// free: nothing is shown, or the current message has no pending duration
// and is not on its way out.
func (o *Overlay) AdvanceIfIdle() {
	o.notify.begin()
	defer o.notify.flush()

	o.advanceIfIdle()
}

// OnTimerFired handles the expiry of the current message's duration: show
// the next queued message, hide after a terminal message, or keep an
// activity message on screen.
func (o *Overlay) OnTimerFired() {
	o.notify.begin()
	defer o.notify.flush()

	o.onTimerFired()
}

// Hide cancels everything and hides the overlay. Pending messages are
// reported as lost and the history is reset. On a hidden overlay it only
// forgets what HideTemporary retained.
func (o *Overlay) Hide() {
	o.notify.begin()
	defer o.notify.flush()

	if o.phase == model.PhaseHidden {
		if o.suspended != nil {
			o.suspended = nil
			o.history.Reset()
		}
		return
	}

	o.notify.queueLost(o.queue.ClearAll())
	o.suspended = nil
	o.shrinkPreferred = false

	animated := o.current != nil && o.current.Animated
	o.cancelHide()
	o.enterHidden()
	o.submitHidden(animated, nil)

	o.logger.Debug("overlay hidden explicitly")
}

// HideTemporary hides the overlay like Hide but keeps the history and the
// shrink preference, and remembers the current message for Show.
func (o *Overlay) HideTemporary() {
	o.notify.begin()
	defer o.notify.flush()

	if o.phase == model.PhaseHidden {
		return
	}

	o.notify.queueLost(o.queue.ClearAll())

	// A terminal message already on its way out is not brought back.
	if o.hideInProgress {
		o.cancelHide()
		o.suspended = nil
	} else {
		m := *o.current
		o.suspended = &m
	}

	animated := o.current.Animated
	o.cancelTimer()
	o.current = nil
	o.phase = model.PhaseHidden
	o.notify.hid()
	o.submitHidden(animated, nil)

	o.logger.Debug("overlay hidden temporarily", "remembered", o.suspended != nil)
}

// Show redisplays the message remembered by HideTemporary without touching
// the queue. When the overlay is already visible it re-renders the current
// message. Otherwise it does nothing.
func (o *Overlay) Show() {
	o.notify.begin()
	defer o.notify.flush()

	if o.phase != model.PhaseHidden {
		o.render(false)
		return
	}
	if o.suspended == nil {
		return
	}

	m := *o.suspended
	o.suspended = nil
	o.current = &m
	o.phase = o.entryPhase()
	o.notify.messageSwitched(nil, m)
	o.render(m.Animated)
	if m.Duration > 0 {
		o.armTimer(m)
	}

	o.logger.Debug("overlay shown again", "message_id", m.ID, "phase", o.phase)
}

// Touch applies a user gesture: from Shown a tap shrinks and an expand
// gesture opens the detail view; any gesture from those returns to Shown.
// Gestures on a hidden overlay are ignored.
func (o *Overlay) Touch(g model.Gesture) {
	o.notify.begin()
	defer o.notify.flush()

	if o.phase == model.PhaseHidden {
		return
	}

	o.notify.gestureRecognized(g)

	switch o.phase {
	case model.PhaseShown:
		if g == model.GestureExpand {
			o.phase = model.PhaseExpandedDetail
		} else {
			o.phase = model.PhaseShrinked
			o.shrinkPreferred = true
		}
	case model.PhaseShrinked, model.PhaseExpandedDetail:
		if o.phase == model.PhaseShrinked {
			o.shrinkPreferred = false
		}
		o.phase = model.PhaseShown
	}

	o.render(true)
	o.logger.Debug("gesture applied", "gesture", g, "phase", o.phase)
}

// SaveState persists the shrink flag.
func (o *Overlay) SaveState() error {
	if o.store == nil {
		return nil
	}
	return o.store.SetBool(StateKeyShrinked, o.shrinkPreferred)
}

// RestoreState loads the shrink flag and applies it to a visible overlay.
// A hidden overlay uses it the next time it appears.
func (o *Overlay) RestoreState() error {
	if o.store == nil {
		return nil
	}
	shrinked, err := o.store.GetBool(StateKeyShrinked)
	if err != nil {
		return err
	}

	o.shrinkPreferred = shrinked

	switch {
	case shrinked && o.phase == model.PhaseShown:
		o.phase = model.PhaseShrinked
		o.render(true)
	case !shrinked && o.phase == model.PhaseShrinked:
		o.phase = model.PhaseShown
		o.render(true)
	}
	return nil
}

// Phase returns the display phase.
func (o *Overlay) Phase() model.Phase {
	return o.phase
}

// Current returns the displayed message, if any.
func (o *Overlay) Current() (model.Message, bool) {
	if o.current == nil {
		return model.Message{}, false
	}
	return *o.current, true
}

// QueueLen returns the number of messages waiting for display.
func (o *Overlay) QueueLen() int {
	return o.queue.Len()
}

// Pending returns a copy of the waiting messages in display order.
func (o *Overlay) Pending() []model.Message {
	return o.queue.Pending()
}

// History returns the history log. Its Entries are safe to read from any goroutine.
func (o *Overlay) History() *History {
	return o.history
}

// HideInProgress reports whether a terminal message is being hidden.
func (o *Overlay) HideInProgress() bool {
	return o.hideInProgress
}

// ShrinkPreferred reports whether the overlay appears shrinked.
func (o *Overlay) ShrinkPreferred() bool {
	return o.shrinkPreferred
}

// Close releases history subscribers and stops the timer.
func (o *Overlay) Close() {
	o.cancelTimer()
	o.history.Close()
}

func (o *Overlay) advanceIfIdle() {
	if o.timer != nil || o.hideInProgress {
		return
	}
	o.advance()
}

func (o *Overlay) advance() {
	next, ok := o.queue.DequeueNext()
	if !ok {
		return
	}
	o.switchTo(next)
}

// switchTo makes m the displayed message.
func (o *Overlay) switchTo(m model.Message) {
	o.cancelTimer()

	old := o.current
	o.current = &m
	o.suspended = nil
	if o.phase == model.PhaseHidden {
		o.phase = o.entryPhase()
	}

	o.history.Append(m)
	o.notify.messageSwitched(old, m)
	o.render(m.Animated)

	if m.Duration > 0 {
		o.armTimer(m)
	}

	o.logger.Debug("message switched",
		"message_id", m.ID,
		"type", m.Type,
		"duration", m.Duration,
		"phase", o.phase,
		"queue_len", o.queue.Len(),
	)
}

func (o *Overlay) onTimerFired() {
	if o.phase == model.PhaseHidden || o.current == nil {
		return
	}
	o.cancelTimer()

	if !o.queue.IsEmpty() {
		o.advance()
		return
	}
	if o.current.Terminal() {
		o.beginHide()
	}
	// An activity message stays until something replaces it.
}

// timerFired is the armed timer's callback.
func (o *Overlay) timerFired(gen uint64) {
	if o.timer == nil || gen != o.timerGen {
		o.logger.Debug("ignoring stale timer", "generation", gen, "current", o.timerGen)
		return
	}
	o.timer = nil
	o.timerGen = 0

	o.OnTimerFired()
}

func (o *Overlay) armTimer(m model.Message) {
	o.cancelTimer()

	o.gen++
	gen := o.gen
	o.timerGen = gen
	o.timer = o.clock.AfterFunc(m.Duration, func() {
		o.timerFired(gen)
	})
}

func (o *Overlay) cancelTimer() {
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = nil
	o.timerGen = 0
}

// beginHide starts hiding after a terminal message. The overlay stays in
// its phase until the renderer completes; non-immediate posts meanwhile
// wait in the queue and are shown afterwards.
func (o *Overlay) beginHide() {
	if o.hideInProgress {
		return
	}

	o.gen++
	gen := o.gen
	o.hideInProgress = true
	o.hideGen = gen

	o.logger.Debug("hide sequence started", "message_id", o.current.ID)

	o.submitHidden(o.current.Animated, func() {
		o.finishHide(gen)
	})
}

func (o *Overlay) finishHide(gen uint64) {
	o.notify.begin()
	defer o.notify.flush()

	if !o.hideInProgress || gen != o.hideGen {
		return
	}
	o.hideInProgress = false
	o.hideGen = 0
	o.enterHidden()

	o.logger.Debug("hide sequence finished", "queue_len", o.queue.Len())

	if !o.queue.IsEmpty() {
		o.notify.later(o.AdvanceIfIdle)
	}
}

func (o *Overlay) cancelHide() {
	o.hideInProgress = false
	o.hideGen = 0
}

func (o *Overlay) enterHidden() {
	o.cancelTimer()
	o.current = nil
	o.phase = model.PhaseHidden
	o.history.Reset()
	o.notify.hid()
}

func (o *Overlay) entryPhase() model.Phase {
	if o.shrinkPreferred {
		return model.PhaseShrinked
	}
	return model.PhaseShown
}

func (o *Overlay) render(animated bool) {
	f := Frame{
		Phase:  o.phase,
		Queued: o.queue.Len(),
	}
	if next, ok := o.queue.Peek(); ok {
		f.Next = next.Text
	}
	if o.current != nil {
		m := *o.current
		f.Message = &m
	}
	if animated && !o.disableAnimations {
		f.Animated = true
		f.Animation = o.animation
	}
	if o.phase == model.PhaseExpandedDetail {
		f.History = o.history.Entries()
	}
	o.submit(f, nil)
}

func (o *Overlay) submitHidden(animated bool, done func()) {
	f := Frame{Phase: model.PhaseHidden}
	if animated && !o.disableAnimations {
		f.Animated = true
		f.Animation = o.animation
	}
	o.submit(f, done)
}

func (o *Overlay) submit(f Frame, done func()) {
	if o.animator.Busy() {
		o.logger.Debug("frame waits for transition",
			"phase", f.Phase,
			"waiting", o.animator.Pending()+1,
		)
	}
	o.animator.Submit(f, done)
}
