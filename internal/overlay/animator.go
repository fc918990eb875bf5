package overlay

import (
	"log/slog"

	"github.com/jmylchreest/overbar/internal/model"
)

// Frame is a target display configuration handed to the renderer.
type Frame struct {
	Message   *model.Message  // Nil when the overlay is hiding
	Phase     model.Phase     // Geometry to transition to
	Animated  bool            // Animate the transition
	Animation model.Animation // Transition style when Animated
	Queued    int             // Messages waiting behind this one
	Next      string          // Text of the next queued message
	History   []model.Message // Filled for PhaseExpandedDetail
}

// Renderer performs visual transitions. Render must eventually call done
// exactly once, from any goroutine; the animator marshals it back onto the
// event loop.
type Renderer interface {
	Render(f Frame, done func())
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame, done func())

// Render implements Renderer.
func (fn RendererFunc) Render(f Frame, done func()) {
	fn(f, done)
}

// nopRenderer completes every transition at once.
type nopRenderer struct{}

func (nopRenderer) Render(_ Frame, done func()) {
	done()
}

type pendingFrame struct {
	frame Frame
	done  func()
}

// Animator serialises frames so that at most one transition is in flight.
// Frames submitted while busy wait in order and start when the running
// transition completes.
type Animator struct {
	renderer Renderer
	dispatch Dispatcher
	logger   *slog.Logger

	pending []pendingFrame
	busy    bool
	seq     uint64
}

// NewAnimator creates an animator for r. Completions are delivered via dispatch.
func NewAnimator(r Renderer, dispatch Dispatcher, logger *slog.Logger) *Animator {
	if r == nil {
		r = nopRenderer{}
	}
	if dispatch == nil {
		dispatch = Synchronous
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Animator{
		renderer: r,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Submit queues a frame. done, if non-nil, runs on the event loop once the
// frame has been rendered.
func (a *Animator) Submit(f Frame, done func()) {
	a.pending = append(a.pending, pendingFrame{frame: f, done: done})
	a.pump()
}

// Busy reports whether a transition is in flight.
func (a *Animator) Busy() bool {
	return a.busy
}

// Pending returns the number of frames waiting behind the running one.
func (a *Animator) Pending() int {
	return len(a.pending)
}

func (a *Animator) pump() {
	for !a.busy && len(a.pending) > 0 {
		next := a.pending[0]
		a.pending[0] = pendingFrame{}
		a.pending = a.pending[1:]

		a.busy = true
		a.seq++
		seq := a.seq

		a.logger.Debug("rendering frame",
			"seq", seq,
			"phase", next.frame.Phase,
			"animated", next.frame.Animated,
			"waiting", len(a.pending),
		)

		completed := false
		a.renderer.Render(next.frame, func() {
			a.dispatch(func() {
				if completed {
					a.logger.Warn("renderer completed a frame twice", "seq", seq)
					return
				}
				completed = true
				a.busy = false
				if next.done != nil {
					next.done()
				}
				a.pump()
			})
		})
	}
}
