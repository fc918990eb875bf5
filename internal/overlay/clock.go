package overlay

import (
	"time"
)

// Dispatcher runs f on the overlay's event loop. The overlay itself does no
// locking, so every asynchronous callback (timers, render completions) goes
// through the host's dispatcher: glib.IdleAdd under GTK, Program.Send under
// bubbletea.
type Dispatcher func(f func())

// Synchronous runs f immediately on the calling goroutine. It is only safe
// when the caller already is the event loop, as in tests.
func Synchronous(f func()) {
	f()
}

// Timer is a cancellable single-shot callback.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock schedules single-shot callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// systemClock schedules on the runtime timer and dispatches firings back
// onto the event loop.
type systemClock struct {
	dispatch Dispatcher
}

// NewSystemClock returns a wall clock whose callbacks are delivered via dispatch.
func NewSystemClock(dispatch Dispatcher) Clock {
	if dispatch == nil {
		dispatch = Synchronous
	}
	return &systemClock{dispatch: dispatch}
}

func (c *systemClock) Now() time.Time {
	return time.Now()
}

func (c *systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		c.dispatch(f)
	})
}
