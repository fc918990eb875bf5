package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
	"github.com/jmylchreest/overbar/internal/overlay"
)

// ErrLoopTimeout is returned when the event loop does not answer a query
// in time.
var ErrLoopTimeout = errors.New("overlay event loop did not respond")

// DefaultCallTimeout bounds how long a bus query waits for the loop.
const DefaultCallTimeout = 5 * time.Second

// HostOptions configures a Host.
type HostOptions struct {
	// Overlay is created on the loop the first time it is needed.
	Overlay *overlay.Lazy
	// Dispatch runs a function on the overlay's event loop.
	Dispatch overlay.Dispatcher
	Config   *config.DaemonConfig
	Logger   *slog.Logger
	// CallTimeout defaults to DefaultCallTimeout.
	CallTimeout time.Duration
}

// Host implements dbus.Handler. Bus requests arrive on godbus goroutines;
// Host forwards each one to the event loop. Commands are fire-and-forget
// and keep their order; queries wait for the loop to answer.
type Host struct {
	overlay  *overlay.Lazy
	dispatch overlay.Dispatcher
	logger   *slog.Logger
	timeout  time.Duration

	mu  sync.RWMutex
	cfg *config.DaemonConfig
}

var _ dbus.Handler = (*Host)(nil)

// NewHost creates a handler for the given overlay.
func NewHost(opts HostOptions) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = overlay.Synchronous
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Host{
		overlay:  opts.Overlay,
		dispatch: dispatch,
		logger:   logger,
		timeout:  timeout,
		cfg:      cfg,
	}
}

// SetConfig replaces the configuration used for default durations.
func (h *Host) SetConfig(cfg *config.DaemonConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func (h *Host) config() *config.DaemonConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// run queues f on the loop without waiting.
func (h *Host) run(f func(o *overlay.Overlay)) {
	h.dispatch(func() {
		f(h.overlay.Get())
	})
}

// query runs f on the loop and waits for it to finish.
func (h *Host) query(f func(o *overlay.Overlay) error) error {
	_, err := queryValue(h, func(o *overlay.Overlay) (struct{}, error) {
		return struct{}{}, f(o)
	})
	return err
}

type result[T any] struct {
	value T
	err   error
}

// queryValue runs f on the loop and waits for its result. The result only
// crosses over the channel, so a call that times out leaves nothing shared
// with the loop when f finally runs.
func queryValue[T any](h *Host, f func(o *overlay.Overlay) (T, error)) (T, error) {
	done := make(chan result[T], 1)
	h.dispatch(func() {
		v, err := f(h.overlay.Get())
		done <- result[T]{value: v, err: err}
	})

	select {
	case r := <-done:
		return r.value, r.err
	case <-time.After(h.timeout):
		var zero T
		return zero, ErrLoopTimeout
	}
}

// NewMessage builds a message, resolving a negative duration to the
// configured default for t.
func (h *Host) NewMessage(text string, t model.MessageType, duration time.Duration, animated, immediate bool) (model.Message, error) {
	if duration < 0 {
		duration = h.config().DurationFor(t)
	}
	return model.NewMessage(text, t, duration, animated, immediate)
}

// Post queues a message for display and returns its ID.
func (h *Host) Post(text string, t model.MessageType, duration time.Duration, animated, immediate bool) (string, error) {
	m, err := h.NewMessage(text, t, duration, animated, immediate)
	if err != nil {
		return "", err
	}
	h.PostMessage(m)
	return m.ID, nil
}

// PostMessage queues an already built message.
func (h *Host) PostMessage(m model.Message) {
	h.logger.Debug("posting message", "message_id", m.ID, "type", m.TypeName, "immediate", m.Immediate)
	h.run(func(o *overlay.Overlay) {
		o.Post(m)
	})
}

// Hide hides the overlay and clears everything pending.
func (h *Host) Hide() {
	h.run(func(o *overlay.Overlay) {
		o.Hide()
	})
}

// HideTemporary hides the overlay, keeping the current message for Show.
func (h *Host) HideTemporary() {
	h.run(func(o *overlay.Overlay) {
		o.HideTemporary()
	})
}

// Show brings back a temporarily hidden message.
func (h *Host) Show() {
	h.run(func(o *overlay.Overlay) {
		o.Show()
	})
}

// Touch applies a gesture as if the user touched the bar.
func (h *Host) Touch(g model.Gesture) {
	h.run(func(o *overlay.Overlay) {
		o.Touch(g)
	})
}

// SaveState persists the shrink preference.
func (h *Host) SaveState() error {
	err := h.query(func(o *overlay.Overlay) error {
		return o.SaveState()
	})
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// RestoreState loads the persisted shrink preference.
func (h *Host) RestoreState() error {
	err := h.query(func(o *overlay.Overlay) error {
		return o.RestoreState()
	})
	if err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}
	return nil
}

// Status reports the phase, current message and queue length.
func (h *Host) Status() (dbus.Status, error) {
	return queryValue(h, func(o *overlay.Overlay) (dbus.Status, error) {
		st := dbus.Status{
			Phase:  o.Phase(),
			Queued: uint32(o.QueueLen()),
		}
		if cur, ok := o.Current(); ok {
			st.Current = &cur
		}
		return st, nil
	})
}

// History returns the messages shown since the last full hide.
func (h *Host) History() ([]model.Message, error) {
	return queryValue(h, func(o *overlay.Overlay) ([]model.Message, error) {
		return o.History().Entries(), nil
	})
}
