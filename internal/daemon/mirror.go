package daemon

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

// notificationSource observes desktop notifications.
type notificationSource interface {
	SetNotifyHandler(handler dbus.NotificationHandler)
	Start() error
	Stop() error
}

// Mirror posts observed desktop notifications onto the bar as finish (or,
// for critical ones, error) messages.
type Mirror struct {
	post       func(model.Message)
	newMonitor func() notificationSource
	logger     *slog.Logger

	mu      sync.Mutex
	cfg     *config.DaemonConfig
	monitor notificationSource
}

// NewMirror creates a mirror that hands accepted messages to post.
func NewMirror(post func(model.Message), cfg *config.DaemonConfig, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{
		post: post,
		newMonitor: func() notificationSource {
			return dbus.NewMonitor(logger)
		},
		logger: logger,
		cfg:    cfg,
	}
}

// Apply updates the configuration, starting or stopping the bus monitor
// when mirroring is switched on or off.
func (m *Mirror) Apply(cfg *config.DaemonConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg = cfg
	switch {
	case cfg.Mirror.Enabled && m.monitor == nil:
		mon := m.newMonitor()
		mon.SetNotifyHandler(m.handle)
		if err := mon.Start(); err != nil {
			return err
		}
		m.monitor = mon
		m.logger.Info("notification mirror started", "min_urgency", cfg.Mirror.MinUrgency)

	case !cfg.Mirror.Enabled && m.monitor != nil:
		if err := m.monitor.Stop(); err != nil {
			m.logger.Warn("error stopping notification monitor", "error", err)
		}
		m.monitor = nil
		m.logger.Info("notification mirror stopped")
	}
	return nil
}

// Running reports whether the bus monitor is active.
func (m *Mirror) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitor != nil
}

// Stop stops the bus monitor.
func (m *Mirror) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.monitor != nil {
		_ = m.monitor.Stop()
		m.monitor = nil
	}
}

func (m *Mirror) handle(raw *dbus.DBusNotification) {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	msg, ok := Accept(raw.ToNotification(), cfg)
	if !ok {
		m.logger.Debug("notification not mirrored", "app", raw.AppName, "urgency", raw.Urgency())
		return
	}
	m.post(msg)
}

// Accept turns a notification into a bar message, or reports false when the
// mirror settings filter it out.
func Accept(n *model.Notification, cfg *config.DaemonConfig) (model.Message, bool) {
	if n.Validate() != nil {
		return model.Message{}, false
	}
	if n.Urgency < cfg.MirrorMinUrgency() {
		return model.Message{}, false
	}
	if lo.ContainsBy(cfg.Mirror.IgnoreApps, func(app string) bool {
		return strings.EqualFold(app, n.AppName)
	}) {
		return model.Message{}, false
	}

	t := n.MessageType(cfg.Mirror.CriticalAsError)
	duration := cfg.DurationFor(t)
	if n.ExpireTimeout > 0 {
		duration = n.ExpireDuration(duration)
	}

	msg, err := model.NewMessage(n.Text(), t, duration, cfg.Animation.Enabled, false)
	if err != nil {
		return model.Message{}, false
	}
	return msg, true
}
