package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// NotificationHandler is called for every observed Notify call.
type NotificationHandler func(notification *DBusNotification)

const notifyMatchRule = "type='method_call',interface='" + NotificationsInterface + "',member='Notify'"

// Monitor passively observes desktop notification traffic without claiming
// the notification bus name, so it runs alongside any notification daemon.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu       sync.Mutex
	onNotify NotificationHandler
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// SetNotifyHandler sets the callback for observed notifications.
func (m *Monitor) SetNotifyHandler(handler NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotify = handler
}

// Start begins monitoring. A monitoring connection cannot be used for
// anything else, so the monitor opens a private one.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		[]string{notifyMatchRule},
		uint32(0),
	).Err
	if err != nil {
		// BecomeMonitor is missing on older buses; fall back to eavesdropping.
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started notification monitor using BecomeMonitor")
	go m.processMessages()
	return nil
}

// startWithAddMatch uses the older AddMatch API for eavesdropping.
func (m *Monitor) startWithAddMatch() error {
	err := m.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch",
		0,
		notifyMatchRule+",eavesdrop='true'",
	).Err
	if err != nil {
		_ = m.conn.Close()
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started notification monitor using AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

// processMessages reads and processes D-Bus messages.
func (m *Monitor) processMessages() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for msg := range ch {
		n, ok := m.parseNotify(msg)
		if !ok {
			continue
		}

		m.mu.Lock()
		handler := m.onNotify
		m.mu.Unlock()

		if handler != nil {
			handler(n)
		}
	}
}

// parseNotify decodes a Notify method call. Anything else yields ok=false.
func (m *Monitor) parseNotify(msg *dbus.Message) (*DBusNotification, bool) {
	if msg.Type != dbus.TypeMethodCall {
		return nil, false
	}
	if iface, ok := msg.Headers[dbus.FieldInterface]; !ok || iface.Value() != NotificationsInterface {
		return nil, false
	}
	if member, ok := msg.Headers[dbus.FieldMember]; !ok || member.Value() != "Notify" {
		return nil, false
	}

	// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
	if len(msg.Body) < 8 {
		m.logger.Warn("malformed Notify call", "body_len", len(msg.Body))
		return nil, false
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = msg.Body[0].(string); !ok {
		m.logger.Warn("invalid app_name type")
		return nil, false
	}
	if n.ReplacesID, ok = msg.Body[1].(uint32); !ok {
		m.logger.Warn("invalid replaces_id type")
		return nil, false
	}
	if n.AppIcon, ok = msg.Body[2].(string); !ok {
		m.logger.Warn("invalid app_icon type")
		return nil, false
	}
	if n.Summary, ok = msg.Body[3].(string); !ok {
		m.logger.Warn("invalid summary type")
		return nil, false
	}
	if n.Body, ok = msg.Body[4].(string); !ok {
		m.logger.Warn("invalid body type")
		return nil, false
	}
	if actions, ok := msg.Body[5].([]string); ok {
		n.Actions = actions
	}
	if hints, ok := msg.Body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	if timeout, ok := msg.Body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}

	m.logger.Debug("captured notification", "app", n.AppName, "summary", n.Summary)
	return n, true
}

// Stop stops the monitor.
func (m *Monitor) Stop() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
