package dbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"

	"github.com/jmylchreest/overbar/internal/model"
)

const (
	// DBusInterface is the overlay interface name.
	DBusInterface = "io.github.jmylchreest.Overbar"
	// DBusPath is the overlay object path.
	DBusPath = "/io/github/jmylchreest/Overbar"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.Overbar"

	// NotificationsInterface is the freedesktop notification interface.
	NotificationsInterface = "org.freedesktop.Notifications"
)

// D-Bus error names returned by the server.
const (
	ErrorInvalidArgs = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrorState       = DBusInterface + ".Error.State"
	ErrorUnavailable = DBusInterface + ".Error.Unavailable"
)

// ErrNotRunning is returned by the client when no daemon owns the bus name.
var ErrNotRunning = errors.New("overbard is not running")

// Signal names.
const (
	SignalMessageSwitched      = "MessageSwitched"
	SignalHidden               = "Hidden"
	SignalQueueClearedWithLoss = "QueueClearedWithLoss"
	SignalGestureRecognized    = "GestureRecognized"
)

// Message map keys used on the wire (a{sv}).
const (
	keyID        = "id"
	keyText      = "text"
	keyType      = "type"
	keyDuration  = "duration_ms"
	keyAnimated  = "animated"
	keyImmediate = "immediate"
	keyPostedAt  = "posted_at"
)

// MessageToMap converts a message to its a{sv} wire form.
func MessageToMap(m model.Message) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		keyID:        dbus.MakeVariant(m.ID),
		keyText:      dbus.MakeVariant(m.Text),
		keyType:      dbus.MakeVariant(m.Type.String()),
		keyDuration:  dbus.MakeVariant(m.Duration.Milliseconds()),
		keyAnimated:  dbus.MakeVariant(m.Animated),
		keyImmediate: dbus.MakeVariant(m.Immediate),
		keyPostedAt:  dbus.MakeVariant(m.PostedAt.UnixMilli()),
	}
}

// MessagesToMaps converts messages to their aa{sv} wire form.
func MessagesToMaps(ms []model.Message) []map[string]dbus.Variant {
	return lo.Map(ms, func(m model.Message, _ int) map[string]dbus.Variant {
		return MessageToMap(m)
	})
}

// MessageFromMap parses the a{sv} wire form. An empty map yields ok=false,
// which is how "no message" travels.
func MessageFromMap(v map[string]dbus.Variant) (model.Message, bool, error) {
	if len(v) == 0 {
		return model.Message{}, false, nil
	}

	var m model.Message
	var typeName string
	var durationMs, postedAt int64

	fields := []struct {
		key string
		dst any
	}{
		{keyID, &m.ID},
		{keyText, &m.Text},
		{keyType, &typeName},
		{keyDuration, &durationMs},
		{keyAnimated, &m.Animated},
		{keyImmediate, &m.Immediate},
		{keyPostedAt, &postedAt},
	}
	for _, f := range fields {
		variant, ok := v[f.key]
		if !ok {
			continue
		}
		if err := variant.Store(f.dst); err != nil {
			return model.Message{}, false, fmt.Errorf("field %s: %w", f.key, err)
		}
	}

	t, err := model.ParseMessageType(typeName)
	if err != nil {
		return model.Message{}, false, err
	}
	m.Type = t
	m.TypeName = t.String()
	m.Duration = time.Duration(durationMs) * time.Millisecond
	if postedAt > 0 {
		m.PostedAt = time.UnixMilli(postedAt)
	}
	return m, true, nil
}

// MessagesFromMaps parses the aa{sv} wire form.
func MessagesFromMaps(vs []map[string]dbus.Variant) ([]model.Message, error) {
	result := make([]model.Message, 0, len(vs))
	for i, v := range vs {
		m, ok, err := MessageFromMap(v)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if ok {
			result = append(result, m)
		}
	}
	return result, nil
}

// Status is a snapshot of the overlay returned by the Status method.
type Status struct {
	Phase   model.Phase
	Current *model.Message
	Queued  uint32
}

// DBusNotification represents an observed org.freedesktop.Notifications.Notify call.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns model.UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return model.UrgencyNormal
}

// Category extracts the category hint from the notification.
// Returns empty string if not specified.
func (n *DBusNotification) Category() string {
	if v, ok := n.Hints["category"]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// Transient returns true if the transient hint is set.
func (n *DBusNotification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// ToNotification converts the raw call into the model form.
func (n *DBusNotification) ToNotification() *model.Notification {
	notification := model.NewNotification(n.AppName, n.Summary, n.Body)
	notification.SetUrgency(n.Urgency())
	notification.ExpireTimeout = n.ExpireTimeout
	return notification
}

// invalidArgs builds the D-Bus error for rejected arguments.
func invalidArgs(err error) *dbus.Error {
	return dbus.NewError(ErrorInvalidArgs, []interface{}{err.Error()})
}
