package dbus

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/overbar/internal/model"
)

func testMessage(t *testing.T, text string, typ model.MessageType, d time.Duration) model.Message {
	t.Helper()
	m, err := model.NewMessage(text, typ, d, true, false)
	require.NoError(t, err)
	return m
}

func TestMessageMapRoundTrip(t *testing.T) {
	m := testMessage(t, "Saved", model.MessageTypeFinish, 2*time.Second)

	got, ok, err := MessageFromMap(MessageToMap(m))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Text, got.Text)
	assert.Equal(t, model.MessageTypeFinish, got.Type)
	assert.Equal(t, "finish", got.TypeName)
	assert.Equal(t, 2*time.Second, got.Duration)
	assert.True(t, got.Animated)
	assert.False(t, got.Immediate)
	assert.Equal(t, m.PostedAt.UnixMilli(), got.PostedAt.UnixMilli())
}

func TestMessageFromMap_Empty(t *testing.T) {
	_, ok, err := MessageFromMap(map[string]dbus.Variant{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessageFromMap_Invalid(t *testing.T) {
	_, _, err := MessageFromMap(map[string]dbus.Variant{
		"text": dbus.MakeVariant(42),
		"type": dbus.MakeVariant("finish"),
	})
	assert.Error(t, err)

	_, _, err = MessageFromMap(map[string]dbus.Variant{
		"text": dbus.MakeVariant("x"),
		"type": dbus.MakeVariant("warning"),
	})
	assert.ErrorIs(t, err, model.ErrInvalidMessageType)
}

func TestMessagesFromMaps(t *testing.T) {
	ms := []model.Message{
		testMessage(t, "a", model.MessageTypeActivity, 0),
		testMessage(t, "b", model.MessageTypeError, time.Second),
	}

	got, err := MessagesFromMaps(MessagesToMaps(ms))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, model.MessageTypeError, got[1].Type)
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		name     string
		hints    map[string]dbus.Variant
		expected int
	}{
		{"no hint", nil, model.UrgencyNormal},
		{"low", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(0))}, model.UrgencyLow},
		{"critical", map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))}, model.UrgencyCritical},
		{"wrong type", map[string]dbus.Variant{"urgency": dbus.MakeVariant("high")}, model.UrgencyNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &DBusNotification{Hints: tt.hints}
			assert.Equal(t, tt.expected, n.Urgency())
		})
	}
}

func TestDBusNotification_Hints(t *testing.T) {
	n := &DBusNotification{Hints: map[string]dbus.Variant{
		"category":  dbus.MakeVariant("email.arrived"),
		"transient": dbus.MakeVariant(true),
	}}
	assert.Equal(t, "email.arrived", n.Category())
	assert.True(t, n.Transient())

	empty := &DBusNotification{}
	assert.Empty(t, empty.Category())
	assert.False(t, empty.Transient())
}

func TestDBusNotification_ToNotification(t *testing.T) {
	n := &DBusNotification{
		AppName:       "make",
		Summary:       "Build failed",
		Body:          "exit 2",
		Hints:         map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(2))},
		ExpireTimeout: 4000,
	}

	got := n.ToNotification()
	assert.Equal(t, "make", got.AppName)
	assert.Equal(t, "Build failed: exit 2", got.Text())
	assert.Equal(t, model.UrgencyCritical, got.Urgency)
	assert.Equal(t, "critical", got.UrgencyName)
	assert.Equal(t, int32(4000), got.ExpireTimeout)
}

func TestParseSignal(t *testing.T) {
	a := testMessage(t, "a", model.MessageTypeActivity, 0)
	b := testMessage(t, "b", model.MessageTypeFinish, time.Second)

	t.Run("switched from nothing", func(t *testing.T) {
		ev, err := ParseSignal(&dbus.Signal{
			Path: DBusPath,
			Name: DBusInterface + "." + SignalMessageSwitched,
			Body: []interface{}{map[string]dbus.Variant{}, MessageToMap(a)},
		})
		require.NoError(t, err)
		assert.Equal(t, EventSwitched, ev.Kind)
		assert.Nil(t, ev.Old)
		assert.Equal(t, "a", ev.New.Text)
	})

	t.Run("switched", func(t *testing.T) {
		ev, err := ParseSignal(&dbus.Signal{
			Path: DBusPath,
			Name: DBusInterface + "." + SignalMessageSwitched,
			Body: []interface{}{MessageToMap(a), MessageToMap(b)},
		})
		require.NoError(t, err)
		require.NotNil(t, ev.Old)
		assert.Equal(t, "a", ev.Old.Text)
		assert.Equal(t, "b", ev.New.Text)
	})

	t.Run("hidden", func(t *testing.T) {
		ev, err := ParseSignal(&dbus.Signal{Path: DBusPath, Name: DBusInterface + "." + SignalHidden})
		require.NoError(t, err)
		assert.Equal(t, EventHidden, ev.Kind)
	})

	t.Run("loss", func(t *testing.T) {
		ev, err := ParseSignal(&dbus.Signal{
			Path: DBusPath,
			Name: DBusInterface + "." + SignalQueueClearedWithLoss,
			Body: []interface{}{MessagesToMaps([]model.Message{a, b})},
		})
		require.NoError(t, err)
		assert.Equal(t, EventLoss, ev.Kind)
		assert.Len(t, ev.Removed, 2)
	})

	t.Run("gesture", func(t *testing.T) {
		ev, err := ParseSignal(&dbus.Signal{
			Path: DBusPath,
			Name: DBusInterface + "." + SignalGestureRecognized,
			Body: []interface{}{"expand"},
		})
		require.NoError(t, err)
		assert.Equal(t, EventGesture, ev.Kind)
		assert.Equal(t, model.GestureExpand, ev.Gesture)
	})

	t.Run("foreign", func(t *testing.T) {
		_, err := ParseSignal(&dbus.Signal{
			Path: "/org/freedesktop/Notifications",
			Name: NotificationsInterface + ".NotificationClosed",
		})
		assert.ErrorIs(t, err, ErrUnknownSignal)

		_, err = ParseSignal(&dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Unknown"})
		assert.ErrorIs(t, err, ErrUnknownSignal)
	})
}

func TestWrapCallError(t *testing.T) {
	assert.NoError(t, wrapCallError("Hide", nil))

	err := wrapCallError("Hide", dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"})
	assert.ErrorIs(t, err, ErrNotRunning)

	err = wrapCallError("Hide", errors.New("boom"))
	assert.EqualError(t, err, "Hide: boom")
}

func TestMonitor_ParseNotify(t *testing.T) {
	m := NewMonitor(slog.New(slog.NewTextHandler(io.Discard, nil)))

	notify := &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant(NotificationsInterface),
			dbus.FieldMember:    dbus.MakeVariant("Notify"),
		},
		Body: []interface{}{
			"make", uint32(0), "", "Build done", "ok",
			[]string{"default", "Open"},
			map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))},
			int32(-1),
		},
	}

	n, ok := m.parseNotify(notify)
	require.True(t, ok)
	assert.Equal(t, "make", n.AppName)
	assert.Equal(t, "Build done", n.Summary)
	assert.Equal(t, int32(-1), n.ExpireTimeout)
	assert.Equal(t, model.UrgencyNormal, n.Urgency())

	// Other members and malformed bodies are skipped.
	closeCall := &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant(NotificationsInterface),
			dbus.FieldMember:    dbus.MakeVariant("CloseNotification"),
		},
		Body: []interface{}{uint32(3)},
	}
	_, ok = m.parseNotify(closeCall)
	assert.False(t, ok)

	short := *notify
	short.Body = notify.Body[:3]
	_, ok = m.parseNotify(&short)
	assert.False(t, ok)

	signal := *notify
	signal.Type = dbus.TypeSignal
	_, ok = m.parseNotify(&signal)
	assert.False(t, ok)
}
