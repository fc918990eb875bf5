package dbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/overbar/internal/model"
)

// Client talks to a running overbard over the session bus.
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Connect opens a private session bus connection and checks that the
// daemon owns its bus name. It returns ErrNotRunning otherwise.
func Connect(ctx context.Context) (*Client, error) {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var hasOwner bool
	err = conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&hasOwner)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to query bus name: %w", err)
	}
	if !hasOwner {
		_ = conn.Close()
		return nil, ErrNotRunning
	}

	return &Client{
		conn: conn,
		obj:  conn.Object(DBusBusName, DBusPath),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	return c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
}

// Post sends a message and returns its ID. A negative duration selects the
// daemon's default for the type.
func (c *Client) Post(ctx context.Context, text string, t model.MessageType, duration time.Duration, animated, immediate bool) (string, error) {
	durationMs := DefaultDuration
	if duration >= 0 {
		durationMs = duration.Milliseconds()
	}

	var id string
	err := c.call(ctx, "Post", text, t.String(), durationMs, animated, immediate).Store(&id)
	if err != nil {
		return "", wrapCallError("Post", err)
	}
	return id, nil
}

// Hide hides the overlay.
func (c *Client) Hide(ctx context.Context) error {
	return wrapCallError("Hide", c.call(ctx, "Hide").Err)
}

// HideTemporary hides the overlay so Show can bring it back.
func (c *Client) HideTemporary(ctx context.Context) error {
	return wrapCallError("HideTemporary", c.call(ctx, "HideTemporary").Err)
}

// Show redisplays a temporarily hidden message.
func (c *Client) Show(ctx context.Context) error {
	return wrapCallError("Show", c.call(ctx, "Show").Err)
}

// Touch applies a gesture.
func (c *Client) Touch(ctx context.Context, g model.Gesture) error {
	return wrapCallError("Touch", c.call(ctx, "Touch", g.String()).Err)
}

// SaveState persists the shrink preference.
func (c *Client) SaveState(ctx context.Context) error {
	return wrapCallError("SaveState", c.call(ctx, "SaveState").Err)
}

// RestoreState reapplies the persisted shrink preference.
func (c *Client) RestoreState(ctx context.Context) error {
	return wrapCallError("RestoreState", c.call(ctx, "RestoreState").Err)
}

// Status returns the overlay snapshot.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var phaseName string
	var current map[string]dbus.Variant
	var queued uint32

	if err := c.call(ctx, "Status").Store(&phaseName, &current, &queued); err != nil {
		return Status{}, wrapCallError("Status", err)
	}

	phase, err := model.ParsePhase(phaseName)
	if err != nil {
		return Status{}, err
	}
	st := Status{Phase: phase, Queued: queued}

	m, ok, err := MessageFromMap(current)
	if err != nil {
		return Status{}, fmt.Errorf("decode current message: %w", err)
	}
	if ok {
		st.Current = &m
	}
	return st, nil
}

// History returns the messages displayed since the overlay last hid.
func (c *Client) History(ctx context.Context) ([]model.Message, error) {
	var entries []map[string]dbus.Variant
	if err := c.call(ctx, "History").Store(&entries); err != nil {
		return nil, wrapCallError("History", err)
	}
	return MessagesFromMaps(entries)
}

// EventKind identifies an overlay signal.
type EventKind string

const (
	EventSwitched EventKind = "switched"
	EventHidden   EventKind = "hidden"
	EventLoss     EventKind = "loss"
	EventGesture  EventKind = "gesture"
)

// Event is a decoded overlay signal.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Old     *model.Message  // EventSwitched, nil when nothing was shown
	New     model.Message   // EventSwitched
	Removed []model.Message // EventLoss
	Gesture model.Gesture   // EventGesture
}

// Subscribe delivers overlay signals until ctx is done, then closes the
// channel. Undecodable signals are skipped.
func (c *Client) Subscribe(ctx context.Context) (<-chan Event, error) {
	if err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchObjectPath(DBusPath),
	); err != nil {
		return nil, fmt.Errorf("failed to add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 32)
	c.conn.Signal(signals)

	events := make(chan Event, 32)
	go func() {
		defer close(events)
		defer c.conn.RemoveSignal(signals)

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				ev, err := ParseSignal(sig)
				if err != nil {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

// ErrUnknownSignal is returned by ParseSignal for foreign signals.
var ErrUnknownSignal = errors.New("not an overlay signal")

// ParseSignal decodes an overlay signal.
func ParseSignal(sig *dbus.Signal) (Event, error) {
	if sig == nil || sig.Path != DBusPath || !strings.HasPrefix(sig.Name, DBusInterface+".") {
		return Event{}, ErrUnknownSignal
	}
	ev := Event{Time: time.Now()}

	switch strings.TrimPrefix(sig.Name, DBusInterface+".") {
	case SignalMessageSwitched:
		var oldMap, newMap map[string]dbus.Variant
		if err := dbus.Store(sig.Body, &oldMap, &newMap); err != nil {
			return Event{}, err
		}
		ev.Kind = EventSwitched
		old, ok, err := MessageFromMap(oldMap)
		if err != nil {
			return Event{}, err
		}
		if ok {
			ev.Old = &old
		}
		if ev.New, _, err = MessageFromMap(newMap); err != nil {
			return Event{}, err
		}

	case SignalHidden:
		ev.Kind = EventHidden

	case SignalQueueClearedWithLoss:
		var removed []map[string]dbus.Variant
		if err := dbus.Store(sig.Body, &removed); err != nil {
			return Event{}, err
		}
		ev.Kind = EventLoss
		var err error
		if ev.Removed, err = MessagesFromMaps(removed); err != nil {
			return Event{}, err
		}

	case SignalGestureRecognized:
		var name string
		if err := dbus.Store(sig.Body, &name); err != nil {
			return Event{}, err
		}
		g, err := model.ParseGesture(name)
		if err != nil {
			return Event{}, err
		}
		ev.Kind = EventGesture
		ev.Gesture = g

	default:
		return Event{}, ErrUnknownSignal
	}
	return ev, nil
}

// wrapCallError adds the method name, and maps a vanished daemon to
// ErrNotRunning.
func wrapCallError(method string, err error) error {
	if err == nil {
		return nil
	}
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
		return ErrNotRunning
	}
	return fmt.Errorf("%s: %w", method, err)
}
