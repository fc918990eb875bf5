package dbus

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/overbar/internal/model"
)

// DefaultDuration passed as duration_ms asks the daemon to use the
// configured default for the message type.
const DefaultDuration int64 = -1

// Handler carries out overlay requests received on the bus. Calls arrive on
// D-Bus goroutines; implementations marshal them onto the overlay's loop.
type Handler interface {
	// Post displays a message. A negative duration selects the default for t.
	Post(text string, t model.MessageType, duration time.Duration, animated, immediate bool) (string, error)
	Hide()
	HideTemporary()
	Show()
	Touch(g model.Gesture)
	SaveState() error
	RestoreState() error
	Status() (Status, error)
	History() ([]model.Message, error)
}

// Server implements the io.github.jmylchreest.Overbar D-Bus interface.
type Server struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	handler Handler

	mu      sync.RWMutex
	running bool
}

// NewServer creates a server that forwards requests to handler.
func NewServer(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:  logger,
		handler: handler,
	}
}

// Start connects to the session bus and exports the overlay service.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: overlayMethods(),
				Signals: overlaySignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus overlay server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus overlay server stopped")
	return nil
}

// maxDurationMs is the longest duration_ms that fits a time.Duration.
const maxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// durationFromMillis converts duration_ms. Negative values select the
// configured default and values too large for a time.Duration saturate.
func durationFromMillis(ms int64) time.Duration {
	if ms < 0 {
		return -1
	}
	return time.Duration(min(ms, maxDurationMs)) * time.Millisecond
}

// Post queues a message for display.
// D-Bus method: Post(text s, type s, duration_ms x, animated b, immediate b) -> s
func (s *Server) Post(text, typeName string, durationMs int64, animated, immediate bool) (string, *dbus.Error) {
	t, err := model.ParseMessageType(typeName)
	if err != nil {
		return "", invalidArgs(err)
	}

	duration := durationFromMillis(durationMs)

	s.logger.Debug("Post called",
		"type", t,
		"duration_ms", durationMs,
		"animated", animated,
		"immediate", immediate,
	)

	id, err := s.handler.Post(text, t, duration, animated, immediate)
	if err != nil {
		return "", dbus.NewError(ErrorUnavailable, []interface{}{err.Error()})
	}
	return id, nil
}

// Hide hides the overlay and drops everything pending.
// D-Bus method: Hide()
func (s *Server) Hide() *dbus.Error {
	s.logger.Debug("Hide called")
	s.handler.Hide()
	return nil
}

// HideTemporary hides the overlay, keeping history for Show.
// D-Bus method: HideTemporary()
func (s *Server) HideTemporary() *dbus.Error {
	s.logger.Debug("HideTemporary called")
	s.handler.HideTemporary()
	return nil
}

// Show redisplays a temporarily hidden message.
// D-Bus method: Show()
func (s *Server) Show() *dbus.Error {
	s.logger.Debug("Show called")
	s.handler.Show()
	return nil
}

// Touch applies a gesture.
// D-Bus method: Touch(gesture s)
func (s *Server) Touch(gesture string) *dbus.Error {
	g, err := model.ParseGesture(gesture)
	if err != nil {
		return invalidArgs(err)
	}
	s.logger.Debug("Touch called", "gesture", g)
	s.handler.Touch(g)
	return nil
}

// SaveState persists the shrink preference.
// D-Bus method: SaveState()
func (s *Server) SaveState() *dbus.Error {
	if err := s.handler.SaveState(); err != nil {
		s.logger.Warn("failed to save state", "error", err)
		return dbus.NewError(ErrorState, []interface{}{err.Error()})
	}
	return nil
}

// RestoreState reapplies the persisted shrink preference.
// D-Bus method: RestoreState()
func (s *Server) RestoreState() *dbus.Error {
	if err := s.handler.RestoreState(); err != nil {
		s.logger.Warn("failed to restore state", "error", err)
		return dbus.NewError(ErrorState, []interface{}{err.Error()})
	}
	return nil
}

// Status reports the phase, the displayed message and the queue length.
// D-Bus method: Status() -> (phase s, current a{sv}, queued u)
func (s *Server) Status() (string, map[string]dbus.Variant, uint32, *dbus.Error) {
	st, err := s.handler.Status()
	if err != nil {
		return "", nil, 0, dbus.NewError(ErrorUnavailable, []interface{}{err.Error()})
	}

	current := map[string]dbus.Variant{}
	if st.Current != nil {
		current = MessageToMap(*st.Current)
	}
	return st.Phase.String(), current, st.Queued, nil
}

// History returns the messages displayed since the overlay last hid.
// D-Bus method: History() -> aa{sv}
func (s *Server) History() ([]map[string]dbus.Variant, *dbus.Error) {
	entries, err := s.handler.History()
	if err != nil {
		return nil, dbus.NewError(ErrorUnavailable, []interface{}{err.Error()})
	}
	return MessagesToMaps(entries), nil
}

// Connection returns the underlying D-Bus connection.
func (s *Server) Connection() *dbus.Conn {
	return s.conn
}

// overlayMethods returns the D-Bus method introspection data.
func overlayMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Post",
			Args: []introspect.Arg{
				{Name: "text", Type: "s", Direction: "in"},
				{Name: "type", Type: "s", Direction: "in"},
				{Name: "duration_ms", Type: "x", Direction: "in"},
				{Name: "animated", Type: "b", Direction: "in"},
				{Name: "immediate", Type: "b", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{Name: "Hide"},
		{Name: "HideTemporary"},
		{Name: "Show"},
		{
			Name: "Touch",
			Args: []introspect.Arg{
				{Name: "gesture", Type: "s", Direction: "in"},
			},
		},
		{Name: "SaveState"},
		{Name: "RestoreState"},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "phase", Type: "s", Direction: "out"},
				{Name: "current", Type: "a{sv}", Direction: "out"},
				{Name: "queued", Type: "u", Direction: "out"},
			},
		},
		{
			Name: "History",
			Args: []introspect.Arg{
				{Name: "entries", Type: "aa{sv}", Direction: "out"},
			},
		},
	}
}

// overlaySignals returns the D-Bus signal introspection data.
func overlaySignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: SignalMessageSwitched,
			Args: []introspect.Arg{
				{Name: "old", Type: "a{sv}"},
				{Name: "new", Type: "a{sv}"},
			},
		},
		{Name: SignalHidden},
		{
			Name: SignalQueueClearedWithLoss,
			Args: []introspect.Arg{
				{Name: "removed", Type: "aa{sv}"},
			},
		},
		{
			Name: SignalGestureRecognized,
			Args: []introspect.Arg{
				{Name: "gesture", Type: "s"},
			},
		},
	}
}
