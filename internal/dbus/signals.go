package dbus

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/overbar/internal/model"
	"github.com/jmylchreest/overbar/internal/overlay"
)

func (s *Server) emit(name string, args ...interface{}) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	if err := s.conn.Emit(DBusPath, DBusInterface+"."+name, args...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", name, err)
	}
	return nil
}

// EmitMessageSwitched emits the MessageSwitched signal. A nil old message
// travels as an empty map.
func (s *Server) EmitMessageSwitched(old *model.Message, new model.Message) error {
	oldMap := map[string]dbus.Variant{}
	if old != nil {
		oldMap = MessageToMap(*old)
	}
	if err := s.emit(SignalMessageSwitched, oldMap, MessageToMap(new)); err != nil {
		return err
	}

	s.logger.Debug("emitted MessageSwitched signal", "message_id", new.ID)
	return nil
}

// EmitHidden emits the Hidden signal.
func (s *Server) EmitHidden() error {
	if err := s.emit(SignalHidden); err != nil {
		return err
	}

	s.logger.Debug("emitted Hidden signal")
	return nil
}

// EmitQueueClearedWithLoss emits the QueueClearedWithLoss signal.
func (s *Server) EmitQueueClearedWithLoss(removed []model.Message) error {
	if err := s.emit(SignalQueueClearedWithLoss, MessagesToMaps(removed)); err != nil {
		return err
	}

	s.logger.Debug("emitted QueueClearedWithLoss signal", "removed", len(removed))
	return nil
}

// EmitGestureRecognized emits the GestureRecognized signal.
func (s *Server) EmitGestureRecognized(g model.Gesture) error {
	if err := s.emit(SignalGestureRecognized, g.String()); err != nil {
		return err
	}

	s.logger.Debug("emitted GestureRecognized signal", "gesture", g)
	return nil
}

// Delegate returns an overlay delegate that broadcasts every overlay event
// as a signal. Emission failures are logged, never returned to the overlay.
func (s *Server) Delegate() overlay.Delegate {
	warn := func(err error) {
		if err != nil {
			s.logger.Warn("failed to emit signal", "error", err)
		}
	}
	return overlay.DelegateFuncs{
		OnGesture: func(g model.Gesture) {
			warn(s.EmitGestureRecognized(g))
		},
		OnHide: func() {
			warn(s.EmitHidden())
		},
		OnSwitch: func(old *model.Message, new model.Message) {
			warn(s.EmitMessageSwitched(old, new))
		},
		OnQueueLoss: func(removed []model.Message) {
			warn(s.EmitQueueClearedWithLoss(removed))
		},
	}
}
