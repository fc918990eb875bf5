package overlay

import (
	"github.com/jmylchreest/overbar/internal/model"
)

// Delegate receives overlay events. Callbacks run synchronously on the
// overlay's event loop, from whichever call triggered them.
type Delegate interface {
	GestureRecognized(g model.Gesture)
	Hidden()
	MessageSwitched(old *model.Message, new model.Message)
	QueueClearedWithLoss(removed []model.Message)
}

// DelegateFuncs adapts optional function handles to Delegate.
// Nil fields are skipped.
type DelegateFuncs struct {
	OnGesture   func(g model.Gesture)
	OnHide      func()
	OnSwitch    func(old *model.Message, new model.Message)
	OnQueueLoss func(removed []model.Message)
}

// GestureRecognized implements Delegate.
func (d DelegateFuncs) GestureRecognized(g model.Gesture) {
	if d.OnGesture != nil {
		d.OnGesture(g)
	}
}

// Hidden implements Delegate.
func (d DelegateFuncs) Hidden() {
	if d.OnHide != nil {
		d.OnHide()
	}
}

// MessageSwitched implements Delegate.
func (d DelegateFuncs) MessageSwitched(old *model.Message, new model.Message) {
	if d.OnSwitch != nil {
		d.OnSwitch(old, new)
	}
}

// QueueClearedWithLoss implements Delegate.
func (d DelegateFuncs) QueueClearedWithLoss(removed []model.Message) {
	if d.OnQueueLoss != nil {
		d.OnQueueLoss(removed)
	}
}

// MultiDelegate fans events out to several delegates in order.
type MultiDelegate []Delegate

// GestureRecognized implements Delegate.
func (m MultiDelegate) GestureRecognized(g model.Gesture) {
	for _, d := range m {
		if d != nil {
			d.GestureRecognized(g)
		}
	}
}

// Hidden implements Delegate.
func (m MultiDelegate) Hidden() {
	for _, d := range m {
		if d != nil {
			d.Hidden()
		}
	}
}

// MessageSwitched implements Delegate.
func (m MultiDelegate) MessageSwitched(old *model.Message, new model.Message) {
	for _, d := range m {
		if d != nil {
			d.MessageSwitched(old, new)
		}
	}
}

// QueueClearedWithLoss implements Delegate.
func (m MultiDelegate) QueueClearedWithLoss(removed []model.Message) {
	for _, d := range m {
		if d != nil {
			d.QueueClearedWithLoss(removed)
		}
	}
}

// notifier collects the events raised during one overlay call and delivers
// them when the outermost call returns, at most once per kind, in the order
// gesture, queue loss, switch, hide.
type notifier struct {
	delegate Delegate
	depth    int

	gesture *model.Gesture

	lost []model.Message

	switched  bool
	switchOld *model.Message
	switchNew model.Message

	hidden bool

	deferred []func()
}

// begin opens a call scope. Every begin must be paired with flush.
func (n *notifier) begin() {
	n.depth++
}

func (n *notifier) gestureRecognized(g model.Gesture) {
	n.gesture = &g
}

// queueLost records removed messages. Empty batches are ignored.
func (n *notifier) queueLost(removed []model.Message) {
	if len(removed) == 0 {
		return
	}
	if n.lost == nil {
		n.lost = make([]model.Message, 0, len(removed))
	}
	n.lost = append(n.lost, removed...)
}

// messageSwitched records a display change. Several switches within one call
// collapse into one event spanning the first old and the last new message.
func (n *notifier) messageSwitched(old *model.Message, new model.Message) {
	if !n.switched {
		n.switched = true
		if old != nil {
			o := *old
			n.switchOld = &o
		}
	}
	n.switchNew = new
}

func (n *notifier) hid() {
	n.hidden = true
}

// later runs f after the outermost scope has delivered its events, as a
// call of its own.
func (n *notifier) later(f func()) {
	n.deferred = append(n.deferred, f)
}

// flush closes a call scope and delivers pending events when it was the
// outermost one.
func (n *notifier) flush() {
	n.depth--
	if n.depth > 0 {
		return
	}
	n.depth = 0

	gesture, lost := n.gesture, n.lost
	switched, switchOld, switchNew := n.switched, n.switchOld, n.switchNew
	hidden := n.hidden

	n.gesture = nil
	n.lost = nil
	n.switched, n.switchOld, n.switchNew = false, nil, model.Message{}
	n.hidden = false

	deferred := n.deferred
	n.deferred = nil
	defer func() {
		for _, f := range deferred {
			f()
		}
	}()

	if n.delegate == nil {
		return
	}

	// Delegates may call back into the overlay; that opens a new scope.
	if gesture != nil {
		n.delegate.GestureRecognized(*gesture)
	}
	if lost != nil {
		n.delegate.QueueClearedWithLoss(lost)
	}
	if switched {
		n.delegate.MessageSwitched(switchOld, switchNew)
	}
	if hidden {
		n.delegate.Hidden()
	}
}
