package display

import (
	"log/slog"
	"slices"
	"time"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/model"
	"github.com/jmylchreest/overbar/internal/overlay"
	"github.com/jmylchreest/overbar/internal/theme"
)

// Mouse buttons mapped to gestures.
const (
	buttonPrimary   = 1
	buttonSecondary = 3
)

// revealSlack is added to the transition duration before a reveal that
// never reports completion is forced to finish.
const revealSlack = 200 * time.Millisecond

// Bar is the overlay window. It implements overlay.Renderer and must only
// be used from the GTK main loop.
type Bar struct {
	logger *slog.Logger
	layout *LayoutManager

	display    config.DisplayConfig
	transition time.Duration

	window    *gtk.Window
	revealer  *gtk.Revealer
	box       *gtk.Box
	spinner   *gtk.Spinner
	icon      *gtk.Image
	label     *gtk.Label
	queued    *gtk.Label
	detail    *gtk.ScrolledWindow
	history   *gtk.ListBox
	classes   []string
	phase     model.Phase
	onGesture func(model.Gesture)

	// In-flight reveal transition.
	pending       func()
	pendingTarget bool
	pendingTimer  glib.SourceHandle
}

// NewBar creates the bar window. It stays unmapped until the first visible frame.
func NewBar(app *gtk.Application, cfg *config.DaemonConfig, logger *slog.Logger) (*Bar, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	if gdk.DisplayGetDefault() == nil {
		return nil, &DisplayError{Message: "no display available"}
	}

	b := &Bar{
		logger:     logger,
		layout:     NewLayoutManager(cfg.Display, logger),
		display:    cfg.Display,
		transition: cfg.Animation.Duration.Duration(),
		phase:      model.PhaseHidden,
	}

	b.window = gtk.NewWindow()
	b.window.SetApplication(app)
	b.window.SetDecorated(false)
	b.window.SetResizable(false)
	b.layout.InitWindow(b.window)

	b.buildUI()
	b.connectSignals()
	b.layout.Apply(b.window, GeometryFor(model.PhaseShown, b.display))

	return b, nil
}

// buildUI constructs the widget tree: revealer > box > [bar row, detail list].
func (b *Bar) buildUI() {
	b.box = gtk.NewBox(gtk.OrientationVertical, 0)
	b.box.AddCSSClass("overbar")

	row := gtk.NewBox(gtk.OrientationHorizontal, 8)
	row.AddCSSClass("overbar-row")
	row.SetSizeRequest(-1, b.display.Height)

	b.spinner = gtk.NewSpinner()
	b.spinner.AddCSSClass("overbar-indicator")
	b.spinner.AddCSSClass("indicator-spinner")

	b.icon = gtk.NewImage()
	b.icon.AddCSSClass("overbar-indicator")
	b.icon.SetVisible(false)

	b.label = gtk.NewLabel("")
	b.label.AddCSSClass("overbar-label")
	b.label.SetXAlign(0)
	b.label.SetHExpand(true)
	b.label.SetEllipsize(3) // PANGO_ELLIPSIZE_END

	b.queued = gtk.NewLabel("")
	b.queued.AddCSSClass("overbar-queued")
	b.queued.SetVisible(false)

	row.Append(b.spinner)
	row.Append(b.icon)
	row.Append(b.label)
	row.Append(b.queued)

	b.history = gtk.NewListBox()
	b.history.AddCSSClass("overbar-history")
	b.history.SetSelectionMode(gtk.SelectionNone)

	b.detail = gtk.NewScrolledWindow()
	b.detail.AddCSSClass("overbar-detail")
	b.detail.SetPolicy(gtk.PolicyNever, gtk.PolicyAutomatic)
	b.detail.SetChild(b.history)
	b.detail.SetVisible(false)

	if b.display.Edge == string(config.EdgeBottom) {
		b.box.Append(b.detail)
		b.box.Append(row)
	} else {
		b.box.Append(row)
		b.box.Append(b.detail)
	}

	b.revealer = gtk.NewRevealer()
	b.revealer.SetChild(b.box)
	b.revealer.SetRevealChild(false)

	b.window.SetChild(b.revealer)
}

func (b *Bar) connectSignals() {
	click := gtk.NewGestureClick()
	click.SetButton(0) // All buttons
	click.ConnectReleased(func(nPress int, x, y float64) {
		switch click.CurrentButton() {
		case buttonPrimary:
			b.gesture(model.GestureTap)
		case buttonSecondary:
			b.gesture(model.GestureExpand)
		}
	})
	b.window.AddController(click)

	longPress := gtk.NewGestureLongPress()
	longPress.SetTouchOnly(true)
	longPress.ConnectPressed(func(x, y float64) {
		b.gesture(model.GestureExpand)
	})
	b.window.AddController(longPress)

	b.revealer.NotifyProperty("child-revealed", func() {
		if b.pending != nil && b.revealer.ChildRevealed() == b.pendingTarget {
			b.complete()
		}
	})

	if display := gdk.DisplayGetDefault(); display != nil {
		display.Monitors().ConnectItemsChanged(func(_, _, _ uint) {
			b.layout.HandleMonitorChange(b.window)
		})
	}
}

// SetGestureHandler sets the function receiving pointer gestures.
func (b *Bar) SetGestureHandler(fn func(model.Gesture)) {
	b.onGesture = fn
}

func (b *Bar) gesture(g model.Gesture) {
	b.logger.Debug("gesture", "gesture", g, "phase", b.phase)
	if b.onGesture != nil {
		b.onGesture(g)
	}
}

// Render implements overlay.Renderer.
func (b *Bar) Render(f overlay.Frame, done func()) {
	if b.pending != nil {
		// The animator never overlaps frames; finish a stray one first.
		b.complete()
	}

	b.phase = f.Phase
	g := GeometryFor(f.Phase, b.display)

	if !g.Visible {
		b.hide(f, done)
		return
	}

	b.update(f, g)
	b.layout.Apply(b.window, g)
	b.window.SetVisible(true)

	if b.revealer.RevealChild() {
		done()
		return
	}
	b.reveal(true, f, done)
}

func (b *Bar) hide(f overlay.Frame, done func()) {
	if !b.window.Visible() {
		done()
		return
	}
	b.reveal(false, f, func() {
		b.window.SetVisible(false)
		b.spinner.Stop()
		done()
	})
}

// reveal runs the revealer towards target and calls done when it settles.
func (b *Bar) reveal(target bool, f overlay.Frame, done func()) {
	if !f.Animated {
		b.revealer.SetTransitionType(gtk.RevealerTransitionTypeNone)
		b.revealer.SetTransitionDuration(0)
		b.revealer.SetRevealChild(target)
		done()
		return
	}

	b.revealer.SetTransitionType(b.transitionType(f.Animation))
	b.revealer.SetTransitionDuration(uint(b.transition.Milliseconds()))

	b.pending = done
	b.pendingTarget = target
	b.pendingTimer = glib.TimeoutAdd(uint((b.transition + revealSlack).Milliseconds()), func() bool {
		b.pendingTimer = 0
		if b.pending != nil {
			b.logger.Debug("reveal did not report completion, forcing", "target", target)
			b.complete()
		}
		return false
	})
	b.revealer.SetRevealChild(target)
}

func (b *Bar) complete() {
	if b.pendingTimer != 0 {
		glib.SourceRemove(b.pendingTimer)
		b.pendingTimer = 0
	}
	done := b.pending
	b.pending = nil
	if done != nil {
		done()
	}
}

func (b *Bar) transitionType(a model.Animation) gtk.RevealerTransitionType {
	switch a {
	case model.AnimationFade:
		return gtk.RevealerTransitionTypeCrossfade
	case model.AnimationShrink:
		return gtk.RevealerTransitionTypeSlideLeft
	case model.AnimationFallDown:
		if b.display.Edge == string(config.EdgeBottom) {
			return gtk.RevealerTransitionTypeSlideUp
		}
		return gtk.RevealerTransitionTypeSlideDown
	default:
		return gtk.RevealerTransitionTypeNone
	}
}

// update refreshes the content and CSS classes for a visible frame.
func (b *Bar) update(f overlay.Frame, g Geometry) {
	classes := []string{"overbar", theme.ColorSchemeClass()}
	if g.Bottom {
		classes = append(classes, "edge-bottom")
	}
	if g.Class != "" {
		classes = append(classes, g.Class)
	}
	if b.display.Opacity < 1.0 {
		classes = append(classes, "translucent")
	}

	if m := f.Message; m != nil {
		classes = append(classes, typeClass(m.Type))
		b.label.SetText(m.TextTruncated(b.textLimit()))
		b.label.SetTooltipText(m.Text)

		if icon := indicatorIcon(m.Indicator()); icon != "" {
			b.spinner.Stop()
			b.spinner.SetVisible(false)
			b.icon.SetFromIconName(icon)
			b.icon.SetCSSClasses([]string{"overbar-indicator", "indicator-" + string(m.Indicator())})
			b.icon.SetVisible(true)
		} else {
			b.icon.SetVisible(false)
			b.spinner.SetVisible(true)
			b.spinner.Start()
		}
	}

	if !slices.Equal(classes, b.classes) {
		b.box.SetCSSClasses(classes)
		b.classes = classes
	}

	text := queuedText(f.Queued)
	b.queued.SetText(text)
	if f.Next != "" {
		b.queued.SetTooltipText("Next: " + f.Next)
	} else {
		b.queued.SetTooltipText("")
	}
	b.queued.SetVisible(text != "" && g.Class != "shrinked")

	if g.Detail > 0 {
		b.fillHistory(f.History)
		b.detail.SetMinContentHeight(g.Detail)
		b.detail.SetVisible(true)
	} else {
		b.detail.SetVisible(false)
	}
}

func (b *Bar) textLimit() int {
	if b.phase == model.PhaseShrinked {
		// Roughly what fits in the strip at the default font size.
		return max(4, b.display.ShrinkWidth/9)
	}
	if b.display.MaxText > 0 {
		return b.display.MaxText
	}
	return 1 << 16
}

// fillHistory replaces the detail rows with entries, newest first.
func (b *Bar) fillHistory(entries []model.Message) {
	for child := b.history.FirstChild(); child != nil; child = b.history.FirstChild() {
		b.history.Remove(child)
	}

	for i := len(entries) - 1; i >= 0; i-- {
		m := entries[i]

		row := gtk.NewBox(gtk.OrientationHorizontal, 8)
		row.AddCSSClass("overbar-history-row")
		row.AddCSSClass(typeClass(m.Type))

		if icon := indicatorIcon(m.Indicator()); icon != "" {
			img := gtk.NewImageFromIconName(icon)
			img.AddCSSClass("indicator-" + string(m.Indicator()))
			row.Append(img)
		}

		text := gtk.NewLabel(m.Text)
		text.SetXAlign(0)
		text.SetHExpand(true)
		text.SetEllipsize(3) // PANGO_ELLIPSIZE_END
		row.Append(text)

		when := gtk.NewLabel(humanize.Time(m.PostedAt))
		when.AddCSSClass("overbar-history-time")
		row.Append(when)

		b.history.Append(row)
	}
}

// UpdateConfig applies new display and animation settings. The next frame
// picks them up; the current geometry is re-applied when visible.
func (b *Bar) UpdateConfig(cfg *config.DaemonConfig) {
	b.display = cfg.Display
	b.transition = cfg.Animation.Duration.Duration()
	b.layout.UpdateConfig(cfg.Display)

	if g := GeometryFor(b.phase, b.display); g.Visible {
		b.layout.Apply(b.window, g)
	}
}

// Phase returns the phase of the last rendered frame.
func (b *Bar) Phase() model.Phase {
	return b.phase
}

// Stop destroys the window, completing any transition in flight.
func (b *Bar) Stop() {
	b.complete()
	b.window.Destroy()
	b.logger.Debug("bar stopped")
}

// DisplayError represents a display-related error.
type DisplayError struct {
	Message string
	Cause   error
}

func (e *DisplayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DisplayError) Unwrap() error {
	return e.Cause
}
