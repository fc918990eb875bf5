package display

import (
	"log/slog"
	"unsafe"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/overbar/internal/config"
)

// LayoutManager places the bar window on a monitor edge.
type LayoutManager struct {
	config  config.DisplayConfig
	display *gdk.Display
	logger  *slog.Logger
}

// NewLayoutManager creates a new layout manager.
func NewLayoutManager(cfg config.DisplayConfig, logger *slog.Logger) *LayoutManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LayoutManager{
		config:  cfg,
		display: gdk.DisplayGetDefault(),
		logger:  logger,
	}
}

// UpdateConfig replaces the display settings.
func (l *LayoutManager) UpdateConfig(cfg config.DisplayConfig) {
	l.config = cfg
}

// InitWindow turns window into an overlay-layer surface that takes no
// keyboard focus and reserves no space.
func (l *LayoutManager) InitWindow(window *gtk.Window) {
	layershell.InitForWindow(window)
	layershell.SetLayer(window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(window, 0)
	layershell.SetKeyboardMode(window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(window, "overbar")

	if monitor := l.GetMonitor(); monitor != nil {
		layershell.SetMonitor(window, monitor)
	}
}

// Apply anchors and sizes window for g.
func (l *LayoutManager) Apply(window *gtk.Window, g Geometry) {
	layershell.SetAnchor(window, layershell.LayerShellEdgeTop, !g.Bottom)
	layershell.SetAnchor(window, layershell.LayerShellEdgeBottom, g.Bottom)
	layershell.SetAnchor(window, layershell.LayerShellEdgeLeft, g.Left)
	layershell.SetAnchor(window, layershell.LayerShellEdgeRight, g.Right)

	window.SetDefaultSize(g.Width, g.TotalHeight())
	window.SetSizeRequest(g.Width, g.TotalHeight())
}

// GetMonitor returns the configured monitor (1-indexed), or nil to let the
// compositor choose. An out-of-range index falls back to the first monitor.
func (l *LayoutManager) GetMonitor() *gdk.Monitor {
	if l.display == nil || l.config.Monitor == 0 {
		return nil
	}

	monitors := l.display.Monitors()
	if monitors == nil || monitors.NItems() == 0 {
		l.logger.Warn("no monitors list available")
		return nil
	}

	index := uint(l.config.Monitor - 1)
	if index >= monitors.NItems() {
		l.logger.Warn("configured monitor not available, using first",
			"configured", l.config.Monitor,
			"available", monitors.NItems(),
		)
		index = 0
	}

	return wrapMonitor(monitors.Item(index))
}

// wrapMonitor wraps a list item as a gdk.Monitor. gotk4 does not export
// its own wrapper, so this mirrors the struct layout it uses internally.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// HandleMonitorChange refreshes the display after a hotplug.
func (l *LayoutManager) HandleMonitorChange(window *gtk.Window) {
	l.display = gdk.DisplayGetDefault()
	if l.display == nil {
		l.logger.Warn("no display available after monitor change")
		return
	}
	if monitor := l.GetMonitor(); monitor != nil && window != nil {
		layershell.SetMonitor(window, monitor)
	}
	l.logger.Info("monitor configuration changed", "count", l.display.Monitors().NItems())
}
