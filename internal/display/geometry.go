package display

import (
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/model"
)

// Geometry is the window placement for one phase.
type Geometry struct {
	Visible bool
	Bottom  bool // Anchored to the bottom edge instead of the top
	Left    bool // Anchored to the left edge
	Right   bool // Anchored to the right edge
	Width   int  // -1 spans the anchored edges
	Height  int  // Bar height, excluding the detail list
	Detail  int  // Detail list height, 0 when collapsed
	Class   string
}

// GeometryFor returns the placement of the bar in phase p. Shown spans the
// edge, Shrinked is a narrow strip in the right corner and ExpandedDetail
// adds the history list below (or above, for bottom bars) the strip.
func GeometryFor(p model.Phase, cfg config.DisplayConfig) Geometry {
	g := Geometry{
		Bottom: cfg.Edge == string(config.EdgeBottom),
		Height: cfg.Height,
	}

	switch p {
	case model.PhaseShown:
		g.Visible = true
		g.Left, g.Right = true, true
		g.Width = -1
	case model.PhaseShrinked:
		g.Visible = true
		g.Right = true
		g.Width = cfg.ShrinkWidth
		g.Class = "shrinked"
	case model.PhaseExpandedDetail:
		g.Visible = true
		g.Left, g.Right = true, true
		g.Width = -1
		g.Detail = cfg.DetailHeight
		g.Class = "expanded"
	}
	return g
}

// TotalHeight is the window height including the detail list.
func (g Geometry) TotalHeight() int {
	return g.Height + g.Detail
}

// typeClass returns the CSS class for a message type.
func typeClass(t model.MessageType) string {
	return "type-" + t.String()
}

// indicatorIcon returns the icon name drawn for finish and error messages.
func indicatorIcon(i model.Indicator) string {
	switch i {
	case model.IndicatorCheck:
		return "object-select-symbolic"
	case model.IndicatorCross:
		return "dialog-error-symbolic"
	default:
		return ""
	}
}

// queuedText is the badge shown while messages wait behind the current one.
func queuedText(n int) string {
	if n <= 0 {
		return ""
	}
	return "+" + humanize.Comma(int64(n))
}
