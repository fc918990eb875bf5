package model

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is the display phase of the overlay.
type Phase int

const (
	// PhaseHidden means nothing is displayed.
	PhaseHidden Phase = iota
	// PhaseShown is the full-width bar.
	PhaseShown
	// PhaseShrinked is the narrow strip entered by a tap.
	PhaseShrinked
	// PhaseExpandedDetail shows the history below the bar.
	PhaseExpandedDetail
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseShown:
		return "shown"
	case PhaseShrinked:
		return "shrinked"
	case PhaseExpandedDetail:
		return "expanded"
	default:
		return "unknown"
	}
}

// Visible reports whether the phase puts anything on screen.
func (p Phase) Visible() bool {
	return p != PhaseHidden
}

// Gesture is a user touch interaction on the overlay.
type Gesture int

const (
	// GestureTap toggles between shown and shrinked.
	GestureTap Gesture = iota
	// GestureExpand toggles between shown and the detail view.
	GestureExpand
)

// ErrInvalidGesture is returned for unknown gesture names.
var ErrInvalidGesture = errors.New("gesture must be tap or expand")

// String returns the string representation of Gesture.
func (g Gesture) String() string {
	switch g {
	case GestureTap:
		return "tap"
	case GestureExpand:
		return "expand"
	default:
		return "unknown"
	}
}

// ParseGesture parses a gesture name.
func ParseGesture(s string) (Gesture, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tap", "":
		return GestureTap, nil
	case "expand", "long-press":
		return GestureExpand, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidGesture, s)
	}
}

// ErrInvalidPhase is returned for unknown phase names.
var ErrInvalidPhase = errors.New("phase must be hidden, shown, shrinked or expanded")

// ParsePhase parses a phase name as produced by Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{PhaseHidden, PhaseShown, PhaseShrinked, PhaseExpandedDetail} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}
