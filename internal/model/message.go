// Package model defines the core data structures for overbar.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MessageType selects the indicator shown next to a message.
type MessageType int

const (
	// MessageTypeActivity shows a spinner. Typically persists until replaced.
	MessageTypeActivity MessageType = iota
	// MessageTypeFinish shows a check mark and hides the overlay once it expires.
	MessageTypeFinish
	// MessageTypeError shows a cross and hides the overlay once it expires.
	MessageTypeError
)

// MessageTypeNames maps message types to their wire names.
var MessageTypeNames = map[MessageType]string{
	MessageTypeActivity: "activity",
	MessageTypeFinish:   "finish",
	MessageTypeError:    "error",
}

// String returns the wire name of the message type.
func (t MessageType) String() string {
	if name, ok := MessageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the defined message types.
func (t MessageType) Valid() bool {
	_, ok := MessageTypeNames[t]
	return ok
}

// Animation controls how a message transition is presented.
type Animation int

const (
	// AnimationNone swaps the content without a transition.
	AnimationNone Animation = iota
	// AnimationFade cross-fades the old and new content.
	AnimationFade
	// AnimationShrink slides the bar into its shrinked geometry.
	AnimationShrink
	// AnimationFallDown drops the new content in from above.
	AnimationFallDown
)

var animationNames = map[Animation]string{
	AnimationNone:     "none",
	AnimationFade:     "fade",
	AnimationShrink:   "shrink",
	AnimationFallDown: "fall-down",
}

// String returns the config name of the animation.
func (a Animation) String() string {
	if name, ok := animationNames[a]; ok {
		return name
	}
	return "unknown"
}

// Validation errors.
var (
	ErrInvalidMessageType = errors.New("message type must be activity, finish or error")
	ErrInvalidAnimation   = errors.New("animation must be none, fade, shrink or fall-down")
)

// ParseMessageType parses a message type name (case-insensitive).
func ParseMessageType(s string) (MessageType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range MessageTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMessageType, s)
}

// ParseAnimation parses an animation name (case-insensitive).
func ParseAnimation(s string) (Animation, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range animationNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAnimation, s)
}

// Indicator is the glyph drawn next to the message text.
type Indicator string

const (
	IndicatorSpinner Indicator = "spinner"
	IndicatorCheck   Indicator = "check"
	IndicatorCross   Indicator = "cross"
)

// Message is a single display request. It is a value type: once handed to
// the overlay it is never mutated, replacing it means posting a new one.
type Message struct {
	ID        string        `json:"id" yaml:"id"`
	Text      string        `json:"text" yaml:"text"`
	Type      MessageType   `json:"-" yaml:"-"`
	TypeName  string        `json:"type" yaml:"type"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Animated  bool          `json:"animated" yaml:"animated"`
	Immediate bool          `json:"immediate" yaml:"immediate"`
	PostedAt  time.Time     `json:"posted_at" yaml:"posted_at"`
}

// NewMessage builds a message with a fresh ULID. Negative durations are
// clamped to zero, which means the message persists until replaced.
func NewMessage(text string, t MessageType, duration time.Duration, animated, immediate bool) (Message, error) {
	if !t.Valid() {
		return Message{}, fmt.Errorf("%w: %d", ErrInvalidMessageType, int(t))
	}

	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Message{}, fmt.Errorf("failed to generate ULID: %w", err)
	}

	if duration < 0 {
		duration = 0
	}

	return Message{
		ID:        id.String(),
		Text:      text,
		Type:      t,
		TypeName:  t.String(),
		Duration:  duration,
		Animated:  animated,
		Immediate: immediate,
		PostedAt:  now,
	}, nil
}

// Terminal reports whether the message is a finish or error message, which
// hides the overlay once its duration elapses and nothing else is queued.
func (m Message) Terminal() bool {
	return m.Type == MessageTypeFinish || m.Type == MessageTypeError
}

// Persistent reports whether the message stays until it is replaced.
func (m Message) Persistent() bool {
	return m.Duration <= 0
}

// Indicator returns the glyph for the message type.
func (m Message) Indicator() Indicator {
	switch m.Type {
	case MessageTypeFinish:
		return IndicatorCheck
	case MessageTypeError:
		return IndicatorCross
	default:
		return IndicatorSpinner
	}
}

// TextTruncated returns the text truncated to maxLen characters.
// If the text is longer, it is truncated and "..." is appended.
func (m Message) TextTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	text := strings.Join(strings.Fields(m.Text), " ")

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
