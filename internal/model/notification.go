package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Urgency levels from the freedesktop notification protocol.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[int]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// Validation errors.
var (
	ErrInvalidUrgency = errors.New("urgency must be low, normal, critical or 0-2")
	ErrEmptySummary   = errors.New("notification has neither summary nor body")
)

// ParseUrgency parses an urgency name or level.
func ParseUrgency(s string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for level, n := range UrgencyNames {
		if n == name {
			return level, nil
		}
	}
	if level, err := strconv.Atoi(name); err == nil && level >= UrgencyLow && level <= UrgencyCritical {
		return level, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

// Notification is a desktop notification observed on the session bus,
// reduced to the fields the bar mirrors.
type Notification struct {
	AppName       string    `json:"app_name"`
	Summary       string    `json:"summary"`
	Body          string    `json:"body"`
	Urgency       int       `json:"urgency"`
	UrgencyName   string    `json:"urgency_name"`
	ExpireTimeout int32     `json:"expire_timeout"` // ms; -1 = server default, 0 = never
	ReceivedAt    time.Time `json:"received_at"`
}

// NewNotification creates a notification with normal urgency.
func NewNotification(appName, summary, body string) *Notification {
	return &Notification{
		AppName:       appName,
		Summary:       summary,
		Body:          body,
		Urgency:       UrgencyNormal,
		UrgencyName:   UrgencyNames[UrgencyNormal],
		ExpireTimeout: -1,
		ReceivedAt:    time.Now(),
	}
}

// Validate checks that the notification has something to display.
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.Summary) == "" && strings.TrimSpace(n.Body) == "" {
		return ErrEmptySummary
	}
	if n.Urgency < UrgencyLow || n.Urgency > UrgencyCritical {
		return ErrInvalidUrgency
	}
	return nil
}

// SetUrgency sets the urgency level and its human-readable name.
func (n *Notification) SetUrgency(level int) {
	if level < UrgencyLow || level > UrgencyCritical {
		level = UrgencyNormal
	}
	n.Urgency = level
	n.UrgencyName = UrgencyNames[level]
}

// Text returns the single line shown on the bar: the summary, followed by
// the body when there is one. Whitespace is collapsed.
func (n *Notification) Text() string {
	summary := strings.Join(strings.Fields(n.Summary), " ")
	body := strings.Join(strings.Fields(n.Body), " ")

	switch {
	case summary == "":
		return body
	case body == "":
		return summary
	default:
		return summary + ": " + body
	}
}

// MessageType returns the message type a mirrored notification is posted as.
func (n *Notification) MessageType(criticalAsError bool) MessageType {
	if criticalAsError && n.Urgency == UrgencyCritical {
		return MessageTypeError
	}
	return MessageTypeFinish
}

// ExpireDuration returns the client's requested timeout, or fallback when
// the server default was requested.
func (n *Notification) ExpireDuration(fallback time.Duration) time.Duration {
	if n.ExpireTimeout < 0 {
		return fallback
	}
	return time.Duration(n.ExpireTimeout) * time.Millisecond
}
