package daemon

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/overbar/internal/model"
)

// NotificationLevel indicates the severity of an internal notice.
type NotificationLevel int

const (
	// NotificationLevelInfo is posted as a finish message.
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelError is posted as an error message.
	NotificationLevelError
)

// MessageType returns the message type a notice of this level is posted as.
func (l NotificationLevel) MessageType() model.MessageType {
	if l == NotificationLevelError {
		return model.MessageTypeError
	}
	return model.MessageTypeFinish
}

// InternalNotifier surfaces daemon events (config reloads, theme and audio
// failures) on the bar itself. Repeats of the same key within minInterval
// are dropped so a file saved in a loop cannot flood the queue.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time

	post    func(model.Message)
	newMsg  func(text string, t model.MessageType) (model.Message, error)
	enabled bool

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
}

// NewInternalNotifier creates a notifier. newMsg builds a message with the
// configured default duration; post queues it on the overlay.
func NewInternalNotifier(newMsg func(text string, t model.MessageType) (model.Message, error), post func(model.Message), logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		now:            time.Now,
		post:           post,
		newMsg:         newMsg,
		enabled:        true,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
	}
}

// SetEnabled enables or disables internal notices.
func (n *InternalNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetMinInterval sets the minimum interval between notices with the same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify posts text unless the same key was posted within minInterval.
func (n *InternalNotifier) Notify(key, text string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.enabled || n.post == nil || n.newMsg == nil {
		return
	}

	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.logger.Debug("internal notice rate-limited", "key", key)
		return
	}
	n.lastNotifyTime[key] = now

	msg, err := n.newMsg(text, level.MessageType())
	if err != nil {
		n.logger.Warn("failed to build internal notice", "key", key, "error", err)
		return
	}

	n.logger.Debug("posting internal notice", "key", key, "text", text)
	n.post(msg)
}

// NotifyConfigReloaded reports a successful configuration reload.
func (n *InternalNotifier) NotifyConfigReloaded() {
	n.Notify("config-reload", "Configuration reloaded", NotificationLevelInfo)
}

// NotifyConfigError reports a configuration file that failed to load.
func (n *InternalNotifier) NotifyConfigError(err error) {
	n.Notify("config-error", "Configuration error: "+err.Error(), NotificationLevelError)
}

// NotifyThemeError reports a theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify("theme-error", "Theme error: "+err.Error(), NotificationLevelError)
}

// NotifyAudioError reports a sound that failed to play.
func (n *InternalNotifier) NotifyAudioError(err error) {
	n.Notify("audio-error", "Audio error: "+err.Error(), NotificationLevelError)
}

// NotifyMirrorError reports a notification monitor that failed to start.
func (n *InternalNotifier) NotifyMirrorError(err error) {
	n.Notify("mirror-error", "Notification mirror unavailable: "+err.Error(), NotificationLevelError)
}
