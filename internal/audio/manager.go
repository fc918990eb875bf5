package audio

import (
	"log/slog"
	"os"
	"sync"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/model"
	"github.com/jmylchreest/overbar/internal/overlay"
)

// soundPlayer is the playback backend used by Manager.
type soundPlayer interface {
	cacheInvalidator
	Load(t model.MessageType, path string) error
	Play(t model.MessageType) error
	Path(t model.MessageType) (string, bool)
	SetVolume(volume float64)
	Reset()
	Close()
}

// soundTypes are the message types that can carry a sound.
var soundTypes = []model.MessageType{model.MessageTypeFinish, model.MessageTypeError}

// Manager plays the configured sound for finish and error messages.
type Manager struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	player  soundPlayer
	watcher *Watcher
	enabled bool
}

// NewManager creates an audio manager backed by the speaker.
func NewManager(cfg *config.DaemonConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return newManager(cfg, NewPlayer(logger), logger)
}

func newManager(cfg *config.DaemonConfig, player soundPlayer, logger *slog.Logger) *Manager {
	m := &Manager{
		logger: logger,
		player: player,
	}

	watcher, err := NewWatcher(player, logger)
	if err != nil {
		logger.Warn("sound file watching disabled", "error", err)
	} else {
		m.watcher = watcher
	}

	m.UpdateConfig(cfg)
	return m
}

// UpdateConfig applies audio settings. It is called at startup and when
// the config file is hot-reloaded.
func (m *Manager) UpdateConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}

	m.mu.Lock()
	m.enabled = cfg.Audio.Enabled
	m.mu.Unlock()

	m.player.Reset()
	m.player.SetVolume(float64(cfg.Audio.Volume) / 100.0)
	if m.watcher != nil {
		m.watcher.UnwatchAll()
	}
	if !cfg.Audio.Enabled {
		m.logger.Debug("audio disabled")
		return
	}

	loaded := 0
	for _, t := range soundTypes {
		path := cfg.SoundFor(t)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			m.logger.Warn("sound file not found", "type", t, "path", path)
			continue
		}
		if err := m.player.Load(t, path); err != nil {
			m.logger.Warn("failed to load sound", "type", t, "path", path, "error", err)
		}
		if m.watcher != nil {
			m.watcher.Watch(path)
		}
		loaded++
	}

	m.logger.Debug("audio configured", "sounds", loaded)
}

// SoundFor returns the sound path bound to t while audio is enabled.
func (m *Manager) SoundFor(t model.MessageType) (string, bool) {
	m.mu.RLock()
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled {
		return "", false
	}
	return m.player.Path(t)
}

// PlayForType plays the sound configured for the given message type.
func (m *Manager) PlayForType(t model.MessageType) error {
	if _, ok := m.SoundFor(t); !ok {
		return nil
	}
	return m.player.Play(t)
}

// Delegate returns an overlay delegate that plays a sound whenever the bar
// switches to a message. Decoding runs off the caller's goroutine.
func (m *Manager) Delegate() overlay.Delegate {
	return overlay.DelegateFuncs{
		OnSwitch: func(_ *model.Message, next model.Message) {
			if _, ok := m.SoundFor(next.Type); !ok {
				return
			}
			go func() {
				if err := m.PlayForType(next.Type); err != nil {
					m.logger.Warn("failed to play sound", "type", next.Type, "error", err)
				}
			}()
		},
	}
}

// Stop shuts down the audio manager.
func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.player.Close()
	m.logger.Debug("audio manager stopped")
}
