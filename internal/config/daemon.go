package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/overbar/internal/model"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "2s", "1m", "1h30m", or integer milliseconds as a string.
// A value of "0" means the message persists until replaced.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '2s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int64 {
	return time.Duration(d).Milliseconds()
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for overbard.
// Loaded from ~/.config/overbar/overbard.toml
type DaemonConfig struct {
	Display   DisplayConfig   `toml:"display"`
	Durations DurationsConfig `toml:"durations"`
	Animation AnimationConfig `toml:"animation"`
	Audio     AudioConfig     `toml:"audio"`
	Theme     ThemeConfig     `toml:"theme"`
	Mirror    MirrorConfig    `toml:"mirror"`
	State     StateConfig     `toml:"state"`
}

// DisplayConfig contains the bar geometry.
type DisplayConfig struct {
	Edge         string  `toml:"edge"`          // "top" or "bottom"
	Height       int     `toml:"height"`        // Bar height in pixels
	ShrinkWidth  int     `toml:"shrink_width"`  // Width of the shrinked strip
	DetailHeight int     `toml:"detail_height"` // Height of the expanded history list
	Monitor      int     `toml:"monitor"`       // 0 = focused, 1+ = specific monitor
	Opacity      float64 `toml:"opacity"`       // 0.0-1.0, background opacity
	MaxText      int     `toml:"max_text"`      // Truncate text to this many characters (0 = no limit)
}

// DurationsConfig contains the default display time per message type,
// used when a client does not specify one.
type DurationsConfig struct {
	Activity Duration `toml:"activity"` // e.g. "0" to persist until replaced
	Finish   Duration `toml:"finish"`   // e.g. "2s"
	Error    Duration `toml:"error"`    // e.g. "5s"
}

// AnimationConfig contains transition settings.
type AnimationConfig struct {
	Enabled  bool     `toml:"enabled"`
	Duration Duration `toml:"duration"` // Transition length
	Style    string   `toml:"style"`    // "none", "fade", "shrink", "fall-down"
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool        `toml:"enabled"`
	Volume  int         `toml:"volume"` // 0-100
	Sounds  SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-type sound file paths.
type SoundConfig struct {
	Finish string `toml:"finish"`
	Error  string `toml:"error"`
}

// ThemeConfig contains theme settings.
type ThemeConfig struct {
	Name        string `toml:"name"`         // Theme name without .css extension
	ColorScheme string `toml:"color_scheme"` // "system", "light", or "dark"
}

// ColorScheme represents the color scheme preference.
type ColorScheme string

const (
	ColorSchemeSystem ColorScheme = "system"
	ColorSchemeLight  ColorScheme = "light"
	ColorSchemeDark   ColorScheme = "dark"
)

// ValidColorSchemes returns all valid color scheme values.
func ValidColorSchemes() []ColorScheme {
	return []ColorScheme{ColorSchemeSystem, ColorSchemeLight, ColorSchemeDark}
}

// MirrorConfig controls mirroring of desktop notifications onto the bar.
type MirrorConfig struct {
	Enabled         bool     `toml:"enabled"`
	MinUrgency      string   `toml:"min_urgency"`       // "low", "normal", "critical"
	CriticalAsError bool     `toml:"critical_as_error"` // Post critical notifications as errors
	IgnoreApps      []string `toml:"ignore_apps"`       // App names never mirrored
}

// StateConfig controls persistence of the shrink preference.
type StateConfig struct {
	RestoreOnStart bool `toml:"restore_on_start"`
	SaveOnExit     bool `toml:"save_on_exit"`
}

// Edge is the screen edge the bar is anchored to.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// ValidEdges returns all valid edge values.
func ValidEdges() []Edge {
	return []Edge{EdgeTop, EdgeBottom}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Display: DisplayConfig{
			Edge:         string(EdgeTop),
			Height:       24,
			ShrinkWidth:  120,
			DetailHeight: 200,
			Monitor:      0,
			Opacity:      1.0,
			MaxText:      120,
		},
		Durations: DurationsConfig{
			Activity: Duration(0),
			Finish:   Duration(2 * time.Second),
			Error:    Duration(5 * time.Second),
		},
		Animation: AnimationConfig{
			Enabled:  true,
			Duration: Duration(250 * time.Millisecond),
			Style:    model.AnimationFade.String(),
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
			Sounds:  SoundConfig{},
		},
		Theme: ThemeConfig{
			Name:        "default",
			ColorScheme: string(ColorSchemeSystem),
		},
		Mirror: MirrorConfig{
			Enabled:         false,
			MinUrgency:      "normal",
			CriticalAsError: true,
		},
		State: StateConfig{
			RestoreOnStart: true,
			SaveOnExit:     true,
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "overbar", "overbard.toml"), nil
}

// LoadDaemonConfig loads the daemon configuration from the default path.
// If the file doesn't exist, returns the default configuration.
func LoadDaemonConfig() (*DaemonConfig, error) {
	path, err := DaemonConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadDaemonConfigFrom(path)
}

// LoadDaemonConfigFrom loads and validates the daemon configuration at path.
func LoadDaemonConfigFrom(path string) (*DaemonConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	validEdge := false
	for _, e := range ValidEdges() {
		if c.Display.Edge == string(e) {
			validEdge = true
			break
		}
	}
	if !validEdge {
		return fmt.Errorf("invalid edge %q, must be one of: %v", c.Display.Edge, ValidEdges())
	}

	if c.Display.Height < 8 || c.Display.Height > 200 {
		return fmt.Errorf("height must be between 8 and 200, got %d", c.Display.Height)
	}
	if c.Display.ShrinkWidth < 16 {
		return fmt.Errorf("shrink_width must be at least 16, got %d", c.Display.ShrinkWidth)
	}
	if c.Display.DetailHeight < 0 {
		return fmt.Errorf("detail_height must not be negative, got %d", c.Display.DetailHeight)
	}
	if c.Display.Opacity < 0 || c.Display.Opacity > 1 {
		return fmt.Errorf("opacity must be between 0.0 and 1.0, got %g", c.Display.Opacity)
	}

	for name, d := range map[string]Duration{
		"activity": c.Durations.Activity,
		"finish":   c.Durations.Finish,
		"error":    c.Durations.Error,
	} {
		if d < 0 {
			return fmt.Errorf("durations.%s must not be negative, got %s", name, d.Duration())
		}
	}

	if _, err := model.ParseAnimation(c.Animation.Style); err != nil {
		return err
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	validScheme := false
	for _, s := range ValidColorSchemes() {
		if c.Theme.ColorScheme == string(s) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("invalid color_scheme %q, must be one of: %v", c.Theme.ColorScheme, ValidColorSchemes())
	}

	if _, err := model.ParseUrgency(c.Mirror.MinUrgency); err != nil {
		return fmt.Errorf("mirror.min_urgency: %w", err)
	}

	return nil
}

// AnimationStyle returns the configured transition, or AnimationNone when
// animations are disabled.
func (c *DaemonConfig) AnimationStyle() model.Animation {
	if !c.Animation.Enabled {
		return model.AnimationNone
	}
	a, err := model.ParseAnimation(c.Animation.Style)
	if err != nil {
		return model.AnimationFade
	}
	return a
}

// DurationFor returns the default display time for the given message type.
func (c *DaemonConfig) DurationFor(t model.MessageType) time.Duration {
	switch t {
	case model.MessageTypeFinish:
		return c.Durations.Finish.Duration()
	case model.MessageTypeError:
		return c.Durations.Error.Duration()
	default:
		return c.Durations.Activity.Duration()
	}
}

// SoundFor returns the sound file path for the given message type, or ""
// when the type has no sound. Expands ~ to the home directory.
func (c *DaemonConfig) SoundFor(t model.MessageType) string {
	var path string
	switch t {
	case model.MessageTypeFinish:
		path = c.Audio.Sounds.Finish
	case model.MessageTypeError:
		path = c.Audio.Sounds.Error
	}
	return expandPath(path)
}

// MirrorMinUrgency returns the parsed minimum urgency for mirrored
// notifications.
func (c *DaemonConfig) MirrorMinUrgency() int {
	u, err := model.ParseUrgency(c.Mirror.MinUrgency)
	if err != nil {
		return model.UrgencyNormal
	}
	return u
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
