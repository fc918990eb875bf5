package theme

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/overbar/internal/config"
)

// Loader resolves themes into a CSS provider attached to the display.
// LoadTheme and Apply must be called on the GTK main loop.
type Loader struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	provider    *gtk.CSSProvider
	themesDir   string
	currentName string
	theme       *Theme
	watcher     *Watcher
}

// NewLoader creates a theme loader reading user themes from ThemesDir.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	themesDir, err := ThemesDir()
	if err != nil {
		logger.Warn("failed to get themes directory", "error", err)
		themesDir = ""
	}

	return &Loader{
		logger:    logger,
		provider:  gtk.NewCSSProvider(),
		themesDir: themesDir,
	}
}

// resolve finds a theme by name: the user's themes directory first, then the
// bundled set, then the bundled default.
func (l *Loader) resolve(name string) (*Theme, error) {
	if l.themesDir != "" {
		path := filepath.Join(l.themesDir, name+".css")
		if _, err := os.Stat(path); err == nil {
			t, err := NewTheme(name, path)
			if err == nil {
				return t, nil
			}
			l.logger.Warn("failed to load user theme, trying bundled", "theme", name, "error", err)
		}
	}

	if t, ok := NewBundledTheme(name); ok {
		return t, nil
	}

	l.logger.Warn("theme not found, using default", "theme", name)
	t, _ := NewBundledTheme(DefaultThemeName)
	return t, &ThemeNotFoundError{Name: name}
}

// LoadTheme loads a theme by name into the provider. An unknown name falls
// back to the default theme and returns a ThemeNotFoundError.
func (l *Loader) LoadTheme(name string) error {
	if name == "" {
		name = DefaultThemeName
	}

	t, err := l.resolve(name)

	l.mu.Lock()
	l.theme = t
	l.currentName = t.Name
	l.provider.LoadFromString(t.CSS)
	l.mu.Unlock()

	l.logger.Info("loaded theme", "name", t.Name, "path", t.Path, "bundled", t.Bundled)
	return err
}

// Apply attaches the provider to display, or to the default display when nil.
func (l *Loader) Apply(display *gdk.Display) {
	if display == nil {
		display = gdk.DisplayGetDefault()
	}
	if display == nil {
		l.logger.Warn("no display available, cannot apply theme")
		return
	}

	gtk.StyleContextAddProviderForDisplay(display, l.provider, gtk.STYLE_PROVIDER_PRIORITY_APPLICATION)
	l.logger.Debug("applied theme to display", "name", l.CurrentTheme())
}

// SetColorScheme forces libadwaita's light or dark palette, or follows the
// system for ColorSchemeSystem.
func (l *Loader) SetColorScheme(scheme config.ColorScheme) {
	sm := adw.StyleManagerGetDefault()
	switch scheme {
	case config.ColorSchemeLight:
		sm.SetColorScheme(adw.ColorSchemeForceLight)
	case config.ColorSchemeDark:
		sm.SetColorScheme(adw.ColorSchemeForceDark)
	default:
		sm.SetColorScheme(adw.ColorSchemeDefault)
	}
}

// ColorSchemeClass returns the "light" or "dark" class for the effective palette.
func ColorSchemeClass() string {
	if adw.StyleManagerGetDefault().Dark() {
		return "dark"
	}
	return "light"
}

// Reload reloads the current theme by name.
func (l *Loader) Reload() error {
	return l.LoadTheme(l.CurrentTheme())
}

// StartHotReload watches the current theme's file and reloads the provider
// on the main loop when it changes. Bundled themes are not watched.
func (l *Loader) StartHotReload() {
	l.StopHotReload()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.theme == nil || l.theme.Bundled {
		l.logger.Debug("not starting hot-reload for bundled theme")
		return
	}

	w := NewWatcher(l.theme, l.logger)
	name := l.theme.Name
	w.SetChangeCallback(func(css string) {
		glib.IdleAdd(func() {
			l.provider.LoadFromString(css)
			l.logger.Info("hot-reloaded theme", "name", name)
		})
	})
	if err := w.Start(); err != nil {
		l.logger.Warn("failed to start theme watcher", "error", err)
		return
	}
	l.watcher = w
}

// StopHotReload stops watching the theme file.
func (l *Loader) StopHotReload() {
	l.mu.Lock()
	w := l.watcher
	l.watcher = nil
	l.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// Provider returns the underlying CSS provider.
func (l *Loader) Provider() *gtk.CSSProvider {
	return l.provider
}

// CurrentTheme returns the name of the loaded theme.
func (l *Loader) CurrentTheme() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentName
}

// Theme returns the loaded theme.
func (l *Loader) Theme() *Theme {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.theme
}

// ListThemes returns the names of bundled and user themes.
func (l *Loader) ListThemes() []string {
	infos, err := ListAvailableThemes(l.themesDir)
	if err != nil {
		l.logger.Debug("failed to read themes directory", "error", err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

// ThemeNotFoundError reports a theme name that matched neither a user nor a
// bundled theme.
type ThemeNotFoundError struct {
	Name string
}

func (e *ThemeNotFoundError) Error() string {
	return "theme not found: " + e.Name
}
