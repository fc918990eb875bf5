package theme

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/overbar/internal/store"
)

// Watcher reloads a theme file when it changes on disk.
type Watcher struct {
	mu       sync.Mutex
	logger   *slog.Logger
	theme    *Theme
	files    *store.FileWatcher
	onChange func(css string)
}

// NewWatcher creates a watcher for a file-backed theme.
func NewWatcher(theme *Theme, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{logger: logger, theme: theme}
}

// SetChangeCallback sets the function invoked with the new CSS after a reload.
// It runs on the watcher goroutine.
func (w *Watcher) SetChangeCallback(callback func(css string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Start begins watching. Bundled themes have no file and are not watched.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files != nil {
		return nil
	}
	if w.theme == nil || w.theme.Bundled || w.theme.Path == "" {
		w.logger.Debug("not watching bundled theme")
		return nil
	}

	files, err := store.NewFileWatcher(w.theme.Path, w.reload, w.logger)
	if err != nil {
		return err
	}
	if err := files.Start(); err != nil {
		_ = files.Stop()
		return err
	}
	w.files = files
	w.logger.Debug("theme watcher started", "path", w.theme.Path)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	files := w.files
	w.files = nil
	w.mu.Unlock()

	if files != nil {
		_ = files.Stop()
		w.logger.Debug("theme watcher stopped")
	}
}

// IsRunning reports whether the theme file is being watched.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files != nil
}

func (w *Watcher) reload() {
	w.mu.Lock()
	theme := w.theme
	callback := w.onChange
	w.mu.Unlock()

	changed, err := theme.Reload()
	if err != nil {
		w.logger.Warn("failed to reload theme", "path", theme.Path, "error", err)
		return
	}
	if !changed {
		return
	}

	w.logger.Info("theme file changed, reloading", "path", theme.Path)
	if callback != nil {
		callback(theme.CSS)
	}
}
