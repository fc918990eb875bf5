package audio

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// cacheInvalidator drops a decoded sound.
type cacheInvalidator interface {
	InvalidateCache(path string)
}

// Watcher drops cached sounds when their files are rewritten, so a replaced
// sound file is picked up without restarting the daemon.
type Watcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	cache   cacheInvalidator
	watcher *fsnotify.Watcher

	// Watched files, keyed by cleaned path, and the directories carrying them.
	files map[string]bool
	dirs  map[string]int

	done chan struct{}
}

// NewWatcher creates a watcher that invalidates entries in cache.
func NewWatcher(cache cacheInvalidator, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger:  logger,
		cache:   cache,
		watcher: fw,
		files:   make(map[string]bool),
		dirs:    make(map[string]int),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch adds a sound file. Its directory is watched, so the file need not exist yet.
func (w *Watcher) Watch(path string) {
	if path == "" {
		return
	}
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return
	}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Debug("cannot watch sound directory", "dir", dir, "error", err)
			return
		}
	}
	w.dirs[dir]++
	w.files[path] = true
}

// UnwatchAll forgets every watched file.
func (w *Watcher) UnwatchAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		_ = w.watcher.Remove(dir)
	}
	w.files = make(map[string]bool)
	w.dirs = make(map[string]int)
}

// Watched reports whether path is being watched.
func (w *Watcher) Watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(path)]
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}

			path := filepath.Clean(event.Name)
			w.mu.Lock()
			watched := w.files[path]
			w.mu.Unlock()

			if watched {
				w.logger.Debug("sound file changed, invalidating cache", "path", path)
				w.cache.InvalidateCache(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("sound watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}
	close(w.done)
	_ = w.watcher.Close()
}
