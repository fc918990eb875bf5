package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrStateClosed is returned by a StateFile after Close.
var ErrStateClosed = errors.New("state file is closed")

// DataDir returns the path to the overbar data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/overbar.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "overbar"), nil
}

// StateFilePath returns the path to the state file.
func StateFilePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "state.json"), nil
}

// CurrentSchemaVersion is the current version of the state schema.
const CurrentSchemaVersion = 1

// State is the on-disk document: a flat set of named flags.
type State struct {
	Flags     map[string]bool `json:"flags"`
	UpdatedAt int64           `json:"updated_at,omitempty"` // Unix timestamp of the last write

	// Version for compatibility
	SchemaVersion int `json:"schema_version"`
}

// DefaultState returns an empty state.
func DefaultState() *State {
	return &State{
		Flags:         make(map[string]bool),
		SchemaVersion: CurrentSchemaVersion,
	}
}

// StateFile is a key-value store of boolean flags backed by a JSON file.
// Every write replaces the file atomically, so a crash never leaves a
// partial document behind. It is safe for concurrent use.
type StateFile struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewStateFile returns a store for the file at path. The file is created on
// the first write.
func NewStateFile(path string, logger *slog.Logger) *StateFile {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateFile{path: path, logger: logger}
}

// OpenDefault returns a store for the file under DataDir.
func OpenDefault(logger *slog.Logger) (*StateFile, error) {
	path, err := StateFilePath()
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}
	return NewStateFile(path, logger), nil
}

// Path returns the backing file path.
func (s *StateFile) Path() string {
	return s.path
}

// GetBool returns the flag stored under key, or false if it was never set.
func (s *StateFile) GetBool(key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrStateClosed
	}

	state, err := s.load()
	if err != nil {
		return false, err
	}
	return state.Flags[key], nil
}

// SetBool stores value under key.
func (s *StateFile) SetBool(key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	state, err := s.load()
	if err != nil {
		return err
	}
	state.Flags[key] = value
	state.UpdatedAt = time.Now().Unix()

	if err := s.save(state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	s.logger.Debug("state saved", "key", key, "value", value, "path", s.path)
	return nil
}

// Snapshot returns a copy of the stored state.
func (s *StateFile) Snapshot() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	return s.load()
}

// Close makes further access fail with ErrStateClosed.
func (s *StateFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// load reads the state file. Caller must hold the lock.
// A missing file yields the default state; a corrupted one is logged and
// replaced by the default on the next write.
func (s *StateFile) load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("ignoring corrupted state file", "path", s.path, "error", err)
		return DefaultState(), nil
	}

	if state.Flags == nil {
		state.Flags = make(map[string]bool)
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}
	return &state, nil
}

// save writes the state atomically. Caller must hold the lock.
func (s *StateFile) save(state *State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Write atomically via temp file
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
