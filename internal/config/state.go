package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StateStore persists the latest action of every device so that a restart
// reports the same state to controllers. Entries are keyed by serial.
type StateStore struct {
	path string

	mu     sync.Mutex
	states map[string]DeviceState

	// Now is replaceable in tests.
	Now func() time.Time
}

// OpenStateStore loads the state file at path. A missing file is an empty
// store.
func OpenStateStore(path string) (*StateStore, error) {
	s := &StateStore{
		path:   path,
		states: make(map[string]DeviceState),
		Now:    time.Now,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc stateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if doc.Version != 0 && doc.Version != 1 {
		return nil, fmt.Errorf("unsupported state file version: %d (expected 1)", doc.Version)
	}
	for serial, st := range doc.Devices {
		s.states[serial] = st
	}
	return s, nil
}

// Path returns the state file location.
func (s *StateStore) Path() string { return s.path }

// Get returns the persisted state for serial.
func (s *StateStore) Get(serial string) (plugin.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[serial]
	if !ok {
		return plugin.StateUnknown, false
	}
	state := plugin.ParseState(st.State)
	return state, state != plugin.StateUnknown
}

// Set records state for a device and writes the file.
func (s *StateStore) Set(name, serial string, state plugin.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[serial] = DeviceState{
		Name:    name,
		State:   string(state),
		Changed: s.Now().UTC().Truncate(time.Second),
	}
	return s.saveLocked()
}

// Served and Action satisfy protocol.Observer; only state changes matter here.
func (s *StateStore) Served(device, route string)             {}
func (s *StateStore) Action(device, action string, err error) {}

// StateChanged persists a successful on/off.
func (s *StateStore) StateChanged(device, serial string, state plugin.State) {
	if err := s.Set(device, serial, state); err != nil {
		logging.Warn("Failed to persist device state",
			zap.String("device", device),
			zap.String("path", s.path),
			zap.Error(err),
		)
	}
}

// saveLocked writes through a temporary file and a rename so a crash never
// leaves a truncated file behind.
func (s *StateStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := yaml.Marshal(stateDocument{Version: 1, Devices: s.states})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	header := []byte("# fauxmo device state, rewritten on every change.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save state file: %w", err)
	}
	return nil
}
