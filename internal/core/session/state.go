package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSessionActive is returned when starting while another capture is saved
var ErrSessionActive = errors.New("a session is already active")

// StateFile keeps the active capture between separate CLI invocations
type StateFile struct {
	path string
}

// NewStateFile creates a StateFile at path
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load returns the saved capture, or nil when none is active
func (f *StateFile) Load() (*Capture, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}

	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse session state: %w", err)
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	if c.Reserved == nil {
		c.Reserved = []string{}
	}
	return &c, nil
}

// Save writes the capture atomically
func (f *StateFile) Save(c *Capture) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session state: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// Clear removes the saved capture
func (f *StateFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
