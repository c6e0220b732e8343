// Package storage maps session identifiers to image directories on disk.
//
// Layout: <root>/Sessions/<session-id>/IMG_<yyyyMMdd_HHmmss>.jpg
//
// The layout is the only link between a record and its images; nothing stores
// a path, so every operation rebuilds it from the identifier.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	sessionsDir  = "Sessions"
	imagePrefix  = "IMG_"
	imageExt     = ".jpg"
	stampLayout  = "20060102_150405"
	reservedExt  = ".reserved"
	maxSequences = 10000
)

// Manager owns the per-session directory tree under a pictures root
type Manager struct {
	root string
	now  func() time.Time
}

// NewManager creates a Manager rooted at picturesRoot
func NewManager(picturesRoot string) *Manager {
	// Reserved paths are compared as absolute paths
	if abs, err := filepath.Abs(picturesRoot); err == nil {
		picturesRoot = abs
	}
	return &Manager{
		root: picturesRoot,
		now:  time.Now,
	}
}

// Root returns the directory holding all session directories
func (m *Manager) Root() string {
	return filepath.Join(m.root, sessionsDir)
}

// sessionPath returns the session directory without touching the filesystem
func (m *Manager) sessionPath(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." ||
		strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(m.Root(), sessionID), nil
}

// DirectoryFor returns the directory for a session, creating it if needed
func (m *Manager) DirectoryFor(sessionID string) (string, error) {
	dir, err := m.sessionPath(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return dir, nil
}

// NewImagePath reserves a path for the next capture of a session. The name is
// IMG_<timestamp>.jpg at second granularity; when that name is already on disk
// or reserved, a sequence suffix (_1, _2, ...) keeps it unique. The image is
// not created. The reservation is an empty <name>.reserved marker claimed with
// O_EXCL, so separate processes sharing the root never get the same path.
func (m *Manager) NewImagePath(sessionID string) (string, error) {
	dir, err := m.DirectoryFor(sessionID)
	if err != nil {
		return "", err
	}

	stamp := m.now().Format(stampLayout)

	for seq := 0; seq < maxSequences; seq++ {
		name := imagePrefix + stamp + imageExt
		if seq > 0 {
			name = fmt.Sprintf("%s%s_%d%s", imagePrefix, stamp, seq, imageExt)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		marker, err := os.OpenFile(path+reservedExt, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to reserve image path: %w", err)
		}
		if err := marker.Close(); err != nil {
			return "", fmt.Errorf("failed to reserve image path: %w", err)
		}
		return path, nil
	}

	return "", fmt.Errorf("no free image name for session %s at %s", sessionID, stamp)
}

// ImagesFor lists the .jpg files directly inside a session directory, sorted by
// name. A missing directory yields an empty list and is not created.
func (m *Manager) ImagesFor(sessionID string) ([]string, error) {
	dir, err := m.sessionPath(sessionID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	images := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != imageExt {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(images)
	return images, nil
}

// Purge removes a session directory and everything in it. Absent directories are a no-op.
func (m *Manager) Purge(sessionID string) error {
	dir, err := m.sessionPath(sessionID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to purge session directory: %w", err)
	}
	log.Debug().Str("session", sessionID).Str("dir", dir).Msg("purged session directory")
	return nil
}

// Release drops the reservation markers of a session whose capture is over.
// Images already written keep their names.
func (m *Manager) Release(sessionID string) {
	dir, err := m.sessionPath(sessionID)
	if err != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), imageExt+reservedExt) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("session", sessionID).Str("file", entry.Name()).Msg("failed to drop reservation")
		}
	}
}

// SessionIDs returns the names of all session directories on disk
func (m *Manager) SessionIDs() ([]string, error) {
	entries, err := os.ReadDir(m.Root())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// SessionIDFromPath returns the session owning an image path under this root
func (m *Manager) SessionIDFromPath(path string) (string, bool) {
	rel, err := filepath.Rel(m.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}

// IsImage reports whether a file name is a session image
func IsImage(name string) bool {
	return filepath.Ext(name) == imageExt
}
