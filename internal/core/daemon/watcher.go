package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/rs/zerolog/log"
)

// Store is what the watcher needs from the record store
type Store interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	UpdateImageCount(ctx context.Context, sessionID string, imageCount int) error
}

// WatcherStats tracks watcher activity
type WatcherStats struct {
	StartTime     time.Time
	CountsUpdated int
	LastUpdate    time.Time
	Errors        int
}

// Watcher keeps persisted image counts equal to the .jpg files on disk for
// finalized sessions. Sessions still being captured have no record and are
// left alone.
type Watcher struct {
	store    Store
	dirs     *storage.Manager
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	stats WatcherStats
}

// NewWatcher creates a watcher over the session directories of dirs
func NewWatcher(store Store, dirs *storage.Manager) (*Watcher, error) {
	if err := os.MkdirAll(dirs.Root(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions root: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		store:    store,
		dirs:     dirs,
		watcher:  watcher,
		debounce: 100 * time.Millisecond,
		stats:    WatcherStats{StartTime: time.Now()},
	}, nil
}

// Stats returns a snapshot of watcher activity
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run watches until ctx is done. It reconciles every existing session once
// before handling events.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	log.Info().Str("root", w.dirs.Root()).Msg("image watcher starting")

	if err := w.watcher.Add(w.dirs.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dirs.Root(), err)
	}

	ids, err := w.dirs.SessionIDs()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, id := range ids {
		w.watchSession(id)
		w.sync(ctx, id)
	}

	pending := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("image watcher shutting down")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if id, ok := w.sessionForEvent(event); ok {
				log.Debug().Str("op", event.Op.String()).Str("path", event.Name).Msg("file event")
				pending[id] = true
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			// Give writers a moment before counting, then flush everything batched
			for id := range pending {
				w.sync(ctx, id)
			}
			pending = map[string]bool{}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			log.Error().Err(err).Msg("watcher error")
			w.recordError()
		}
	}
}

// sessionForEvent maps an event to the session it affects. New session
// directories are added to the watch list as they appear.
func (w *Watcher) sessionForEvent(event fsnotify.Event) (string, bool) {
	if filepath.Dir(event.Name) == w.dirs.Root() {
		if event.Op&fsnotify.Create == fsnotify.Create {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				id := filepath.Base(event.Name)
				w.watchSession(id)
				return id, true
			}
		}
		return "", false
	}

	if !storage.IsImage(event.Name) {
		return "", false
	}
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
		return "", false
	}
	return w.dirs.SessionIDFromPath(event.Name)
}

func (w *Watcher) watchSession(sessionID string) {
	dir := filepath.Join(w.dirs.Root(), sessionID)
	if err := w.watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("failed to watch session directory")
		w.recordError()
	}
}

// sync writes the on-disk image count to the session record when they differ
func (w *Watcher) sync(ctx context.Context, sessionID string) {
	record, err := w.store.GetSession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("lookup failed")
		w.recordError()
		return
	}
	if record == nil {
		return
	}

	images, err := w.dirs.ImagesFor(sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("listing failed")
		w.recordError()
		return
	}
	if len(images) == record.ImageCount {
		return
	}

	if err := w.store.UpdateImageCount(ctx, sessionID, len(images)); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			return
		}
		log.Error().Err(err).Str("session", sessionID).Msg("update failed")
		w.recordError()
		return
	}

	log.Info().
		Str("session", sessionID).
		Int("was", record.ImageCount).
		Int("now", len(images)).
		Msg("image count updated")

	w.mu.Lock()
	w.stats.CountsUpdated++
	w.stats.LastUpdate = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) recordError() {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
