package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrIncompleteDetails is returned by End when the name or age is blank
	ErrIncompleteDetails = errors.New("name and age are required to end a session")
	// ErrNoActiveSession is returned when an operation needs an active capture
	ErrNoActiveSession = errors.New("no active session")
	// ErrNotReserved is returned when confirming a path the capture never reserved
	ErrNotReserved = errors.New("path was not reserved for this session")
)

// RecordStore is the persistence the service needs from the record store
type RecordStore interface {
	ReserveSessionID(ctx context.Context) (string, error)
	InsertSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	MarkDeleted(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, s models.Session) error
	ListTombstoned(ctx context.Context) ([]string, error)
}

// Directories is the filesystem side of a session
type Directories interface {
	DirectoryFor(sessionID string) (string, error)
	NewImagePath(sessionID string) (string, error)
	ImagesFor(sessionID string) ([]string, error)
	Purge(sessionID string) error
	Release(sessionID string)
	SessionIDs() ([]string, error)
}

// Service runs the session lifecycle over a record store and its directories
type Service struct {
	store RecordStore
	dirs  Directories
	now   func() time.Time
}

// NewService creates a Service
func NewService(store RecordStore, dirs Directories) *Service {
	return &Service{
		store: store,
		dirs:  dirs,
		now:   time.Now,
	}
}

// Result is what a search returns: the record, if any, and its images
type Result struct {
	Session *models.Session
	Images  []string
}

// Found reports whether the search matched a record
func (r Result) Found() bool {
	return r.Session != nil
}

// Start reserves a new identifier, creates its directory and returns an active capture
func (s *Service) Start(ctx context.Context) (*Capture, error) {
	id, err := s.store.ReserveSessionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve session id: %w", err)
	}

	if _, err := s.dirs.DirectoryFor(id); err != nil {
		return nil, err
	}

	log.Info().Str("session", id).Msg("session started")
	return &Capture{
		SessionID: id,
		StartedAt: s.now(),
		Images:    []string{},
		Reserved:  []string{},
	}, nil
}

// NewImagePath reserves the file the next capture should be written to
func (s *Service) NewImagePath(c *Capture) (string, error) {
	if !c.Active() {
		return "", ErrNoActiveSession
	}
	path, err := s.dirs.NewImagePath(c.SessionID)
	if err != nil {
		return "", err
	}
	c.Reserved = append(c.Reserved, path)
	return path, nil
}

// ConfirmImage counts a file written by the camera to a path reserved earlier.
// Paths from other sessions, other captures or anywhere else are refused.
func (s *Service) ConfirmImage(c *Capture, path string) error {
	if !c.Active() {
		return ErrNoActiveSession
	}
	if !c.HasReservation(path) {
		return fmt.Errorf("%w: %s", ErrNotReserved, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("image not written: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("image not written: %s is not a file", path)
	}
	c.AddImage(path, true)
	return nil
}

// End finalizes a capture into a persisted record. Blank details leave the
// capture active and create nothing; an unparseable age is stored as 0.
func (s *Service) End(ctx context.Context, c *Capture, name, ageInput string) (*models.Session, error) {
	if !c.Active() {
		return nil, ErrNoActiveSession
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(ageInput) == "" {
		return nil, ErrIncompleteDetails
	}

	record := models.Session{
		SessionID:  c.SessionID,
		Name:       name,
		Age:        models.ParseAge(ageInput),
		Timestamp:  s.now().UnixMilli(),
		ImageCount: c.ImageCount(),
	}
	if err := s.store.InsertSession(ctx, record); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	c.ended = true
	s.dirs.Release(c.SessionID)

	log.Info().
		Str("session", record.SessionID).
		Int("images", record.ImageCount).
		Msg("session ended")
	return &record, nil
}

// Abandon ends a capture without a record. Its directory and any images are
// left on disk as an orphan for Reconcile to report.
func (s *Service) Abandon(c *Capture) error {
	if !c.Active() {
		return ErrNoActiveSession
	}
	c.ended = true
	s.dirs.Release(c.SessionID)
	log.Warn().Str("session", c.SessionID).Int("images", c.ImageCount()).Msg("session abandoned")
	return nil
}

// Search looks up a session and lists its images. No record means an empty result.
func (s *Service) Search(ctx context.Context, sessionID string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	record, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("get session: %w", err)
	}
	if record == nil {
		return Result{Images: []string{}}, nil
	}

	images, err := s.dirs.ImagesFor(sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("list images: %w", err)
	}
	return Result{Session: record, Images: images}, nil
}

// Delete removes a session's record and files. The record is tombstoned first,
// the directory purged next, and the row removed only after the purge worked.
// A failed purge leaves the tombstone in place for Reconcile.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.MarkDeleted(ctx, sessionID); err != nil {
		return err
	}
	return s.finishDelete(ctx, sessionID)
}

func (s *Service) finishDelete(ctx context.Context, sessionID string) error {
	if err := s.dirs.Purge(sessionID); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("purge failed, tombstone kept")
		return fmt.Errorf("purge session %s: %w", sessionID, err)
	}

	if err := s.store.DeleteSession(ctx, models.Session{SessionID: sessionID}); err != nil {
		return err
	}

	log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// ReconcileReport summarises one Reconcile pass
type ReconcileReport struct {
	Purged  []string          // tombstoned sessions now fully deleted
	Failed  map[string]string // tombstoned sessions whose purge failed again
	Orphans []string          // directories with no record
}

// Reconcile completes interrupted deletes and finds orphan directories.
// Orphans are reported, never removed: they may belong to a capture in progress.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Failed: map[string]string{}}

	tombstoned, err := s.store.ListTombstoned(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tombstoned sessions: %w", err)
	}
	pending := map[string]bool{}
	for _, id := range tombstoned {
		pending[id] = true
		if err := s.finishDelete(ctx, id); err != nil {
			report.Failed[id] = err.Error()
			continue
		}
		report.Purged = append(report.Purged, id)
	}

	dirs, err := s.dirs.SessionIDs()
	if err != nil {
		return nil, fmt.Errorf("list session directories: %w", err)
	}
	for _, id := range dirs {
		if pending[id] {
			continue
		}
		record, err := s.store.GetSession(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", id, err)
		}
		if record == nil {
			report.Orphans = append(report.Orphans, id)
		}
	}

	return report, nil
}
