package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root    string
	db      *db.DB
	dirs    *storage.Manager
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	database, err := db.New(filepath.Join(root, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	pictures := filepath.Join(root, "Pictures")
	dirs := storage.NewManager(pictures)
	return &fixture{root: pictures, db: database, dirs: dirs, service: NewService(database, dirs)}
}

// capture simulates the camera writing a file to a reserved path
func capture(t *testing.T, s *Service, c *Capture) string {
	t.Helper()
	path, err := s.NewImagePath(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0644))
	c.AddImage(path, true)
	return path
}

func seed(t *testing.T, f *fixture, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		require.NoError(t, f.db.InsertSession(context.Background(), models.Session{
			SessionID: fmt.Sprintf("S%d", i),
			Name:      "Existing",
			Age:       30,
			Timestamp: time.Now().UnixMilli(),
		}))
	}
}

func TestEndToEndCaptureSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed(t, f, 6)

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S7", c.SessionID)
	assert.True(t, c.Active())

	first := capture(t, f.service, c)
	second := capture(t, f.service, c)
	assert.NotEqual(t, first, second)

	before := time.Now().UnixMilli()
	record, err := f.service.End(ctx, c, "Jane Doe", "34")
	require.NoError(t, err)
	assert.False(t, c.Active())

	assert.Equal(t, "S7", record.SessionID)
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, 34, record.Age)
	assert.Equal(t, 2, record.ImageCount)
	assert.GreaterOrEqual(t, record.Timestamp, before)

	got, err := f.db.GetSession(ctx, "S7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *record, *got)

	result, err := f.service.Search(ctx, "S7")
	require.NoError(t, err)
	assert.True(t, result.Found())
	assert.ElementsMatch(t, []string{first, second}, result.Images)
}

func TestEndUnparseableAge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)

	record, err := f.service.End(ctx, c, "John Roe", "abc")
	require.NoError(t, err)
	assert.Equal(t, 0, record.Age)

	got, err := f.db.GetSession(ctx, c.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Age)
}

func TestEndBlankDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)

	_, err = f.service.End(ctx, c, "  ", "34")
	assert.ErrorIs(t, err, ErrIncompleteDetails)
	_, err = f.service.End(ctx, c, "Jane", "")
	assert.ErrorIs(t, err, ErrIncompleteDetails)

	assert.True(t, c.Active(), "capture stays active after declined finalize")
	got, err := f.db.GetSession(ctx, c.SessionID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = f.service.End(ctx, c, "Jane", "20")
	assert.NoError(t, err)
	_, err = f.service.End(ctx, c, "Jane", "20")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestFailedCaptureNotCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	capture(t, f.service, c)
	path, err := f.service.NewImagePath(c)
	require.NoError(t, err)
	c.AddImage(path, false)

	record, err := f.service.End(ctx, c, "Jane", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, record.ImageCount)
}

func TestSearchMissing(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Search(context.Background(), "S404")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.Nil(t, result.Session)
	assert.Empty(t, result.Images)
}

func TestIndependentCaptures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.service.Start(ctx)
	require.NoError(t, err)
	b, err := f.service.Start(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)

	capture(t, f.service, a)
	capture(t, f.service, a)
	capture(t, f.service, b)

	ra, err := f.service.End(ctx, a, "A", "10")
	require.NoError(t, err)
	rb, err := f.service.End(ctx, b, "B", "20")
	require.NoError(t, err)
	assert.Equal(t, 2, ra.ImageCount)
	assert.Equal(t, 1, rb.ImageCount)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	capture(t, f.service, c)
	_, err = f.service.End(ctx, c, "Jane", "34")
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, c.SessionID))

	result, err := f.service.Search(ctx, c.SessionID)
	require.NoError(t, err)
	assert.False(t, result.Found())

	images, err := f.dirs.ImagesFor(c.SessionID)
	require.NoError(t, err)
	assert.Empty(t, images)

	count, err := f.db.CountSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, f.service.Delete(ctx, c.SessionID), db.ErrSessionNotFound)
}

func TestAbandonLeavesOrphan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	capture(t, f.service, c)
	require.NoError(t, f.service.Abandon(c))
	assert.ErrorIs(t, f.service.Abandon(c), ErrNoActiveSession)

	report, err := f.service.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.SessionID}, report.Orphans)

	images, err := f.dirs.ImagesFor(c.SessionID)
	require.NoError(t, err)
	assert.Len(t, images, 1, "orphans are reported, not removed")
}

// flakyDirs fails Purge until told otherwise
type flakyDirs struct {
	*storage.Manager
	failPurge bool
}

func (d *flakyDirs) Purge(sessionID string) error {
	if d.failPurge {
		return errors.New("permission denied")
	}
	return d.Manager.Purge(sessionID)
}

func TestDeleteFailedPurgeKeepsTombstone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dirs := &flakyDirs{Manager: f.dirs, failPurge: true}
	service := NewService(f.db, dirs)

	c, err := service.Start(ctx)
	require.NoError(t, err)
	capture(t, service, c)
	_, err = service.End(ctx, c, "Jane", "34")
	require.NoError(t, err)

	err = service.Delete(ctx, c.SessionID)
	require.Error(t, err)

	// Hidden from reads, but not forgotten
	result, err := service.Search(ctx, c.SessionID)
	require.NoError(t, err)
	assert.False(t, result.Found())
	ids, err := f.db.ListTombstoned(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.SessionID}, ids)

	report, err := service.Reconcile(ctx)
	require.NoError(t, err)
	assert.Contains(t, report.Failed, c.SessionID)
	assert.Empty(t, report.Orphans, "tombstoned directories are not orphans")

	dirs.failPurge = false
	report, err = service.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.SessionID}, report.Purged)
	assert.Empty(t, report.Failed)

	ids, err = f.db.ListTombstoned(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	images, err := f.dirs.ImagesFor(c.SessionID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestNewImagePathRequiresActiveCapture(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.NewImagePath(nil)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestConfirmImageAcrossInvocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	state := NewStateFile(filepath.Join(t.TempDir(), "active.json"))

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, state.Save(c))

	// Two separate runs reserve paths, each with its own directory manager
	var reserved []string
	for i := 0; i < 2; i++ {
		loaded, err := state.Load()
		require.NoError(t, err)
		service := NewService(f.db, storage.NewManager(f.root))
		path, err := service.NewImagePath(loaded)
		require.NoError(t, err)
		require.NoError(t, state.Save(loaded))
		reserved = append(reserved, path)
	}
	assert.NotEqual(t, reserved[0], reserved[1])

	for _, path := range reserved {
		require.NoError(t, os.WriteFile(path, []byte("jpeg"), 0644))
	}

	loaded, err := state.Load()
	require.NoError(t, err)
	require.NoError(t, f.service.ConfirmImage(loaded, reserved[0]))
	require.NoError(t, f.service.ConfirmImage(loaded, reserved[1]))
	assert.ErrorIs(t, f.service.ConfirmImage(loaded, reserved[0]), ErrNotReserved, "counted once")

	record, err := f.service.End(ctx, loaded, "Jane", "34")
	require.NoError(t, err)
	assert.Equal(t, 2, record.ImageCount)

	images, err := f.dirs.ImagesFor(record.SessionID)
	require.NoError(t, err)
	assert.Len(t, images, record.ImageCount)
}

func TestConfirmImageRefusesUnreservedPaths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.service.Start(ctx)
	require.NoError(t, err)
	other, err := f.service.Start(ctx)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(outside, []byte("127.0.0.1"), 0644))
	assert.ErrorIs(t, f.service.ConfirmImage(c, outside), ErrNotReserved)

	foreign, err := f.service.NewImagePath(other)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(foreign, []byte("jpeg"), 0644))
	assert.ErrorIs(t, f.service.ConfirmImage(c, foreign), ErrNotReserved)

	// Reserved but never written
	pending, err := f.service.NewImagePath(c)
	require.NoError(t, err)
	err = f.service.ConfirmImage(c, pending)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotReserved)

	assert.Equal(t, 0, c.ImageCount())
}
