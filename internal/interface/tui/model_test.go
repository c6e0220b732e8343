package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupModel(t *testing.T) (Model, *db.DB, *storage.Manager) {
	t.Helper()
	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	dirs := storage.NewManager(filepath.Join(dir, "Pictures"))
	m := New(database, session.NewService(database, dirs))
	t.Cleanup(m.Close)
	return m, database, dirs
}

func TestCreateSessionListNewestFirst(t *testing.T) {
	sessions := []models.Session{
		{SessionID: "S1", Name: "Ann", Age: 30, Timestamp: 1},
		{SessionID: "S2", Name: "Bob", Age: 41, Timestamp: 2},
	}

	l := createSessionList(sessions, 80, 24)
	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "S2", items[0].(sessionItem).session.SessionID)
	assert.Equal(t, "S1", items[1].(sessionItem).session.SessionID)
}

func TestSessionItemDescription(t *testing.T) {
	item := sessionItem{session: models.Session{
		SessionID:  "S3",
		Name:       "Jane",
		Age:        8,
		Timestamp:  time.Now().Add(-2 * time.Hour).UnixMilli(),
		ImageCount: 1,
	}}

	assert.Equal(t, "S3  Jane (8)", item.Title())
	assert.Contains(t, item.Description(), "2 hours ago")
	assert.Contains(t, item.Description(), "1 image")
}

func TestRenderResultNotFound(t *testing.T) {
	assert.Equal(t, "No session found.", renderResult(session.Result{}, 80))
}

func TestRenderResultListsImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IMG_20250101_101010.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o644))

	out := renderResult(session.Result{
		Session: &models.Session{SessionID: "S7", Name: "Jane", Age: 34, Timestamp: time.Now().UnixMilli(), ImageCount: 2},
		Images:  []string{path, filepath.Join(dir, "gone.jpg")},
	}, 120)

	assert.Contains(t, out, "Session S7")
	assert.Contains(t, out, "Jane")
	assert.Contains(t, out, "2 recorded, 2 on disk")
	assert.Contains(t, out, "IMG_20250101_101010.jpg")
	assert.Contains(t, out, "unreadable")
}

func TestRenderResultWrapsLongNames(t *testing.T) {
	out := renderResult(session.Result{
		Session: &models.Session{SessionID: "S2", Name: "Maria Fernanda Rodrigues da Silva Oliveira", Age: 52, Timestamp: time.Now().UnixMilli()},
		Images:  []string{},
	}, 40)

	assert.Contains(t, out, "Maria Fernanda")
	assert.Contains(t, out, "No images on disk.")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 40, line)
	}
}

func TestStaleSnapshotsIgnored(t *testing.T) {
	m, _, _ := setupModel(t)

	current := make(chan []models.Session)
	stale := make(chan []models.Session)
	m.updates = current

	next, _ := m.Update(sessionsLoadedMsg{source: stale, sessions: []models.Session{{SessionID: "S1"}}, ok: true})
	assert.False(t, next.(Model).ready)

	next, _ = m.Update(sessionsLoadedMsg{source: current, sessions: []models.Session{{SessionID: "S1"}}, ok: true})
	assert.True(t, next.(Model).ready)
	assert.Len(t, next.(Model).sessions, 1)
}

func TestWatchFeedsList(t *testing.T) {
	m, database, _ := setupModel(t)
	ctx := context.Background()
	require.NoError(t, database.InsertSession(ctx, models.Session{SessionID: "S1", Name: "Ann", Age: 30, Timestamp: time.Now().UnixMilli()}))

	started := m.Init()()
	next, wait := m.Update(started)
	require.NotNil(t, wait)

	loaded, ok := wait().(sessionsLoadedMsg)
	require.True(t, ok)
	next, _ = next.Update(loaded)

	model := next.(Model)
	require.True(t, model.ready)
	require.Len(t, model.sessions, 1)
	assert.Equal(t, "Ann", model.sessions[0].Name)
}

func TestEnterOpensDetail(t *testing.T) {
	m, database, dirs := setupModel(t)
	ctx := context.Background()
	require.NoError(t, database.InsertSession(ctx, models.Session{SessionID: "S1", Name: "Ann", Age: 30, Timestamp: time.Now().UnixMilli()}))
	_, err := dirs.DirectoryFor("S1")
	require.NoError(t, err)

	msg := loadSessionDetail(ctx, m.service, "S1")()
	next, _ := m.Update(msg)
	model := next.(Model)
	assert.Equal(t, detailView, model.mode)
	require.NotNil(t, model.current)
	assert.Equal(t, "S1", model.current.Session.SessionID)

	// Missing ids stay on the list with a message
	next, _ = model.Update(loadSessionDetail(ctx, m.service, "S99")())
	model = next.(Model)
	assert.Equal(t, listView, model.mode)
	assert.Equal(t, "No session found with ID: S99", model.status)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m, database, dirs := setupModel(t)
	ctx := context.Background()
	require.NoError(t, database.InsertSession(ctx, models.Session{SessionID: "S1", Name: "Ann", Age: 30, Timestamp: time.Now().UnixMilli()}))
	_, err := dirs.DirectoryFor("S1")
	require.NoError(t, err)

	next, _ := m.Update(loadSessionDetail(ctx, m.service, "S1")())

	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	assert.Nil(t, cmd)
	assert.True(t, next.(Model).confirmDelete)

	next, cmd = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	next, _ = next.Update(cmd())

	model := next.(Model)
	assert.Equal(t, listView, model.mode)
	assert.Nil(t, model.current)

	got, err := database.GetSession(ctx, "S1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
