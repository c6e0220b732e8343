package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/neilberkman/oralvis/internal/core/config"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlers(t *testing.T) (*handlers, *storage.Manager) {
	t.Helper()
	root := t.TempDir()
	database, err := db.New(filepath.Join(root, "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	dirs := storage.NewManager(filepath.Join(root, "Pictures"))
	ctx := context.Background()
	for _, s := range []models.Session{
		{SessionID: "S1", Name: "Jane Doe", Age: 34, Timestamp: time.Now().UnixMilli(), ImageCount: 1},
		{SessionID: "S2", Name: "John Roe", Age: 50, Timestamp: time.Now().UnixMilli()},
	} {
		require.NoError(t, database.InsertSession(ctx, s))
	}
	dir, err := dirs.DirectoryFor("S1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG_20250601_140509.jpg"), []byte("jpeg"), 0644))

	return &handlers{
		database:       database,
		service:        session.NewService(database, dirs),
		reportTemplate: config.DefaultReportTemplate,
	}, dirs
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", result.Content[0])
	return ""
}

func TestListSessions(t *testing.T) {
	h, _ := newHandlers(t)

	result, err := h.listSessions(context.Background(), call(map[string]any{"query": "jane"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var body struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "S1", body.Sessions[0].SessionID)
	assert.Equal(t, 34, body.Sessions[0].Age)

	result, err = h.listSessions(context.Background(), call(map[string]any{"query": "s2"}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, "S2", body.Sessions[0].SessionID)

	result, err = h.listSessions(context.Background(), call(map[string]any{"limit": 1}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	assert.Len(t, body.Sessions, 1)
}

func TestGetSession(t *testing.T) {
	h, _ := newHandlers(t)

	result, err := h.getSession(context.Background(), call(map[string]any{"session_id": "s1"}))
	require.NoError(t, err)

	var detail SessionDetail
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &detail))
	assert.True(t, detail.Found)
	assert.Equal(t, "Jane Doe", detail.Name)
	require.Len(t, detail.Images, 1)
	assert.Equal(t, "IMG_20250601_140509.jpg", detail.Images[0].Name)
	assert.Equal(t, int64(4), detail.Images[0].SizeBytes)
}

func TestGetSessionMissing(t *testing.T) {
	h, _ := newHandlers(t)

	result, err := h.getSession(context.Background(), call(map[string]any{"session_id": "S99"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var detail SessionDetail
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &detail))
	assert.False(t, detail.Found)
	assert.Equal(t, "S99", detail.SessionID)
	assert.Empty(t, detail.Images)
}

func TestExportSession(t *testing.T) {
	h, _ := newHandlers(t)

	result, err := h.exportSession(context.Background(), call(map[string]any{"session_id": "S1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "# Session S1")

	result, err = h.exportSession(context.Background(), call(map[string]any{"session_id": "S42"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestNewServer(t *testing.T) {
	h, dirs := newHandlers(t)
	assert.NotNil(t, NewServer(h.database, dirs, config.DefaultReportTemplate))
}
