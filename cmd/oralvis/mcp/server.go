package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/report"
	"github.com/neilberkman/oralvis/internal/core/search"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/neilberkman/oralvis/internal/core/storage"
	"github.com/rs/zerolog/log"
)

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Query string `json:"query,omitempty" jsonschema:"description=Patient name and filters (after:, before:, date:)"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max sessions to return (default: 20)"`
}

// SessionIDArgs defines arguments for tools that take one session
type SessionIDArgs struct {
	SessionID string `json:"session_id" jsonschema:"description=Session identifier such as S7,required"`
}

// SessionSummary represents a session in the list view
type SessionSummary struct {
	SessionID  string `json:"session_id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	RecordedAt string `json:"recorded_at"`
	ImageCount int    `json:"image_count"`
}

// SessionDetail represents a session with its images
type SessionDetail struct {
	SessionSummary
	Found  bool          `json:"found"`
	Images []ImageDetail `json:"images"`
}

// ImageDetail represents one image file
type ImageDetail struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	TakenAt   string `json:"taken_at,omitempty"`
}

// handlers holds what tool handlers share
type handlers struct {
	database       *db.DB
	service        *session.Service
	reportTemplate string
}

// StartServer starts the MCP server
func StartServer(dbPath, picturesRoot, reportTemplate string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing database")
		}
	}()

	s := NewServer(database, storage.NewManager(picturesRoot), reportTemplate)
	return server.ServeStdio(s)
}

// NewServer builds the MCP server and registers its tools
func NewServer(database *db.DB, dirs *storage.Manager, reportTemplate string) *server.MCPServer {
	h := &handlers{
		database:       database,
		service:        session.NewService(database, dirs),
		reportTemplate: reportTemplate,
	}

	s := server.NewMCPServer(
		"OralVis",
		"1.0.0",
	)

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List saved photo-capture sessions in recording order, optionally filtered by patient name or date"),
		mcp.WithString("query",
			mcp.Description("Patient name substring plus optional filters: after:2025-01-01, before:2025-02-01, date:yesterday")),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
	)
	s.AddTool(listTool, h.listSessions)

	getTool := mcp.NewTool("get_session",
		mcp.WithDescription("Look up a session by identifier and list its images"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier such as S7")),
	)
	s.AddTool(getTool, h.getSession)

	exportTool := mcp.NewTool("export_session",
		mcp.WithDescription("Render a markdown report for a session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier such as S7")),
	)
	s.AddTool(exportTool, h.exportSession)

	return s
}

func decodeArgs(request mcp.CallToolRequest, v any) error {
	argsBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(argsBytes, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func summarize(s models.Session) SessionSummary {
	return SessionSummary{
		SessionID:  s.SessionID,
		Name:       s.Name,
		Age:        s.Age,
		RecordedAt: s.CreatedAt().Format(time.RFC3339),
		ImageCount: s.ImageCount,
	}
}

func (h *handlers) listSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args ListSessionsArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	filters := search.ParseQuery(args.Query, time.Now())
	sessions := []SessionSummary{}

	// A bare identifier is a point lookup
	if filters.SessionID != "" {
		s, err := h.database.GetSession(ctx, filters.SessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		if s != nil {
			sessions = append(sessions, summarize(*s))
		}
		return jsonResult(map[string]any{"sessions": sessions})
	}

	filter := filters.SessionFilter()
	if filter.Limit == 0 {
		filter.Limit = args.Limit
	}
	if filter.Limit == 0 {
		filter.Limit = 20
	}

	coreSessions, err := h.database.ListSessions(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	for _, cs := range coreSessions {
		sessions = append(sessions, summarize(cs))
	}

	return jsonResult(map[string]any{"sessions": sessions})
}

func (h *handlers) getSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SessionIDArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	sessionID := search.NormalizeSessionID(args.SessionID)

	result, err := h.service.Search(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	// Not found is an answer, not an error
	detail := SessionDetail{Found: result.Found(), Images: []ImageDetail{}}
	if !result.Found() {
		detail.SessionID = sessionID
		return jsonResult(detail)
	}

	detail.SessionSummary = summarize(*result.Session)
	for _, path := range result.Images {
		image := ImageDetail{Name: filepath.Base(path), Path: path}
		if d, err := storage.ImageDetails(path); err == nil {
			image.SizeBytes = d.Size
			if !d.DateTaken.IsZero() {
				image.TakenAt = d.DateTaken.Format(time.RFC3339)
			}
		}
		detail.Images = append(detail.Images, image)
	}

	return jsonResult(detail)
}

func (h *handlers) exportSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args SessionIDArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	sessionID := search.NormalizeSessionID(args.SessionID)

	result, err := h.service.Search(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if !result.Found() {
		return mcp.NewToolResultError(fmt.Sprintf("no session found with ID: %s", sessionID)), nil
	}

	out, err := report.Render(h.reportTemplate, *result.Session, result.Images, time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}
