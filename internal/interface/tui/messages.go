package tui

import (
	"context"
	"errors"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/session"
)

type errMsg struct {
	err error
}

type statusMsg string

type watchStartedMsg struct {
	updates <-chan []models.Session
}

type sessionsLoadedMsg struct {
	source   <-chan []models.Session
	sessions []models.Session
	ok       bool
}

type sessionDetailLoadedMsg struct {
	sessionID string
	result    session.Result
}

type sessionDeletedMsg struct {
	sessionID string
}

// startWatch subscribes to the live session list
func startWatch(ctx context.Context, database *db.DB, filter db.SessionFilter) tea.Cmd {
	return func() tea.Msg {
		return watchStartedMsg{updates: database.Watch(ctx, filter)}
	}
}

// waitForSessions blocks until the next list snapshot arrives
func waitForSessions(updates <-chan []models.Session) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		sessions, ok := <-updates
		return sessionsLoadedMsg{source: updates, sessions: sessions, ok: ok}
	}
}

func loadSessionDetail(ctx context.Context, service *session.Service, sessionID string) tea.Cmd {
	return func() tea.Msg {
		result, err := service.Search(ctx, sessionID)
		if err != nil {
			return errMsg{err}
		}
		return sessionDetailLoadedMsg{sessionID: sessionID, result: result}
	}
}

func deleteSession(ctx context.Context, service *session.Service, sessionID string) tea.Cmd {
	return func() tea.Msg {
		err := service.Delete(ctx, sessionID)
		if errors.Is(err, db.ErrSessionNotFound) {
			return statusMsg("No session found with ID: " + sessionID)
		}
		if err != nil {
			return statusMsg("Delete incomplete (run oralvis reconcile): " + err.Error())
		}
		return sessionDeletedMsg{sessionID: sessionID}
	}
}

func copySessionID(sessionID string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(sessionID); err != nil {
			return statusMsg("Clipboard unavailable: " + sessionID)
		}
		return statusMsg("Copied " + sessionID)
	}
}
