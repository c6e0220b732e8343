package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/oralvis/internal/core/db"
	"github.com/neilberkman/oralvis/internal/core/models"
	"github.com/neilberkman/oralvis/internal/core/session"
)

type viewMode int

const (
	listView viewMode = iota
	detailView
	searchView
	helpView
)

// Model is the session browser. The list follows the record store live.
type Model struct {
	db      *db.DB
	service *session.Service

	ctx    context.Context
	cancel context.CancelFunc

	mode     viewMode
	prevMode viewMode
	list     list.Model
	keys     keymap
	help     help.Model
	viewport viewport.Model
	width    int
	height   int
	err      error
	status   string

	sessions      []models.Session
	updates       <-chan []models.Session
	filter        db.SessionFilter
	filterText    string
	searchInput   textinput.Model
	current       *session.Result
	confirmDelete bool
	ready         bool
}

// New creates the browser model
func New(database *db.DB, service *session.Service) Model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Placeholder = "S7, jane, after:last-week"
	input.CharLimit = 120

	return Model{
		db:          database,
		service:     service,
		ctx:         ctx,
		cancel:      cancel,
		mode:        listView,
		keys:        defaultKeymap(),
		help:        help.New(),
		searchInput: input,
	}
}

// Close stops the live list subscription
func (m Model) Close() {
	m.cancel()
}

func (m Model) Init() tea.Cmd {
	return startWatch(m.ctx, m.db, db.SessionFilter{})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.list = createSessionList(m.sessions, m.width, m.height)
		if m.current != nil {
			m.viewport = createViewport(*m.current, m.width, m.height)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}

		// Mode-specific key handling
		switch m.mode {
		case listView:
			return m.updateList(msg)
		case detailView:
			return m.updateDetail(msg)
		case searchView:
			return m.updateSearch(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case watchStartedMsg:
		m.updates = msg.updates
		return m, waitForSessions(m.updates)

	case sessionsLoadedMsg:
		// Snapshots from a replaced subscription are dropped
		if !msg.ok || msg.source != m.updates {
			return m, nil
		}
		cursor := m.list.Index()
		m.sessions = msg.sessions
		m.ready = true
		m.list = createSessionList(msg.sessions, m.width, m.height)
		if cursor < len(m.sessions) {
			m.list.Select(cursor)
		}
		return m, waitForSessions(m.updates)

	case sessionDetailLoadedMsg:
		m.current = &msg.result
		m.confirmDelete = false
		if !msg.result.Found() {
			m.status = "No session found with ID: " + msg.sessionID
			m.mode = listView
			return m, nil
		}
		m.viewport = createViewport(msg.result, m.width, m.height)
		m.mode = detailView
		return m, nil

	case sessionDeletedMsg:
		m.status = "Deleted " + msg.sessionID
		if m.current != nil && m.current.Session != nil && m.current.Session.SessionID == msg.sessionID {
			m.current = nil
		}
		m.mode = listView
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress ctrl+c to quit"
	}

	switch m.mode {
	case listView:
		return m.viewList()
	case detailView:
		return m.viewDetail()
	case searchView:
		return m.viewSearch()
	case helpView:
		return m.viewHelp()
	}

	return ""
}
