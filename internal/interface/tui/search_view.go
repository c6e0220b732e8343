package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/oralvis/internal/core/search"
)

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchInput.Blur()
		m.mode = listView
		return m, nil
	case "enter":
		m.searchInput.Blur()
		m.mode = listView
		return m.applyQuery(strings.TrimSpace(m.searchInput.Value()))
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// applyQuery opens a session directly for an id query, otherwise it
// restarts the live list with the parsed filter.
func (m Model) applyQuery(query string) (tea.Model, tea.Cmd) {
	filters := search.ParseQuery(query, time.Now())
	if filters.SessionID != "" {
		return m, loadSessionDetail(m.ctx, m.service, filters.SessionID)
	}

	m.filterText = query
	m.filter = filters.SessionFilter()
	m.updates = nil
	m.ready = false

	// The previous subscription ends with its context
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m, startWatch(m.ctx, m.db, m.filter)
}

func (m Model) viewSearch() string {
	var b strings.Builder
	b.WriteString(searchHeaderStyle.Render("Search sessions") + "\n\n")
	b.WriteString(m.searchInput.View() + "\n\n")
	b.WriteString(helpStyle.Render("S<n> opens a session • name:<text> • after:<date> • before:<date> • limit:<n>") + "\n")
	b.WriteString(helpStyle.Render("enter: apply • esc: cancel • empty query clears the filter"))
	return b.String()
}
