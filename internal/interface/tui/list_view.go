package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/oralvis/internal/core/models"
)

type sessionItem struct {
	session models.Session
}

func (i sessionItem) FilterValue() string { return i.session.SessionID + " " + i.session.Name }

func (i sessionItem) Title() string {
	return fmt.Sprintf("%s  %s (%d)", i.session.SessionID, i.session.Name, i.session.Age)
}

func (i sessionItem) Description() string {
	images := "images"
	if i.session.ImageCount == 1 {
		images = "image"
	}
	return fmt.Sprintf("%s • %d %s", humanize.Time(i.session.CreatedAt()), i.session.ImageCount, images)
}

type sessionDelegate struct{}

func (d sessionDelegate) Height() int                             { return 2 }
func (d sessionDelegate) Spacing() int                            { return 1 }
func (d sessionDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d sessionDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(sessionItem)
	if !ok {
		return
	}

	title := i.Title()
	desc := i.Description()

	if index == m.Index() {
		_, _ = fmt.Fprint(w, selectedItemStyle.Render("> "+title)+"\n"+selectedItemStyle.Render("  "+desc))
	} else {
		_, _ = fmt.Fprint(w, itemStyle.Render(title)+"\n"+itemStyle.Render(helpStyle.Render(desc)))
	}
}

func createSessionList(sessions []models.Session, width, height int) list.Model {
	items := make([]list.Item, len(sessions))
	// Newest first
	for idx, s := range sessions {
		items[len(sessions)-1-idx] = sessionItem{session: s}
	}

	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	l := list.New(items, sessionDelegate{}, width, height-2)
	l.Title = "Sessions"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	return l
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.list.SelectedItem().(sessionItem); ok {
			return m, loadSessionDetail(m.ctx, m.service, item.session.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Search):
		m.mode = searchView
		m.searchInput.SetValue(m.filterText)
		m.searchInput.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if item, ok := m.list.SelectedItem().(sessionItem); ok {
			return m, copySessionID(item.session.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.prevMode = m.mode
		m.mode = helpView
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	if !m.ready {
		return "Loading sessions..."
	}

	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.filterText != "" {
		b.WriteString(helpStyle.Render("filter: "+m.filterText) + "  ")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	} else {
		b.WriteString(m.help.View(m.keys.forList()))
	}
	return b.String()
}
