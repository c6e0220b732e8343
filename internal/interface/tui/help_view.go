package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back, m.keys.Help) {
		m.mode = m.prevMode
	}
	return m, nil
}

func (m Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n\n")

	full := m.help
	full.ShowAll = true
	b.WriteString(full.View(m.keys) + "\n\n")
	b.WriteString(helpStyle.Render("Search accepts S<n>, name:<text>, after:<date>, before:<date> and limit:<n>.") + "\n")
	b.WriteString("\n" + helpStyle.Render("The list refreshes as sessions are recorded."))
	return b.String()
}
