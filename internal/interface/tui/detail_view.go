package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/oralvis/internal/core/session"
	"github.com/neilberkman/oralvis/internal/core/storage"
)

func createViewport(result session.Result, width, height int) viewport.Model {
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}
	vp := viewport.New(width, height-3)
	vp.SetContent(renderResult(result, width))
	return vp
}

// renderResult lays out the session metadata followed by one line per image
func renderResult(result session.Result, width int) string {
	if !result.Found() {
		return "No session found."
	}
	s := result.Session

	var b strings.Builder
	b.WriteString(titleStyle.Render("Session "+s.SessionID) + "\n\n")
	wrapWidth := width - 12
	if wrapWidth < 20 {
		wrapWidth = 20
	}
	name := strings.ReplaceAll(wordwrap.String(s.Name, wrapWidth), "\n", "\n"+strings.Repeat(" ", 10))
	fmt.Fprintf(&b, "%s%s\n", labelStyle.Render("Name"), name)
	fmt.Fprintf(&b, "%s%d\n", labelStyle.Render("Age"), s.Age)
	fmt.Fprintf(&b, "%s%s (%s)\n", labelStyle.Render("Recorded"),
		s.CreatedAt().Format("2006-01-02 15:04:05"), humanize.Time(s.CreatedAt()))
	fmt.Fprintf(&b, "%s%d recorded, %d on disk\n\n", labelStyle.Render("Images"), s.ImageCount, len(result.Images))

	if len(result.Images) == 0 {
		b.WriteString(helpStyle.Render("No images on disk."))
		return b.String()
	}

	for _, path := range result.Images {
		line := filepath.Base(path)
		detail, err := storage.ImageDetails(path)
		if err != nil {
			b.WriteString("  " + line + "  " + warningStyle.Render("unreadable") + "\n")
			continue
		}
		line += "  " + humanize.Bytes(uint64(detail.Size))
		if !detail.DateTaken.IsZero() {
			line += "  taken " + detail.DateTaken.Format("2006-01-02 15:04:05")
		}
		if camera := strings.TrimSpace(detail.CameraMake + " " + detail.CameraModel); camera != "" {
			line += "  " + camera
		}
		b.WriteString(ansi.Truncate("  "+line, width, "…") + "\n")
	}
	return b.String()
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		m.confirmDelete = false
		if key.Matches(msg, m.keys.Confirm) && m.current != nil && m.current.Found() {
			return m, deleteSession(m.ctx, m.service, m.current.Session.SessionID)
		}
		m.status = "Delete cancelled"
		return m, nil
	}

	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = listView
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if m.current != nil && m.current.Found() {
			m.confirmDelete = true
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if m.current != nil && m.current.Found() {
			return m, copySessionID(m.current.Session.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.prevMode = m.mode
		m.mode = helpView
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) viewDetail() string {
	var footer string
	switch {
	case m.confirmDelete:
		footer = warningStyle.Render(fmt.Sprintf("Delete %s and all its images? (y/N)", m.current.Session.SessionID))
	case m.status != "":
		footer = statusStyle.Render(m.status)
	default:
		footer = m.help.View(m.keys)
	}
	return m.viewport.View() + "\n" + footer
}
