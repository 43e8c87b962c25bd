package ui

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/session"
	"go.jacobcolvin.com/crdview/tree"
)

// Messages shown in the schema pane when there is no tree.
const (
	MessageEmpty       = "No CustomResourceDefinitions loaded. Press o to open a URL or paste YAML."
	MessageNoSelection = "Select a definition."
	MessageNoSchema    = "No OpenAPI v3 schema found for this version."
	MessageNoMatch     = "No matching definitions."
)

const (
	separator        = " │ "
	paneHeaderHeight = 2
	helpText         = "q quit · tab pane · / filter · o open · r reload · c clear · v version · E/C expand/collapse"
)

// Styles holds the lipgloss styles of the screen chrome.
type Styles struct {
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Busy     lipgloss.Style
	Error    lipgloss.Style
	Kind     lipgloss.Style
	Active   lipgloss.Style
	Selected lipgloss.Style
	Prompt   lipgloss.Style
}

// DefaultStyles returns colored styles.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA")),
		Muted:    lipgloss.NewStyle().Faint(true),
		Busy:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FACC15")),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#B91C1C")),
		Kind:     lipgloss.NewStyle().Bold(true),
		Active:   lipgloss.NewStyle().Reverse(true),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60A5FA")),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("#C084FC")),
	}
}

// PlainStyles returns styles that add no escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()

	return Styles{
		Title:    plain,
		Muted:    plain,
		Busy:     plain,
		Error:    plain,
		Kind:     plain,
		Active:   plain,
		Selected: plain,
		Prompt:   plain,
	}
}

// View renders the model as a full-screen view with mouse support.
func (m *Model) View() tea.View {
	v := tea.NewView(m.Render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	v.WindowTitle = "crdview"

	return v
}

// Render renders the screen as text, one line per terminal row.
func (m *Model) Render() string {
	lines := make([]string, 0, m.height)
	lines = append(lines, m.titleLine())

	if err := m.sess.Err(); err != nil {
		lines = append(lines, m.fit(m.styles.Error.Render(" "+crd.Describe(err)+" "), m.width))
	}

	side := m.sidebarLines()
	main := m.mainLines()
	mainWidth := m.mainWidth()

	for i := range m.bodyHeight() {
		lines = append(lines, pad(side[i], sidebarWidth)+m.styles.Muted.Render(separator)+m.fit(main[i], mainWidth))
	}

	lines = append(lines, m.footerLine())

	return strings.Join(lines, "\n")
}

func (m *Model) titleLine() string {
	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("crdview"))

	if src := m.sess.Source(); src != "" {
		sb.WriteString("  ")
		sb.WriteString(m.styles.Muted.Render(src))
	}

	if m.sess.Busy() {
		sb.WriteString("  ")
		sb.WriteString(m.styles.Busy.Render("loading…"))
	}

	if f := m.sess.Filter(); f != "" && m.mode != ModeFilter {
		sb.WriteString("  ")
		sb.WriteString(m.styles.Prompt.Render("filter: " + f))
	}

	return m.fit(sb.String(), m.width)
}

func (m *Model) sidebarLines() []string {
	h := m.bodyHeight()
	lines := make([]string, h)

	vis := m.sess.Visible()
	if len(vis) == 0 && len(m.sess.Definitions()) > 0 {
		lines[0] = m.styles.Muted.Render(MessageNoMatch)

		return lines
	}

	defs := m.sess.Definitions()

	for i := range h {
		pos := i + m.sideOffset
		if pos >= len(vis) {
			break
		}

		d := defs[vis[pos]]
		label := d.Kind + " " + m.styles.Muted.Render(d.Group)

		switch {
		case vis[pos] != m.sess.SelectedIndex():
			lines[i] = "  " + label
		case m.pane == PaneSidebar:
			lines[i] = m.styles.Active.Render("▸ " + d.Kind + " " + d.Group)
		default:
			lines[i] = "▸ " + m.styles.Selected.Render(d.Kind) + " " + m.styles.Muted.Render(d.Group)
		}
	}

	return lines
}

func (m *Model) mainLines() []string {
	h := m.bodyHeight()
	lines := make([]string, h)

	msgLine := min(paneHeaderHeight, h-1)

	switch m.sess.State() {
	case session.StateEmpty:
		lines[msgLine] = m.styles.Muted.Render(MessageEmpty)

		return lines

	case session.StateNoSelection:
		lines[msgLine] = m.styles.Muted.Render(MessageNoSelection)

		return lines
	}

	lines[0], lines[1] = m.headerLines()

	if m.sess.State() == session.StateNoSchema {
		lines[msgLine] = m.styles.Muted.Render(MessageNoSchema)

		return lines
	}

	t := m.sess.Tree()
	rows := t.Rows()

	if m.metrics != nil {
		m.metrics.ObserveRows(len(rows))
	}

	r := tree.NewRenderer(
		tree.WithStyles(m.treeStyles),
		tree.WithWidth(m.mainWidth()),
	)

	for i := range m.treeHeight() {
		idx := i + m.offset
		if idx >= len(rows) || paneHeaderHeight+i >= h {
			break
		}

		if idx == m.cursor && m.pane == PaneTree {
			lines[paneHeaderHeight+i] = r.SelectedRow(rows[idx])
		} else {
			lines[paneHeaderHeight+i] = r.Row(rows[idx])
		}
	}

	if row, ok := m.rowAt(m.cursor); ok && h > paneHeaderHeight+1 {
		detail := row.Path.Display(t.RootName())
		if desc := strings.Join(strings.Fields(row.Description), " "); desc != "" {
			detail += "  " + desc
		}

		lines[h-1] = m.styles.Muted.Render(detail)
	}

	return lines
}

func (m *Model) headerLines() (string, string) {
	def, ok := m.sess.Selected()
	if !ok {
		return "", ""
	}

	header := m.styles.Kind.Render(def.Kind) + "  " + def.Group
	if def.Plural != "" {
		header += "/" + def.Plural
	}

	if def.Scope != "" {
		header += "  " + m.styles.Muted.Render(def.Scope)
	}

	cur, _ := m.sess.Version()

	parts := make([]string, 0, len(def.Versions))
	for _, v := range def.Versions {
		label := v.Name
		if v.Storage {
			label += " (storage)"
		}

		if v.Deprecated {
			label += " (deprecated)"
		}

		if v.Name == cur.Name {
			label = m.styles.Selected.Render("[" + label + "]")
		}

		parts = append(parts, label)
	}

	return header, m.styles.Muted.Render("versions: ") + strings.Join(parts, "  ")
}

func (m *Model) footerLine() string {
	switch m.mode {
	case ModeFilter:
		return m.fit(m.styles.Prompt.Render("/")+m.input+"█", m.width)
	case ModeURL:
		return m.fit(m.styles.Prompt.Render("open url: ")+m.input+"█", m.width)
	}

	if m.status != "" {
		return m.fit(m.styles.Muted.Render(m.status), m.width)
	}

	return m.fit(m.styles.Muted.Render(helpText), m.width)
}

func (m *Model) topHeight() int {
	if m.sess.Err() != nil {
		return 2
	}

	return 1
}

func (m *Model) bodyHeight() int {
	return max(m.height-m.topHeight()-1, paneHeaderHeight+2)
}

// treeHeight is the number of tree rows that fit between the pane header
// and the detail line.
func (m *Model) treeHeight() int {
	return max(m.bodyHeight()-paneHeaderHeight-1, 1)
}

func (m *Model) mainWidth() int {
	return max(m.width-sidebarWidth-ansi.StringWidth(separator), 10)
}

func (m *Model) fit(s string, w int) string {
	return ansi.Truncate(s, w, "…")
}

// pad truncates or pads s to exactly w columns.
func pad(s string, w int) string {
	s = ansi.Truncate(s, w, "…")
	if n := ansi.StringWidth(s); n < w {
		s += strings.Repeat(" ", w-n)
	}

	return s
}
