package tree

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"go.jacobcolvin.com/crdview/schema"
)

// IndentWidth is the number of columns each depth level is indented by.
const IndentWidth = 2

const (
	caretExpanded  = "▾ "
	caretCollapsed = "▸ "
	caretNone      = "  "
)

// Icons maps each [schema.Kind] to a two-column glyph.
var Icons = map[schema.Kind]string{
	schema.KindArray:  "[]",
	schema.KindObject: "{}",
	schema.KindLeaf:   " •",
}

// Styles holds the lipgloss styles used by a [Renderer].
type Styles struct {
	Types       map[string]lipgloss.Style
	Caret       lipgloss.Style
	Icon        lipgloss.Style
	Name        lipgloss.Style
	Required    lipgloss.Style
	AnyType     lipgloss.Style
	Format      lipgloss.Style
	Caption     lipgloss.Style
	Description lipgloss.Style
	Selected    lipgloss.Style
}

// DefaultStyles returns colored styles for terminals.
func DefaultStyles() Styles {
	badge := func(hex string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}

	return Styles{
		Types: map[string]lipgloss.Style{
			"object":  badge("#60A5FA"),
			"array":   badge("#C084FC"),
			"string":  badge("#4ADE80"),
			"integer": badge("#FB923C"),
			"number":  badge("#FB923C"),
			"boolean": badge("#F87171"),
		},
		Caret:       lipgloss.NewStyle().Faint(true),
		Icon:        lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8")),
		Name:        lipgloss.NewStyle().Bold(true),
		Required:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		AnyType:     lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true),
		Format:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FACC15")),
		Caption:     lipgloss.NewStyle().Foreground(lipgloss.Color("#C084FC")).Italic(true),
		Description: lipgloss.NewStyle().Faint(true),
		Selected:    lipgloss.NewStyle().Reverse(true),
	}
}

// PlainStyles returns styles that add no escape sequences.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()

	return Styles{
		Types:       map[string]lipgloss.Style{},
		Caret:       plain,
		Icon:        plain,
		Name:        plain,
		Required:    plain,
		AnyType:     plain,
		Format:      plain,
		Caption:     plain,
		Description: plain,
		Selected:    plain,
	}
}

// Renderer formats [Row] values as text.
type Renderer struct {
	styles Styles
	width  int
	full   bool
}

// RendererOption configures a [Renderer].
type RendererOption func(*Renderer)

// WithStyles sets the styles. Defaults to [DefaultStyles].
func WithStyles(s Styles) RendererOption {
	return func(r *Renderer) {
		r.styles = s
	}
}

// WithWidth truncates each rendered line to w columns. Zero disables
// truncation.
func WithWidth(w int) RendererOption {
	return func(r *Renderer) {
		r.width = max(w, 0)
	}
}

// WithFullDescriptions renders multi-line descriptions on continuation lines
// below their row in [Renderer.Render]. By default descriptions are folded
// onto the row line.
func WithFullDescriptions(full bool) RendererOption {
	return func(r *Renderer) {
		r.full = full
	}
}

// NewRenderer creates a [Renderer].
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{styles: DefaultStyles()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Row renders one row on a single line.
func (r *Renderer) Row(row Row) string {
	return r.line(row, false)
}

// SelectedRow renders one row with the selection style applied.
func (r *Renderer) SelectedRow(row Row) string {
	return r.line(row, true)
}

func (r *Renderer) line(row Row, selected bool) string {
	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", row.Depth*IndentWidth))
	sb.WriteString(r.styles.Caret.Render(Caret(row)))
	sb.WriteString(r.styles.Icon.Render(Icons[row.Kind]))
	sb.WriteByte(' ')

	name := r.styles.Name
	if selected {
		name = r.styles.Selected
	}

	sb.WriteString(name.Render(row.Name))

	if row.Required {
		sb.WriteString(r.styles.Required.Render("*"))
	}

	sb.WriteString("  ")
	sb.WriteString(r.typeBadge(row.Type))

	if row.Format != "" {
		sb.WriteByte(' ')
		sb.WriteString(r.styles.Format.Render("(" + row.Format + ")"))
	}

	if caption := ItemsCaption(row); caption != "" {
		sb.WriteString("  ")
		sb.WriteString(r.styles.Caption.Render(caption))
	}

	desc := row.Description
	if r.full {
		desc, _, _ = strings.Cut(desc, "\n")
	}

	desc = foldSpace(desc)
	if desc != "" {
		sb.WriteString("  ")
		sb.WriteString(r.styles.Description.Render(desc))
	}

	out := sb.String()
	if r.width > 0 {
		out = ansi.Truncate(out, r.width, "…")
	}

	return out
}

// Render renders rows joined by newlines. With [WithFullDescriptions] the
// remaining lines of each description follow its row, aligned with the name.
func (r *Renderer) Render(rows []Row) string {
	lines := make([]string, 0, len(rows))

	for _, row := range rows {
		lines = append(lines, r.Row(row))

		if !r.full {
			continue
		}

		_, rest, found := strings.Cut(row.Description, "\n")
		if !found {
			continue
		}

		pad := strings.Repeat(" ", row.Depth*IndentWidth+lipgloss.Width(caretNone)+3)

		for l := range strings.SplitSeq(strings.TrimRight(rest, "\n"), "\n") {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}

			line := pad + r.styles.Description.Render(l)
			if r.width > 0 {
				line = ansi.Truncate(line, r.width, "…")
			}

			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func (r *Renderer) typeBadge(t string) string {
	if t == "any" {
		return r.styles.AnyType.Render(t)
	}

	if s, ok := r.styles.Types[t]; ok {
		return s.Render(t)
	}

	return t
}

// ItemsCaption labels the synthetic array-items row with its element type,
// e.g. "Array Items (object)". Other rows get "".
func ItemsCaption(row Row) string {
	if !row.Items {
		return ""
	}

	return "Array Items (" + row.Type + ")"
}

// Caret returns the expand affordance for row. Rows without children get
// blank padding of the same width.
func Caret(row Row) string {
	switch {
	case !row.Expandable:
		return caretNone
	case row.Expanded:
		return caretExpanded
	default:
		return caretCollapsed
	}
}

func foldSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
