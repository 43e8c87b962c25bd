package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/log"
	"go.jacobcolvin.com/crdview/metrics"
	"go.jacobcolvin.com/crdview/session"
	"go.jacobcolvin.com/crdview/source"
	"go.jacobcolvin.com/crdview/tree"
)

// Pane identifies which pane receives navigation keys.
type Pane int

const (
	// PaneSidebar is the definition list.
	PaneSidebar Pane = iota
	// PaneTree is the schema tree.
	PaneTree
)

// Mode is the input mode.
type Mode int

const (
	// ModeBrowse is plain navigation.
	ModeBrowse Mode = iota
	// ModeFilter edits the sidebar filter.
	ModeFilter
	// ModeURL edits the URL to load.
	ModeURL
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	sidebarWidth  = 28
)

type (
	loadedMsg struct {
		err     error
		src     source.Source
		defs    []crd.Definition
		elapsed time.Duration
	}

	logMsg         []byte
	fileChangedMsg struct{}
)

// Model is the Bubble Tea model of the viewer.
//
// Create instances with [New].
type Model struct {
	ctx        context.Context
	sess       *session.Session
	src        source.Source
	urlSource  func(url string) source.Source
	metrics    *metrics.Metrics
	logs       *log.Subscription
	watcher    *source.Watcher
	styles     Styles
	treeStyles tree.Styles
	status     string
	input      string
	pane       Pane
	mode       Mode
	cursor     int
	offset     int
	sideOffset int
	width      int
	height     int
}

// Option configures a [Model].
type Option func(*Model)

// WithContext sets the context loads run under. Defaults to
// [context.Background].
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		m.ctx = ctx
	}
}

// WithLogs shows the latest entry of sub in the status line. Entries are
// expected in [log.FormatJSON].
func WithLogs(sub *log.Subscription) Option {
	return func(m *Model) {
		m.logs = sub
	}
}

// WithWatcher reloads the current source whenever w reports a change.
func WithWatcher(w *source.Watcher) Option {
	return func(m *Model) {
		m.watcher = w
	}
}

// WithMetrics records loads, renders and toggles into mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Model) {
		m.metrics = mt
	}
}

// WithURLSource sets the constructor for URLs typed into the prompt.
func WithURLSource(fn func(url string) source.Source) Option {
	return func(m *Model) {
		m.urlSource = fn
	}
}

// WithStyles sets the chrome and tree styles.
func WithStyles(s Styles, ts tree.Styles) Option {
	return func(m *Model) {
		m.styles = s
		m.treeStyles = ts
	}
}

// WithSession replaces the session, for example to install an expander
// with [session.WithExpander].
func WithSession(s *session.Session) Option {
	return func(m *Model) {
		m.sess = s
	}
}

// WithSize sets the initial terminal size, before the first
// [tea.WindowSizeMsg].
func WithSize(width, height int) Option {
	return func(m *Model) {
		m.width = width
		m.height = height
	}
}

// New creates a [Model] that loads src on start.
func New(src source.Source, opts ...Option) *Model {
	m := &Model{
		ctx:        context.Background(),
		sess:       session.New(),
		src:        src,
		styles:     DefaultStyles(),
		treeStyles: tree.DefaultStyles(),
		width:      defaultWidth,
		height:     defaultHeight,
		urlSource: func(url string) source.Source {
			return source.NewURL(url)
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Session returns the model's session.
func (m *Model) Session() *session.Session {
	return m.sess
}

// Status returns the status line text.
func (m *Model) Status() string {
	return m.status
}

// Pane returns the focused pane.
func (m *Model) Pane() Pane {
	return m.pane
}

// Mode returns the input mode.
func (m *Model) Mode() Mode {
	return m.mode
}

// Cursor returns the index of the highlighted tree row.
func (m *Model) Cursor() int {
	return m.cursor
}

// Init starts the first load and the log and watch listeners.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(m.src), m.waitLog(), m.waitChange())
}

// load starts loading src through the session's busy gate. It returns nil
// when a load is already running.
func (m *Model) load(src source.Source) tea.Cmd {
	if src == nil {
		return nil
	}

	if !m.sess.Begin(src.String()) {
		m.status = "A load is already in progress."

		return nil
	}

	m.status = "Loading " + src.String() + "…"
	ctx := m.ctx

	return func() tea.Msg {
		start := time.Now()
		defs, err := crd.Load(ctx, src)

		return loadedMsg{src: src, defs: defs, err: err, elapsed: time.Since(start)}
	}
}

func (m *Model) waitLog() tea.Cmd {
	if m.logs == nil {
		return nil
	}

	sub := m.logs

	return func() tea.Msg {
		b, ok := <-sub.C()
		if !ok {
			return nil
		}

		return logMsg(b)
	}
}

func (m *Model) waitChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}

	w := m.watcher

	return func() tea.Msg {
		_, ok := <-w.Changes()
		if !ok {
			return nil
		}

		return fileChangedMsg{}
	}
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampTree()

	case loadedMsg:
		m.finish(msg)

	case logMsg:
		m.status = summarize(msg)

		return m, m.waitLog()

	case fileChangedMsg:
		return m, tea.Batch(m.load(m.src), m.waitChange())

	case tea.PasteMsg:
		if m.mode != ModeBrowse {
			m.input += strings.ReplaceAll(msg.Content, "\n", "")
			m.applyInput()

			return m, nil
		}

		return m, m.load(source.NewText("pasted text", []byte(msg.Content)))

	case tea.MouseClickMsg:
		m.click(msg.Mouse())

	case tea.MouseWheelMsg:
		switch msg.Button {
		case tea.MouseWheelUp:
			m.moveTree(-3)
		case tea.MouseWheelDown:
			m.moveTree(3)
		}

	case tea.KeyPressMsg:
		return m, m.key(msg)
	}

	return m, nil
}

func (m *Model) finish(msg loadedMsg) {
	m.sess.Finish(msg.defs, msg.err)

	if m.metrics != nil {
		m.metrics.ObserveLoad(msg.elapsed, len(msg.defs), msg.err)
	}

	if msg.err != nil {
		m.status = ""

		slog.Warn("load definitions",
			slog.String("source", msg.src.String()),
			slog.Any("error", msg.err),
		)

		return
	}

	m.src = msg.src
	m.resetTree()
	m.sideOffset = 0
	m.status = fmt.Sprintf("Loaded %d definitions from %s.", len(msg.defs), msg.src)
}

func summarize(b []byte) string {
	e, err := log.ParseEntry(b)
	if err != nil {
		return strings.TrimSpace(string(b))
	}

	return e.String()
}

func (m *Model) key(msg tea.KeyPressMsg) tea.Cmd {
	if m.mode != ModeBrowse {
		return m.promptKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "tab", "shift+tab":
		if m.pane == PaneSidebar {
			m.pane = PaneTree
		} else {
			m.pane = PaneSidebar
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "pgup":
		m.move(-m.treeHeight())
	case "pgdown":
		m.move(m.treeHeight())
	case "home", "g":
		m.move(-1 << 30)
	case "end", "G":
		m.move(1 << 30)
	case "enter", "space":
		if m.pane == PaneSidebar {
			m.pane = PaneTree
		} else {
			m.toggle(m.cursor)
		}
	case "right", "l":
		m.setExpanded(true)
	case "left", "h":
		m.setExpanded(false)
	case "v", "]":
		m.cycleVersion(1)
	case "V", "[":
		m.cycleVersion(-1)
	case "E":
		if t := m.sess.Tree(); t != nil {
			t.ExpandTo(-1)
		}
	case "C":
		if t := m.sess.Tree(); t != nil {
			t.CollapseAll()
			m.clampTree()
		}
	case "/":
		m.mode = ModeFilter
		m.input = m.sess.Filter()
	case "o":
		m.mode = ModeURL
		m.input = ""
	case "esc":
		m.sess.SetFilter("")
		m.sideOffset = 0
	case "r":
		return m.load(m.src)
	case "c":
		m.sess.Clear()
		m.resetTree()
		m.status = "Cleared."

		if m.metrics != nil {
			m.metrics.SetDefinitions(0)
		}
	}

	return nil
}

func (m *Model) promptKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		if m.mode == ModeFilter {
			m.sess.SetFilter("")
		}

		m.mode = ModeBrowse
		m.input = ""

	case "enter":
		mode, input := m.mode, strings.TrimSpace(m.input)
		m.mode = ModeBrowse
		m.input = ""

		if mode == ModeURL && input != "" {
			return m.load(m.urlSource(input))
		}

	case "backspace":
		if m.input != "" {
			r := []rune(m.input)
			m.input = string(r[:len(r)-1])
			m.applyInput()
		}

	case "ctrl+c":
		return tea.Quit

	default:
		if msg.Text != "" {
			m.input += msg.Text
			m.applyInput()
		}
	}

	return nil
}

// applyInput keeps the live filter in sync with the prompt.
func (m *Model) applyInput() {
	if m.mode != ModeFilter {
		return
	}

	m.sess.SetFilter(m.input)
	m.sideOffset = 0

	if vis := m.sess.Visible(); len(vis) > 0 && !containsIndex(vis, m.sess.SelectedIndex()) {
		m.sess.Select(vis[0])
		m.resetTree()
	}
}

func containsIndex(idx []int, i int) bool {
	for _, v := range idx {
		if v == i {
			return true
		}
	}

	return false
}

func (m *Model) move(delta int) {
	if m.pane == PaneTree {
		m.moveTree(delta)

		return
	}

	vis := m.sess.Visible()
	if len(vis) == 0 {
		return
	}

	pos := 0

	for i, idx := range vis {
		if idx == m.sess.SelectedIndex() {
			pos = i

			break
		}
	}

	pos = min(max(pos+delta, 0), len(vis)-1)
	if vis[pos] != m.sess.SelectedIndex() {
		m.sess.Select(vis[pos])
		m.resetTree()
	}

	h := m.bodyHeight()
	if pos < m.sideOffset {
		m.sideOffset = pos
	} else if pos >= m.sideOffset+h {
		m.sideOffset = pos - h + 1
	}
}

func (m *Model) moveTree(delta int) {
	t := m.sess.Tree()
	if t == nil {
		return
	}

	n := len(t.Rows())
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.scrollToCursor()
}

func (m *Model) toggle(i int) {
	t := m.sess.Tree()
	if t == nil {
		return
	}

	rows := t.Rows()
	if i < 0 || i >= len(rows) {
		return
	}

	if t.Toggle(rows[i].Path) && m.metrics != nil {
		m.metrics.ObserveToggle()
	}

	m.cursor = i
	m.clampTree()
}

// setExpanded opens the cursor row, or closes it. Closing a row that is
// already closed moves the cursor to its parent.
func (m *Model) setExpanded(open bool) {
	if m.pane != PaneTree {
		return
	}

	t := m.sess.Tree()
	if t == nil {
		return
	}

	rows := t.Rows()
	if m.cursor >= len(rows) {
		return
	}

	row := rows[m.cursor]

	if open || row.Expanded {
		if row.Expandable && row.Expanded != open {
			m.toggle(m.cursor)
		}

		return
	}

	for i := m.cursor - 1; i >= 0; i-- {
		if rows[i].Depth < row.Depth {
			m.cursor = i
			m.scrollToCursor()

			return
		}
	}
}

func (m *Model) cycleVersion(delta int) {
	if m.sess.CycleVersion(delta) {
		m.resetTree()
	}
}

func (m *Model) resetTree() {
	m.cursor = 0
	m.offset = 0
}

func (m *Model) clampTree() {
	t := m.sess.Tree()
	if t == nil {
		m.resetTree()

		return
	}

	n := len(t.Rows())
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))
	m.scrollToCursor()
}

func (m *Model) scrollToCursor() {
	h := m.treeHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	} else if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func (m *Model) click(mouse tea.Mouse) {
	if mouse.Button != tea.MouseLeft {
		return
	}

	top := m.topHeight()
	if mouse.Y < top || mouse.Y >= top+m.bodyHeight() {
		return
	}

	if mouse.X < sidebarWidth {
		vis := m.sess.Visible()

		pos := mouse.Y - top + m.sideOffset
		if pos < len(vis) {
			m.pane = PaneSidebar
			m.sess.Select(vis[pos])
			m.resetTree()
		}

		return
	}

	row := mouse.Y - top - paneHeaderHeight
	if row < 0 || row >= m.treeHeight() {
		return
	}

	m.pane = PaneTree
	m.toggle(row + m.offset)
}

// Run runs m as a full-screen program until it quits.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)

	_, err := tea.NewProgram(m, opts...).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}

	return nil
}

// rowAt returns the tree row at index i, if any.
func (m *Model) rowAt(i int) (tree.Row, bool) {
	t := m.sess.Tree()
	if t == nil {
		return tree.Row{}, false
	}

	rows := t.Rows()
	if i < 0 || i >= len(rows) {
		return tree.Row{}, false
	}

	return rows[i], true
}

// CursorPath returns the display path of the highlighted row.
func (m *Model) CursorPath() string {
	row, ok := m.rowAt(m.cursor)
	if !ok {
		return ""
	}

	return row.Path.Display(m.sess.Tree().RootName())
}
