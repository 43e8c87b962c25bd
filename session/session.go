package session

import (
	"strings"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/tree"
)

// State describes what the schema pane should show.
type State int

const (
	// StateEmpty means no definitions are loaded.
	StateEmpty State = iota
	// StateNoSelection means definitions are loaded but none is selected.
	StateNoSelection
	// StateNoSchema means the selected version has no OpenAPI v3 schema, or
	// the definition has no versions.
	StateNoSchema
	// StateSchema means a schema tree is available.
	StateSchema
)

// Session is the in-memory state of one viewer: the loaded collection, the
// sidebar filter, the selection, and the expansion tree of the selected
// schema.
//
// Selecting another definition or version replaces the tree, so expansion
// state never carries across schema roots. A failed load leaves the
// collection untouched.
//
// A Session is not safe for concurrent use.
type Session struct {
	err      error
	tree     *tree.Tree
	expand   func(*tree.Tree)
	source   string
	filter   string
	version  string
	defs     []crd.Definition
	selected int
	busy     bool
}

// Option configures a [Session].
type Option func(*Session)

// WithExpander sets a function applied to every new tree, for example to
// expand the first levels.
func WithExpander(fn func(*tree.Tree)) Option {
	return func(s *Session) {
		s.expand = fn
	}
}

// New creates an empty [Session].
func New(opts ...Option) *Session {
	s := &Session{selected: -1}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Begin marks a load of source as in flight. It returns false, changing
// nothing, when another load is already in flight.
func (s *Session) Begin(source string) bool {
	if s.busy {
		return false
	}

	s.busy = true
	s.err = nil
	s.source = source

	return true
}

// Busy reports whether a load is in flight.
func (s *Session) Busy() bool {
	return s.busy
}

// Finish completes the in-flight load. On success defs replace the
// collection and the first definition is selected. On failure the error is
// recorded and the previous collection stays.
func (s *Session) Finish(defs []crd.Definition, err error) {
	s.busy = false

	if err != nil {
		s.err = err

		return
	}

	s.err = nil
	s.defs = defs
	s.selected = -1
	s.version = ""
	s.tree = nil

	if len(defs) > 0 {
		s.Select(0)
	}
}

// Err returns the error of the last load, if it failed.
func (s *Session) Err() error {
	return s.err
}

// Source returns the source of the last load started.
func (s *Session) Source() string {
	return s.source
}

// Clear drops the collection, the selection, the filter and any error.
func (s *Session) Clear() {
	s.defs = nil
	s.selected = -1
	s.version = ""
	s.tree = nil
	s.filter = ""
	s.err = nil
}

// Definitions returns the whole collection.
func (s *Session) Definitions() []crd.Definition {
	return s.defs
}

// SetFilter sets the sidebar filter. Definitions match when their kind or
// group contains the filter, ignoring case.
func (s *Session) SetFilter(f string) {
	s.filter = f
}

// Filter returns the sidebar filter.
func (s *Session) Filter() string {
	return s.filter
}

// Visible returns the indexes into [Session.Definitions] of the definitions
// matching the filter, in collection order.
func (s *Session) Visible() []int {
	idx := make([]int, 0, len(s.defs))
	for i := range s.defs {
		if Matches(&s.defs[i], s.filter) {
			idx = append(idx, i)
		}
	}

	return idx
}

// Matches reports whether the kind or group of d contains filter, ignoring
// case. An empty filter matches everything.
func Matches(d *crd.Definition, filter string) bool {
	q := strings.ToLower(filter)

	return q == "" ||
		strings.Contains(strings.ToLower(d.Kind), q) ||
		strings.Contains(strings.ToLower(d.Group), q)
}

// Select selects the definition at index i of the collection, selects its
// first version and resets the tree. It returns false if i is out of range.
func (s *Session) Select(i int) bool {
	if i < 0 || i >= len(s.defs) {
		return false
	}

	s.selected = i
	s.version = s.defs[i].DefaultVersion()
	s.rebuild()

	return true
}

// SelectName selects the first definition named name.
func (s *Session) SelectName(name string) bool {
	for i, d := range s.defs {
		if d.Name == name {
			return s.Select(i)
		}
	}

	return false
}

// Selected returns the selected definition.
func (s *Session) Selected() (*crd.Definition, bool) {
	if s.selected < 0 || s.selected >= len(s.defs) {
		return nil, false
	}

	return &s.defs[s.selected], true
}

// SelectedIndex returns the index of the selected definition, or -1.
func (s *Session) SelectedIndex() int {
	return s.selected
}

// SelectVersion selects the named version of the selected definition and
// resets the tree. It returns false if no such version exists.
func (s *Session) SelectVersion(name string) bool {
	def, ok := s.Selected()
	if !ok {
		return false
	}

	if _, ok := def.Version(name); !ok {
		return false
	}

	s.version = name
	s.rebuild()

	return true
}

// CycleVersion moves the version selection by delta, wrapping around.
func (s *Session) CycleVersion(delta int) bool {
	def, ok := s.Selected()
	if !ok || len(def.Versions) < 2 {
		return false
	}

	cur := 0

	for i, v := range def.Versions {
		if v.Name == s.version {
			cur = i

			break
		}
	}

	n := len(def.Versions)
	next := ((cur+delta)%n + n) % n

	return s.SelectVersion(def.Versions[next].Name)
}

// Version returns the selected version of the selected definition.
func (s *Session) Version() (crd.Version, bool) {
	def, ok := s.Selected()
	if !ok {
		return crd.Version{}, false
	}

	return def.Version(s.version)
}

// Tree returns the expansion tree of the selected schema, or nil when there
// is none. See [Session.State].
func (s *Session) Tree() *tree.Tree {
	return s.tree
}

// State reports what the schema pane should show.
func (s *Session) State() State {
	switch {
	case len(s.defs) == 0:
		return StateEmpty
	case s.selected < 0:
		return StateNoSelection
	case s.tree == nil:
		return StateNoSchema
	}

	return StateSchema
}

func (s *Session) rebuild() {
	s.tree = nil

	v, ok := s.Version()
	if !ok || v.Schema == nil {
		return
	}

	s.tree = tree.New(v.Schema)
	if s.expand != nil {
		s.expand(s.tree)
	}
}
