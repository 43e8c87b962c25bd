package tree

import (
	"slices"

	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/crdview/schema"
)

// MaxDepth bounds [Tree.ExpandTo] when asked to expand everything.
const MaxDepth = 64

// Row is one visible node of a [Tree].
type Row struct {
	Schema      *jsonschema.Schema
	Path        schema.Path
	Name        string
	Type        string
	Format      string
	Description string
	Depth       int
	Kind        schema.Kind
	Expandable  bool
	Expanded    bool
	Required    bool
	// Items marks the synthetic array-items row.
	Items bool
}

// Tree is the expansion state of one schema root.
//
// Every node starts collapsed. State is keyed by [schema.Path] and only
// touched through [Tree.Toggle], [Tree.SetExpanded], [Tree.ExpandTo] and
// [Tree.CollapseAll]. Build a new Tree when the root changes.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	root         *jsonschema.Schema
	expanded     map[schema.Path]bool
	rootName     string
	rootRequired bool
}

// Option configures a [Tree].
type Option func(*Tree)

// WithRootName sets the name shown for the root row. Defaults to "spec".
func WithRootName(name string) Option {
	return func(t *Tree) {
		t.rootName = name
	}
}

// WithRootRequired sets the required marker of the root row. Defaults to
// true.
func WithRootRequired(required bool) Option {
	return func(t *Tree) {
		t.rootRequired = required
	}
}

// New creates a [Tree] over root with every node collapsed. A nil root
// renders as a single unconstrained leaf.
func New(root *jsonschema.Schema, opts ...Option) *Tree {
	t := &Tree{
		root:         root,
		expanded:     map[schema.Path]bool{},
		rootName:     "spec",
		rootRequired: true,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Root returns the schema the tree was built over.
func (t *Tree) Root() *jsonschema.Schema {
	return t.root
}

// RootName returns the name of the root row.
func (t *Tree) RootName() string {
	return t.rootName
}

// Rows returns the visible rows in display order. Children of a node are
// visited only when the node is expanded.
func (t *Tree) Rows() []Row {
	return t.render(nil, schema.Root, t.rootName, t.root, t.rootRequired, false, 0)
}

func (t *Tree) render(
	rows []Row,
	path schema.Path,
	name string,
	node *jsonschema.Schema,
	required, items bool,
	depth int,
) []Row {
	expandable := schema.HasChildren(node)
	expanded := expandable && t.expanded[path]

	row := Row{
		Schema:     node,
		Path:       path,
		Name:       name,
		Type:       schema.TypeLabel(node),
		Depth:      depth,
		Kind:       schema.Classify(node),
		Expandable: expandable,
		Expanded:   expanded,
		Required:   required,
		Items:      items,
	}

	if node != nil {
		row.Format = node.Format
		row.Description = node.Description
	}

	rows = append(rows, row)

	if !expanded {
		return rows
	}

	for _, e := range schema.Children(node) {
		child := path.Child(e.Name)
		if e.Items {
			child = path.Items()
		}

		rows = t.render(rows, child, e.Name, e.Schema, e.Required, e.Items, depth+1)
	}

	return rows
}

// Node resolves path to its schema node.
func (t *Tree) Node(path schema.Path) (*jsonschema.Schema, bool) {
	steps, ok := path.Steps()
	if !ok {
		return nil, false
	}

	cur := t.root
	for _, st := range steps {
		if cur == nil {
			return nil, false
		}

		if st.Items {
			cur = schema.ItemsOf(cur)
			if cur == nil {
				return nil, false
			}

			continue
		}

		next, found := cur.Properties[st.Name]
		if !found {
			return nil, false
		}

		cur = next
	}

	return cur, true
}

// Expandable reports whether path names a node that has children.
func (t *Tree) Expandable(path schema.Path) bool {
	node, ok := t.Node(path)

	return ok && schema.HasChildren(node)
}

// Expanded reports whether path is expanded.
func (t *Tree) Expanded(path schema.Path) bool {
	return t.expanded[path]
}

// Toggle flips the expansion of path and reports whether anything changed.
// Paths without children are left alone.
func (t *Tree) Toggle(path schema.Path) bool {
	return t.SetExpanded(path, !t.expanded[path])
}

// SetExpanded sets the expansion of path and reports whether the path is
// expandable. Paths without children are left alone.
func (t *Tree) SetExpanded(path schema.Path, expanded bool) bool {
	if !t.Expandable(path) {
		return false
	}

	if expanded {
		t.expanded[path] = true
	} else {
		delete(t.expanded, path)
	}

	return true
}

// ExpandTo expands every expandable node shallower than depth. A negative
// depth expands everything down to [MaxDepth].
func (t *Tree) ExpandTo(depth int) {
	if depth < 0 || depth > MaxDepth {
		depth = MaxDepth
	}

	t.expandTo(schema.Root, t.root, depth)
}

func (t *Tree) expandTo(path schema.Path, node *jsonschema.Schema, depth int) {
	if depth <= 0 || !schema.HasChildren(node) {
		return
	}

	t.expanded[path] = true

	for _, e := range schema.Children(node) {
		child := path.Child(e.Name)
		if e.Items {
			child = path.Items()
		}

		t.expandTo(child, e.Schema, depth-1)
	}
}

// CollapseAll collapses every node.
func (t *Tree) CollapseAll() {
	clear(t.expanded)
}

// ExpandedPaths returns the expanded paths in sorted order.
func (t *Tree) ExpandedPaths() []schema.Path {
	paths := make([]schema.Path, 0, len(t.expanded))
	for p := range t.expanded {
		paths = append(paths, p)
	}

	slices.Sort(paths)

	return paths
}
