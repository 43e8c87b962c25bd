package tree_test

import (
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"go.jacobcolvin.com/crdview/schema"
	"go.jacobcolvin.com/crdview/stringtest"
	"go.jacobcolvin.com/crdview/tree"
)

func TestRendererPlain(t *testing.T) {
	t.Parallel()

	tr := tree.New(parse(t, widgetSchema))
	tr.ExpandTo(-1)

	r := tree.NewRenderer(tree.WithStyles(tree.PlainStyles()))

	want := stringtest.JoinLF(
		"▾ {} spec*  object",
		"  ▾ {} spec  object",
		"       • replicas*  integer (int32)  Number of replicas.",
		"      {} selector  object",
		"    ▾ [] ports  array",
		"      ▾ {} [index]  object  Array Items (object)",
		"           • port  integer",
		"     • status  any  Observed state.",
	)

	assert.Equal(t, want, r.Render(tr.Rows()))
}

func TestItemsCaption(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		row  tree.Row
		want string
	}{
		"items row": {
			row:  tree.Row{Name: schema.ItemsName, Type: "string", Items: true},
			want: "Array Items (string)",
		},
		"untyped items": {
			row:  tree.Row{Name: schema.ItemsName, Type: "any", Items: true},
			want: "Array Items (any)",
		},
		"property named like items": {
			row:  tree.Row{Name: schema.ItemsName, Type: "object"},
			want: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tree.ItemsCaption(tc.row))
		})
	}
}

func TestRendererCaretAlignment(t *testing.T) {
	t.Parallel()

	expandable := tree.Row{Expandable: true}
	leaf := tree.Row{}

	assert.Equal(t, ansi.StringWidth(tree.Caret(expandable)), ansi.StringWidth(tree.Caret(leaf)))

	expandable.Expanded = true
	assert.Equal(t, ansi.StringWidth(tree.Caret(expandable)), ansi.StringWidth(tree.Caret(leaf)))
}

func TestRendererDescriptions(t *testing.T) {
	t.Parallel()

	tr := tree.New(parse(t, `
		type: string
		description: |
		  First line.
		  Second   line.
	`))

	tcs := map[string]struct {
		opts []tree.RendererOption
		want string
	}{
		"folded": {
			opts: nil,
			want: "   • spec*  string  First line. Second line.",
		},
		"full": {
			opts: []tree.RendererOption{tree.WithFullDescriptions(true)},
			want: stringtest.JoinLF(
				"   • spec*  string  First line.",
				"     Second   line.",
			),
		},
		"truncated": {
			opts: []tree.RendererOption{tree.WithWidth(20)},
			want: "   • spec*  string …",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := append([]tree.RendererOption{tree.WithStyles(tree.PlainStyles())}, tc.opts...)
			got := tree.NewRenderer(opts...).Render(tr.Rows())
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRendererStyled(t *testing.T) {
	t.Parallel()

	tr := tree.New(parse(t, widgetSchema))
	tr.Toggle(schema.Root)

	r := tree.NewRenderer()
	rows := tr.Rows()

	for _, row := range rows {
		plain := tree.NewRenderer(tree.WithStyles(tree.PlainStyles())).Row(row)
		assert.Equal(t, plain, stringtest.StripANSI(r.Row(row)))
		assert.Equal(t, plain, stringtest.StripANSI(r.SelectedRow(row)))
	}
}
