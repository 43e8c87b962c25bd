package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/source"
	"go.jacobcolvin.com/crdview/tree"
)

var (
	// ErrDefinitionNotFound indicates --crd matched no loaded definition.
	ErrDefinitionNotFound = errors.New("definition not found")
	// ErrVersionNotFound indicates --version named no version of a definition.
	ErrVersionNotFound = errors.New("version not found")
)

const messageNoSchema = "No OpenAPI v3 schema found for this version."

type printOptions struct {
	tree    *tree.Config
	styles  tree.Styles
	name    string
	version string
	width   int
}

func load(ctx context.Context, src source.Source) ([]crd.Definition, error) {
	defs, err := crd.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	return defs, nil
}

// matchDefinitions returns the definitions whose name equals name or whose
// kind equals it ignoring case. An empty name matches everything.
func matchDefinitions(defs []crd.Definition, name string) ([]crd.Definition, error) {
	if name == "" {
		return defs, nil
	}

	var out []crd.Definition

	for _, d := range defs {
		if d.Name == name || strings.EqualFold(d.Kind, name) {
			out = append(out, d)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, name)
	}

	return out, nil
}

func printDefinitions(w io.Writer, defs []crd.Definition, opts printOptions) error {
	defs, err := matchDefinitions(defs, opts.name)
	if err != nil {
		return err
	}

	r := tree.NewRenderer(
		tree.WithStyles(opts.styles),
		tree.WithWidth(opts.width),
		tree.WithFullDescriptions(opts.tree.Descriptions),
	)

	for i := range defs {
		if i > 0 {
			fmt.Fprintln(w)
		}

		err := printDefinition(w, r, &defs[i], opts)
		if err != nil {
			return err
		}
	}

	return nil
}

func printDefinition(w io.Writer, r *tree.Renderer, d *crd.Definition, opts printOptions) error {
	name := opts.version
	if name == "" {
		name = d.DefaultVersion()
	}

	v, ok := d.Version(name)
	if !ok && name != "" {
		return fmt.Errorf("%w: %s has no version %q (have %s)",
			ErrVersionNotFound, d.Name, name, strings.Join(d.VersionNames(), ", "))
	}

	fmt.Fprintln(w, header(d, v))

	if v.Schema == nil {
		fmt.Fprintln(w, messageNoSchema)

		return nil
	}

	t := tree.New(v.Schema)
	opts.tree.Apply(t)

	_, err := fmt.Fprintln(w, r.Render(t.Rows()))
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func header(d *crd.Definition, v crd.Version) string {
	parts := []string{d.Kind, d.Group + "/" + d.Plural}
	if d.Scope != "" {
		parts = append(parts, d.Scope)
	}

	if v.Name != "" {
		label := v.Name
		if v.Deprecated {
			label += " (deprecated)"
		}

		parts = append(parts, label)
	}

	return strings.Join(parts, "  ")
}

func listDefinitions(w io.Writer, defs []crd.Definition) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)

	fmt.Fprintln(tw, "NAME\tKIND\tGROUP\tSCOPE\tVERSIONS")

	for _, d := range defs {
		versions := make([]string, 0, len(d.Versions))
		for _, v := range d.Versions {
			name := v.Name
			if v.Storage {
				name += "*"
			}

			versions = append(versions, name)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.Group, d.Scope, strings.Join(versions, ","))
	}

	err := tw.Flush()
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
