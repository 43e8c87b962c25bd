package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Git loads one file from a git repository, cloned into memory.
type Git struct {
	URL string
	// Ref is a branch or tag name. Empty means the remote HEAD.
	Ref string
	// Path is the file within the repository.
	Path string
	// Depth limits the clone history. Zero clones everything.
	Depth int
}

// Load clones the repository and reads Path. A Ref is tried as a branch
// first and then as a tag.
func (g *Git) Load(ctx context.Context) ([]byte, error) {
	if g.URL == "" || g.Path == "" {
		return nil, fmt.Errorf("%w: git source needs a url and a path", ErrInvalidArgument)
	}

	refs := []plumbing.ReferenceName{""}
	if g.Ref != "" {
		refs = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(g.Ref),
			plumbing.NewTagReferenceName(g.Ref),
		}
	}

	var errs []error

	for _, ref := range refs {
		fs, err := g.clone(ctx, ref)
		if err != nil {
			slog.Debug("git clone",
				slog.String("url", g.URL),
				slog.String("ref", ref.String()),
				slog.Any("error", err),
			)

			errs = append(errs, err)

			continue
		}

		return readFile(fs, g.Path)
	}

	return nil, fmt.Errorf("clone %s: %w", g.URL, errors.Join(errs...))
}

func (g *Git) clone(ctx context.Context, ref plumbing.ReferenceName) (billy.Filesystem, error) {
	fs := memfs.New()

	_, err := git.CloneContext(ctx, memory.NewStorage(), fs, &git.CloneOptions{
		URL:           g.URL,
		ReferenceName: ref,
		SingleBranch:  true,
		Depth:         g.Depth,
		Tags:          git.NoTags,
	})
	if err != nil {
		return nil, err
	}

	return fs, nil
}

func readFile(fs billy.Filesystem, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return readLimited(f)
}

func (g *Git) String() string {
	s := g.URL
	if g.Ref != "" {
		s += "@" + g.Ref
	}

	return s + ":" + g.Path
}
