package crd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.jacobcolvin.com/crdview/manifest"
)

var (
	// ErrAcquire indicates the source text could not be obtained, or was
	// empty.
	ErrAcquire = errors.New("load source")
	// ErrParse indicates the source text is not valid YAML or JSON.
	ErrParse = errors.New("parse source")
	// ErrNoDefinitions indicates the source parsed but contained no
	// CustomResourceDefinition documents.
	ErrNoDefinitions = errors.New("no CustomResourceDefinitions found")
)

// Loader produces the raw text of a manifest stream.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
}

// Load reads l and extracts its definitions. Errors wrap exactly one of
// [ErrAcquire], [ErrParse] or [ErrNoDefinitions].
func Load(ctx context.Context, l Loader) ([]Definition, error) {
	data, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	}

	return Parse(data)
}

// Parse extracts the definitions from data. Errors wrap exactly one of
// [ErrAcquire] (empty input), [ErrParse] or [ErrNoDefinitions].
func Parse(data []byte) ([]Definition, error) {
	docs, err := manifest.Parse(data)

	switch {
	case errors.Is(err, manifest.ErrEmptyInput):
		return nil, fmt.Errorf("%w: %w", ErrAcquire, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	defs := Extract(docs)
	if len(defs) == 0 {
		return nil, ErrNoDefinitions
	}

	return defs, nil
}

// Describe returns a one-line message for a [Load] or [Parse] error.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoDefinitions):
		return "No CustomResourceDefinitions found in the file."
	case errors.Is(err, ErrParse):
		return "Invalid YAML: " + strings.TrimPrefix(detail(err, ErrParse), manifest.ErrInvalidYAML.Error()+": ")
	case errors.Is(err, ErrAcquire):
		return "Failed to load: " + detail(err, ErrAcquire)
	}

	return err.Error()
}

// detail formats err without its leading sentinel.
func detail(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
