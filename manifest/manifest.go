package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
)

var (
	// ErrInvalidYAML indicates the input could not be parsed as YAML or JSON.
	ErrInvalidYAML = errors.New("invalid yaml")
	// ErrEmptyInput indicates the input contained no text.
	ErrEmptyInput = errors.New("empty input")
)

// Document is one top-level mapping of a multi-document YAML stream. Key
// order is preserved as written.
type Document struct {
	Value yaml.MapSlice
	// Index is the position of the document in the stream, counting documents
	// that were skipped.
	Index int
}

// Parse splits data into documents and decodes each one into an ordered
// mapping. JSON input is accepted since it is valid YAML.
//
// Null, empty and comment-only documents are skipped, as are documents whose
// top level is not a mapping. A syntax error anywhere in the stream fails the
// whole parse with [ErrInvalidYAML].
func Parse(data []byte) ([]Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	r := k8syaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))

	var (
		docs []Document
		idx  int
	)

	for {
		chunk, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidYAML, err)
		}

		parsed, n, err := parseChunk(chunk, idx)
		if err != nil {
			return nil, err
		}

		docs = append(docs, parsed...)
		idx += n
	}

	return docs, nil
}

// parseChunk decodes one separator-delimited chunk. A chunk usually holds a
// single document, but may hold more when it uses "..." end markers. It
// returns the mapping documents and the number of documents consumed.
func parseChunk(chunk []byte, start int) ([]Document, int, error) {
	file, err := parser.ParseBytes(chunk, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: document %d: %s", ErrInvalidYAML, start, yaml.FormatError(err, false, true))
	}

	if len(file.Docs) == 0 {
		return nil, 1, nil
	}

	var out []Document

	for i, doc := range file.Docs {
		idx := start + i

		if doc == nil || doc.Body == nil {
			continue
		}

		if _, ok := doc.Body.(*ast.NullNode); ok {
			continue
		}

		var v any

		err := yaml.NodeToValue(doc.Body, &v, yaml.UseOrderedMap())
		if err != nil {
			return nil, 0, fmt.Errorf("%w: document %d: %w", ErrInvalidYAML, idx, err)
		}

		m, ok := v.(yaml.MapSlice)
		if !ok {
			slog.Debug("skip non-mapping document",
				slog.Int("index", idx),
				slog.String("type", fmt.Sprintf("%T", v)),
			)

			continue
		}

		out = append(out, Document{Value: m, Index: idx})
	}

	return out, len(file.Docs), nil
}

// Get walks nested mappings by key and returns the value found, if any.
func (d Document) Get(keys ...string) (any, bool) {
	return Lookup(d.Value, keys...)
}

// String returns the string stored under keys, or "".
func (d Document) String(keys ...string) string {
	v, ok := d.Get(keys...)
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// Kind returns the document's top-level "kind".
func (d Document) Kind() string {
	return d.String("kind")
}

// Object returns the document converted to plain JSON-compatible values,
// suitable for apimachinery's unstructured helpers.
func (d Document) Object() map[string]any {
	obj, _ := Normalize(d.Value).(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}

	return obj
}

// Lookup walks nested ordered mappings by key.
func Lookup(v any, keys ...string) (any, bool) {
	cur := v
	for _, key := range keys {
		m, ok := cur.(yaml.MapSlice)
		if !ok {
			return nil, false
		}

		found := false

		for _, item := range m {
			if KeyString(item.Key) == key {
				cur = item.Value
				found = true

				break
			}
		}

		if !found {
			return nil, false
		}
	}

	return cur, true
}

// KeyString renders a mapping key as a string. Non-string keys (integers,
// booleans) are formatted the way they appeared.
func KeyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case nil:
		return "null"
	default:
		return fmt.Sprint(k)
	}
}

// Normalize converts a decoded YAML value into the value space of
// encoding/json: map[string]any, []any, string, bool, int64, float64 and
// nil. Unsigned integers that overflow int64 become float64.
func Normalize(v any) any {
	switch v := v.(type) {
	case yaml.MapSlice:
		out := make(map[string]any, len(v))
		for _, item := range v {
			out[KeyString(item.Key)] = Normalize(item.Value)
		}

		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Normalize(val)
		}

		return out

	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[KeyString(k)] = Normalize(val)
		}

		return out

	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Normalize(val)
		}

		return out

	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUint(v)
	case float32:
		return float64(v)

	case int64, float64, string, bool, nil:
		return v

	default:
		return fmt.Sprint(v)
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		f, _ := strconv.ParseFloat(strconv.FormatUint(u, 10), 64)

		return f
	}

	return int64(u)
}
