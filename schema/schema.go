package schema

import (
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// ItemsName is the display name of the synthetic entry holding an array's
// element schema.
const ItemsName = "[index]"

// Kind classifies a node for iconography.
type Kind int

const (
	// KindLeaf is a scalar or unconstrained node.
	KindLeaf Kind = iota
	// KindObject is a node with type "object" or any properties.
	KindObject
	// KindArray is a node with type "array".
	KindArray
)

// String returns "leaf", "object" or "array".
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "leaf"
	}
}

// Entry is one child of a node.
type Entry struct {
	Schema *jsonschema.Schema
	Name   string
	// Required is true when Name is listed in the parent's required list.
	// Always false for the items entry.
	Required bool
	// Items marks the synthetic array-items entry.
	Items bool
}

// HasChildren reports whether s has at least one property or an items
// schema. A node typed "object" with no properties has no children.
func HasChildren(s *jsonschema.Schema) bool {
	if s == nil {
		return false
	}

	return len(s.Properties) > 0 || hasItems(s)
}

// Children returns the child entries of s: properties in document order,
// followed by the items entry when s has an items schema.
func Children(s *jsonschema.Schema) []Entry {
	if s == nil {
		return nil
	}

	var entries []Entry

	for _, name := range PropertyNames(s) {
		entries = append(entries, Entry{
			Name:     name,
			Schema:   s.Properties[name],
			Required: slices.Contains(s.Required, name),
		})
	}

	if hasItems(s) {
		entries = append(entries, Entry{
			Name:   ItemsName,
			Schema: ItemsOf(s),
			Items:  true,
		})
	}

	return entries
}

// PropertyNames returns the property names of s in the order recorded in
// PropertyOrder. Names missing from the order follow in sorted order.
func PropertyNames(s *jsonschema.Schema) []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}

	names := make([]string, 0, len(s.Properties))
	seen := make(map[string]bool, len(s.Properties))

	for _, name := range s.PropertyOrder {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string

	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}

	slices.Sort(rest)

	return append(names, rest...)
}

// ItemsOf returns the element schema of s. A tuple-form items list yields an
// unconstrained schema. Returns nil when s has no items.
func ItemsOf(s *jsonschema.Schema) *jsonschema.Schema {
	switch {
	case s == nil:
		return nil
	case s.Items != nil:
		return s.Items
	case len(s.ItemsArray) > 0:
		return &jsonschema.Schema{}
	}

	return nil
}

func hasItems(s *jsonschema.Schema) bool {
	return s.Items != nil || len(s.ItemsArray) > 0
}

// Classify returns [KindArray] for type "array", [KindObject] for type
// "object" or any node with properties, and [KindLeaf] otherwise.
func Classify(s *jsonschema.Schema) Kind {
	if s == nil {
		return KindLeaf
	}

	switch {
	case hasType(s, "array"):
		return KindArray
	case hasType(s, "object"), s.Properties != nil:
		return KindObject
	}

	return KindLeaf
}

func hasType(s *jsonschema.Schema, t string) bool {
	if s.Type != "" {
		return s.Type == t
	}

	return len(s.Types) == 1 && s.Types[0] == t
}

// TypeLabel returns the declared type of s, "a|b" for a type list, or "any"
// when no type is declared.
func TypeLabel(s *jsonschema.Schema) string {
	switch {
	case s == nil:
		return "any"
	case s.Type != "":
		return s.Type
	case len(s.Types) > 0:
		return strings.Join(s.Types, "|")
	}

	return "any"
}
