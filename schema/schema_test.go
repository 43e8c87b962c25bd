package schema_test

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/crdview/manifest"
	"go.jacobcolvin.com/crdview/schema"
)

func parseSchema(t *testing.T, src string) *jsonschema.Schema {
	t.Helper()

	docs, err := manifest.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	return schema.FromValue(docs[0].Value)
}

func TestHasChildren(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		node *jsonschema.Schema
		want bool
	}{
		"nil": {
			node: nil,
			want: false,
		},
		"empty": {
			node: &jsonschema.Schema{},
			want: false,
		},
		"object without properties": {
			node: &jsonschema.Schema{Type: "object"},
			want: false,
		},
		"object with empty properties": {
			node: &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}},
			want: false,
		},
		"properties": {
			node: &jsonschema.Schema{Properties: map[string]*jsonschema.Schema{"a": {}}},
			want: true,
		},
		"items": {
			node: &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{}},
			want: true,
		},
		"tuple items": {
			node: &jsonschema.Schema{ItemsArray: []*jsonschema.Schema{{}}},
			want: true,
		},
		"array without items": {
			node: &jsonschema.Schema{Type: "array"},
			want: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, schema.HasChildren(tc.node))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		node *jsonschema.Schema
		want schema.Kind
	}{
		"nil": {
			node: nil,
			want: schema.KindLeaf,
		},
		"untyped": {
			node: &jsonschema.Schema{},
			want: schema.KindLeaf,
		},
		"string": {
			node: &jsonschema.Schema{Type: "string"},
			want: schema.KindLeaf,
		},
		"array": {
			node: &jsonschema.Schema{Type: "array"},
			want: schema.KindArray,
		},
		"array with properties": {
			node: &jsonschema.Schema{Type: "array", Properties: map[string]*jsonschema.Schema{"a": {}}},
			want: schema.KindArray,
		},
		"object": {
			node: &jsonschema.Schema{Type: "object"},
			want: schema.KindObject,
		},
		"untyped with properties": {
			node: &jsonschema.Schema{Properties: map[string]*jsonschema.Schema{}},
			want: schema.KindObject,
		},
		"single type list": {
			node: &jsonschema.Schema{Types: []string{"array"}},
			want: schema.KindArray,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, schema.Classify(tc.node))
		})
	}
}

func TestTypeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "any", schema.TypeLabel(nil))
	assert.Equal(t, "any", schema.TypeLabel(&jsonschema.Schema{}))
	assert.Equal(t, "integer", schema.TypeLabel(&jsonschema.Schema{Type: "integer"}))
	assert.Equal(t, "string|null", schema.TypeLabel(&jsonschema.Schema{Types: []string{"string", "null"}}))
}

func TestChildren(t *testing.T) {
	t.Parallel()

	s := parseSchema(t, `
type: object
required: [zeta, alpha]
properties:
  zeta:
    type: string
  alpha:
    type: integer
  mid: {}
items:
  type: string
`)

	entries := schema.Children(s)
	require.Len(t, entries, 4)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid", schema.ItemsName}, names)
	assert.True(t, entries[0].Required)
	assert.True(t, entries[1].Required)
	assert.False(t, entries[2].Required)

	items := entries[3]
	assert.True(t, items.Items)
	assert.False(t, items.Required)
	assert.Equal(t, "string", items.Schema.Type)
}

func TestChildrenItemsNotRequiredEvenIfListed(t *testing.T) {
	t.Parallel()

	s := &jsonschema.Schema{
		Type:     "array",
		Required: []string{schema.ItemsName},
		Items:    &jsonschema.Schema{Type: "string"},
	}

	entries := schema.Children(s)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Required)
}

func TestChildrenWithoutPropertyOrder(t *testing.T) {
	t.Parallel()

	s := &jsonschema.Schema{
		Properties: map[string]*jsonschema.Schema{
			"b": {},
			"a": {},
		},
	}

	entries := schema.Children(s)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, "b", entries[1].Name)
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	s := parseSchema(t, `
type: object
description: A widget.
properties:
  replicas:
    type: integer
    format: int32
    default: 1
    minimum: 0
  mode:
    type: string
    enum: [a, b]
  labels:
    type: object
    additionalProperties:
      type: string
  nullable:
    type: [string, "null"]
  preserved:
    x-kubernetes-preserve-unknown-fields: true
`)

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, "A widget.", s.Description)
	assert.Equal(t, []string{"replicas", "mode", "labels", "nullable", "preserved"}, s.PropertyOrder)

	replicas := s.Properties["replicas"]
	assert.Equal(t, "integer", replicas.Type)
	assert.Equal(t, "int32", replicas.Format)
	assert.JSONEq(t, "1", string(replicas.Default))
	assert.Equal(t, map[string]any{"minimum": int64(0)}, replicas.Extra)

	assert.Equal(t, []any{"a", "b"}, s.Properties["mode"].Enum)
	assert.Equal(t, "string", s.Properties["labels"].AdditionalProperties.Type)
	assert.Equal(t, []string{"string", "null"}, s.Properties["nullable"].Types)
	assert.Equal(t, true, s.Properties["preserved"].Extra["x-kubernetes-preserve-unknown-fields"])
}

func TestFromValueDegrades(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		src   string
		check func(t *testing.T, s *jsonschema.Schema)
	}{
		"items without type": {
			src: "type: array\nitems: {}\n",
			check: func(t *testing.T, s *jsonschema.Schema) {
				t.Helper()
				require.NotNil(t, s.Items)
				assert.Equal(t, "any", schema.TypeLabel(s.Items))
				assert.Equal(t, schema.KindLeaf, schema.Classify(s.Items))
			},
		},
		"properties is a list": {
			src: "type: object\nproperties: [a, b]\n",
			check: func(t *testing.T, s *jsonschema.Schema) {
				t.Helper()
				assert.Nil(t, s.Properties)
				assert.False(t, schema.HasChildren(s))
			},
		},
		"type is a number": {
			src: "type: 3\n",
			check: func(t *testing.T, s *jsonschema.Schema) {
				t.Helper()
				assert.Equal(t, "any", schema.TypeLabel(s))
			},
		},
		"property is a scalar": {
			src: "properties:\n  a: hello\n",
			check: func(t *testing.T, s *jsonschema.Schema) {
				t.Helper()
				require.Contains(t, s.Properties, "a")
				assert.Equal(t, "any", schema.TypeLabel(s.Properties["a"]))
			},
		},
		"tuple items": {
			src: "type: array\nitems:\n  - type: string\n  - type: integer\n",
			check: func(t *testing.T, s *jsonschema.Schema) {
				t.Helper()
				entries := schema.Children(s)
				require.Len(t, entries, 1)
				assert.Equal(t, "any", schema.TypeLabel(entries[0].Schema))
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tc.check(t, parseSchema(t, tc.src))
		})
	}
}

func TestFromValueNonMapping(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, "string", 42, []any{"a"}} {
		s := schema.FromValue(v)
		require.NotNil(t, s)
		assert.False(t, schema.HasChildren(s))
		assert.Equal(t, "any", schema.TypeLabel(s))
	}
}
