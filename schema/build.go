package schema

import (
	"encoding/json"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/crdview/manifest"
)

// FromValue builds a schema node from a decoded OpenAPI v3 schema mapping.
//
// The property order of the mapping is kept in PropertyOrder. Keywords with
// an unexpected shape are dropped, and a value that is not a mapping yields
// an unconstrained schema. FromValue never fails.
func FromValue(v any) *jsonschema.Schema {
	s := &jsonschema.Schema{}

	m, ok := v.(yaml.MapSlice)
	if !ok {
		return s
	}

	for _, item := range m {
		key := manifest.KeyString(item.Key)

		if !setKeyword(s, key, item.Value) {
			slog.Debug("drop schema keyword",
				slog.String("keyword", key),
			)
		}
	}

	return s
}

// setKeyword assigns one keyword. It returns false when the value has the
// wrong shape for the keyword.
//
//nolint:cyclop,gocyclo // dispatching all supported keywords requires many cases
func setKeyword(s *jsonschema.Schema, key string, v any) bool {
	switch key {
	case "type":
		switch t := v.(type) {
		case string:
			s.Type = t
		case []any:
			types := stringList(t)
			if len(types) != len(t) {
				return false
			}

			s.Types = types
		default:
			return false
		}

	case "format":
		return setString(&s.Format, v)
	case "description":
		return setString(&s.Description, v)
	case "title":
		return setString(&s.Title, v)
	case "pattern":
		return setString(&s.Pattern, v)
	case "$ref":
		return setString(&s.Ref, v)

	case "required":
		list, ok := v.([]any)
		if !ok {
			return false
		}

		s.Required = stringList(list)

	case "properties":
		props, ok := v.(yaml.MapSlice)
		if !ok {
			return false
		}

		s.Properties = make(map[string]*jsonschema.Schema, len(props))
		for _, p := range props {
			name := manifest.KeyString(p.Key)
			if _, dup := s.Properties[name]; !dup {
				s.PropertyOrder = append(s.PropertyOrder, name)
			}

			s.Properties[name] = FromValue(p.Value)
		}

	case "items":
		switch items := v.(type) {
		case yaml.MapSlice:
			s.Items = FromValue(items)
		case []any:
			for _, it := range items {
				s.ItemsArray = append(s.ItemsArray, FromValue(it))
			}
		default:
			return false
		}

	case "additionalProperties":
		switch ap := v.(type) {
		case bool:
			if ap {
				s.AdditionalProperties = &jsonschema.Schema{}
			} else {
				s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
			}
		case yaml.MapSlice:
			s.AdditionalProperties = FromValue(ap)
		default:
			return false
		}

	case "allOf", "anyOf", "oneOf":
		list, ok := v.([]any)
		if !ok {
			return false
		}

		schemas := make([]*jsonschema.Schema, 0, len(list))
		for _, it := range list {
			schemas = append(schemas, FromValue(it))
		}

		switch key {
		case "allOf":
			s.AllOf = schemas
		case "anyOf":
			s.AnyOf = schemas
		default:
			s.OneOf = schemas
		}

	case "not":
		s.Not = FromValue(v)

	case "enum":
		list, ok := v.([]any)
		if !ok {
			return false
		}

		enum, _ := manifest.Normalize(list).([]any)
		s.Enum = enum

	case "default":
		b, err := json.Marshal(manifest.Normalize(v))
		if err != nil {
			return false
		}

		s.Default = b

	case "deprecated":
		b, ok := v.(bool)
		if !ok {
			return false
		}

		s.Deprecated = b

	default:
		if s.Extra == nil {
			s.Extra = map[string]any{}
		}

		s.Extra[key] = manifest.Normalize(v)
	}

	return true
}

func setString(dst *string, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}

	*dst = s

	return true
}

func stringList(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}
