package crd

import (
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"go.jacobcolvin.com/crdview/manifest"
	"go.jacobcolvin.com/crdview/schema"
)

// Extract returns the definitions among docs, sorted by name.
//
// Documents of any other kind are dropped. Header fields are read through
// the apiextensions v1 types; schemas are built from the ordered documents
// so property order survives. Names compare with a locale-aware collation
// and ties keep their input order. The result is never nil.
func Extract(docs []manifest.Document) []Definition {
	defs := []Definition{}

	for _, doc := range docs {
		u := &unstructured.Unstructured{Object: doc.Object()}
		if u.GetKind() != Kind {
			continue
		}

		defs = append(defs, extractOne(doc, u))
	}

	SortByName(defs)

	return defs
}

// SortByName sorts defs in place by name using a locale-aware collation.
// The sort is stable.
func SortByName(defs []Definition) {
	c := collate.New(language.Und)

	slices.SortStableFunc(defs, func(a, b Definition) int {
		return c.CompareString(a.Name, b.Name)
	})
}

func extractOne(doc manifest.Document, u *unstructured.Unstructured) Definition {
	header := withoutSchemas(u.Object)

	def, err := fromTyped(header)
	if err != nil {
		slog.Debug("read definition header",
			slog.String("name", u.GetName()),
			slog.Int("document", doc.Index),
			slog.Any("error", err),
		)

		def = fromUnstructured(header)
	}

	def.Name = u.GetName()

	raw, _ := doc.Get("spec", "versions")
	list, _ := raw.([]any)

	for i := range def.Versions {
		if i >= len(list) {
			break
		}

		if v, ok := manifest.Lookup(list[i], "schema", "openAPIV3Schema"); ok && v != nil {
			def.Versions[i].Schema = schema.FromValue(v)
		}
	}

	// apiextensions.k8s.io/v1beta1 keeps one schema for all versions.
	if legacy, ok := doc.Get("spec", "validation", "openAPIV3Schema"); ok && legacy != nil {
		if len(def.Versions) == 0 {
			if name := doc.String("spec", "version"); name != "" {
				def.Versions = append(def.Versions, Version{Name: name, Served: true, Storage: true})
			}
		}

		for i := range def.Versions {
			if def.Versions[i].Schema == nil {
				def.Versions[i].Schema = schema.FromValue(legacy)
			}
		}
	}

	return def
}

func fromTyped(obj map[string]any) (Definition, error) {
	var in apiextensionsv1.CustomResourceDefinition

	err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj, &in)
	if err != nil {
		return Definition{}, err
	}

	def := Definition{
		Group:      in.Spec.Group,
		Kind:       in.Spec.Names.Kind,
		Plural:     in.Spec.Names.Plural,
		Singular:   in.Spec.Names.Singular,
		ListKind:   in.Spec.Names.ListKind,
		ShortNames: in.Spec.Names.ShortNames,
		Scope:      string(in.Spec.Scope),
	}

	for _, v := range in.Spec.Versions {
		ver := Version{
			Name:       v.Name,
			Served:     v.Served,
			Storage:    v.Storage,
			Deprecated: v.Deprecated,
		}
		if v.DeprecationWarning != nil {
			ver.DeprecationWarning = *v.DeprecationWarning
		}

		def.Versions = append(def.Versions, ver)
	}

	return def, nil
}

// fromUnstructured reads the header field by field, ignoring any field with
// the wrong type.
func fromUnstructured(obj map[string]any) Definition {
	str := func(fields ...string) string {
		s, _, _ := unstructured.NestedString(obj, fields...)

		return s
	}

	def := Definition{
		Group:    str("spec", "group"),
		Kind:     str("spec", "names", "kind"),
		Plural:   str("spec", "names", "plural"),
		Singular: str("spec", "names", "singular"),
		ListKind: str("spec", "names", "listKind"),
		Scope:    str("spec", "scope"),
	}

	def.ShortNames, _, _ = unstructured.NestedStringSlice(obj, "spec", "names", "shortNames")

	versions, _, _ := unstructured.NestedSlice(obj, "spec", "versions")
	for _, raw := range versions {
		m, ok := raw.(map[string]any)
		if !ok {
			def.Versions = append(def.Versions, Version{})

			continue
		}

		ver := Version{}
		ver.Name, _, _ = unstructured.NestedString(m, "name")
		ver.Served, _, _ = unstructured.NestedBool(m, "served")
		ver.Storage, _, _ = unstructured.NestedBool(m, "storage")
		ver.Deprecated, _, _ = unstructured.NestedBool(m, "deprecated")
		ver.DeprecationWarning, _, _ = unstructured.NestedString(m, "deprecationWarning")

		def.Versions = append(def.Versions, ver)
	}

	return def
}

// withoutSchemas returns a copy of obj with the per-version and legacy
// schemas removed. Only the maps on the way to them are copied.
func withoutSchemas(obj map[string]any) map[string]any {
	out := maps.Clone(obj)

	spec, ok := obj["spec"].(map[string]any)
	if !ok {
		return out
	}

	spec = maps.Clone(spec)
	delete(spec, "validation")

	if versions, ok := spec["versions"].([]any); ok {
		copied := make([]any, len(versions))

		for i, raw := range versions {
			if m, ok := raw.(map[string]any); ok {
				m = maps.Clone(m)
				delete(m, "schema")
				raw = m
			}

			copied[i] = raw
		}

		spec["versions"] = copied
	}

	out["spec"] = spec

	return out
}
