package crd

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Kind is the kind of the documents [Extract] keeps.
const Kind = "CustomResourceDefinition"

// Definition is one CustomResourceDefinition with the parts needed to
// browse its schemas.
type Definition struct {
	// Name is metadata.name, for example "widgets.example.com".
	Name       string
	Group      string
	Kind       string
	Plural     string
	Singular   string
	ListKind   string
	Scope      string
	ShortNames []string
	// Versions are in document order.
	Versions []Version
}

// Version is one entry of spec.versions.
type Version struct {
	// Schema is the version's openAPIV3Schema, or nil if it has none.
	Schema             *jsonschema.Schema
	Name               string
	DeprecationWarning string
	Served             bool
	Storage            bool
	Deprecated         bool
}

// Version returns the version with exactly the given name.
func (d *Definition) Version(name string) (Version, bool) {
	for _, v := range d.Versions {
		if v.Name == name {
			return v, true
		}
	}

	return Version{}, false
}

// DefaultVersion returns the name of the first version, or "" when the
// definition has none.
func (d *Definition) DefaultVersion() string {
	if len(d.Versions) == 0 {
		return ""
	}

	return d.Versions[0].Name
}

// VersionNames returns the version names in document order.
func (d *Definition) VersionNames() []string {
	names := make([]string, 0, len(d.Versions))
	for _, v := range d.Versions {
		names = append(names, v.Name)
	}

	return names
}
