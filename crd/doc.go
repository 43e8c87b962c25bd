// Package crd extracts CustomResourceDefinitions and their per-version
// OpenAPI v3 schemas from parsed manifest streams.
//
// [Load] runs the whole pipeline for a [Loader]: read text, parse it with
// [go.jacobcolvin.com/crdview/manifest], and [Extract] the definitions.
// Failures are classified by sentinel so callers can tell a source that
// could not be read ([ErrAcquire]) from one that is not YAML ([ErrParse]) or
// one that holds no definitions ([ErrNoDefinitions]). A version without a
// schema is not an error; its [Version.Schema] is nil.
package crd
