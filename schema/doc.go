// Package schema models the nodes of an embedded OpenAPI v3 schema for
// display.
//
// Nodes are [*jsonschema.Schema] values. [FromValue] builds them from the
// ordered mappings produced by [go.jacobcolvin.com/crdview/manifest], keeping
// property order in PropertyOrder. The model never fails: a node without a
// type is unconstrained and reported as "any", and keywords with an
// unexpected shape are dropped.
//
// [HasChildren], [Children] and [Classify] answer the three questions a tree
// renderer asks of a node. [Path] gives every node in a tree an unambiguous
// key.
package schema
