// Package web serves the schema browser over HTTP with gin.
//
// The HTML front end mirrors the terminal one: a filterable sidebar of
// definitions, a version selector and a collapsible schema tree. Which
// nodes are open is carried in the page URL as repeated "open" query
// parameters holding schema paths, so pages are bookmarkable and the
// server keeps no per-client state.
//
// The JSON API under /api exposes the same data:
//
//	GET  /api/definitions?q=FILTER
//	GET  /api/definitions/NAME
//	GET  /api/definitions/NAME/versions/VERSION/rows?open=PATH&depth=N
//	POST /api/reload   {"url": "..."} or {"text": "..."} or empty
//	POST /api/clear
//
// Prometheus metrics are served on /metrics.
package web
