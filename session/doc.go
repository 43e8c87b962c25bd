// Package session holds the state shared by the interactive front ends: the
// loaded definitions, the sidebar filter, the selected definition and
// version, and the busy flag that allows one load at a time.
package session
