// Package ui implements the interactive terminal viewer.
//
// A [Model] shows the loaded definitions in a sidebar and the schema tree of
// the selected version in the main pane. Loads run through the busy gate of
// its [session.Session], so at most one is in flight. Keys, mouse clicks
// and pasted text drive the model:
//
//	m := ui.New(src, ui.WithContext(ctx), ui.WithLogs(pub.Subscribe()))
//	err := ui.Run(ctx, m)
//
// [Model.Render] returns the screen as plain lines and is what the tea
// [Model.View] wraps.
package ui
