// Package source provides the places a manifest stream can be loaded from:
// an HTTP(S) [URL], a local [File], a [Reader] such as stdin, pasted [Text],
// a file in a [Git] repository, or the definitions installed in a
// [Cluster].
//
// [Config] selects one from CLI flags and arguments:
//
//	cfg := source.NewConfig()
//	cfg.RegisterFlags(cmd.Flags())
//
//	src, err := cfg.NewSource(args, os.Stdin)
//	defs, err := crd.Load(ctx, src)
//
// A [Watcher] follows a file source and reports when it changes.
package source
