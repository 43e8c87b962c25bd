// Package log builds the [slog.Handler] used by crdview and carries log
// entries to the terminal viewer.
//
// Handlers write JSON ([FormatJSON]), logfmt ([FormatLogfmt]) or colored
// text ([FormatText]) at one of four levels. [Config] exposes the choice as
// --log-level and --log-format flags:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// While the viewer owns the terminal, entries are written as JSON to a
// [Publisher] instead. The viewer subscribes, decodes each entry with
// [ParseEntry] and shows [Entry.String] in its status line:
//
//	pub := log.NewPublisher()
//	slog.SetDefault(slog.New(log.NewHandler(pub, log.LevelInfo, log.FormatJSON)))
//
//	for b := range pub.Subscribe().C() {
//		e, err := log.ParseEntry(b)
//		// ...
//	}
package log
