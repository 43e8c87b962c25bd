// Command crdview browses the OpenAPI v3 schemas of Kubernetes
// CustomResourceDefinitions.
//
// # Usage
//
//	crdview [flags] [url|file|-]
//	crdview print [flags] [url|file|-]
//	crdview list [flags] [url|file|-]
//	crdview serve [flags] [url|file|-]
//	crdview version
//
// Without a subcommand crdview starts the terminal viewer, or prints the
// trees when stdout is not a terminal. Without a source it loads the
// prometheus-operator bundle. Sources can also come from a git repository
// (--git-url, --git-path) or from the current cluster (--cluster). While the
// viewer runs, --metrics-addr exposes its Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.jacobcolvin.com/crdview/log"
	"go.jacobcolvin.com/crdview/metrics"
	"go.jacobcolvin.com/crdview/session"
	"go.jacobcolvin.com/crdview/source"
	"go.jacobcolvin.com/crdview/tree"
	"go.jacobcolvin.com/crdview/ui"
	"go.jacobcolvin.com/crdview/version"
	"go.jacobcolvin.com/crdview/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type rootConfig struct {
	log    *log.Config
	source *source.Config
}

func newRootCmd() *cobra.Command {
	cfg := rootConfig{
		log:    log.NewConfig(),
		source: source.NewConfig(),
	}
	treeCfg := tree.NewConfig()
	metricsCfg := metrics.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "crdview [flags] [url|file|-]",
		Short: "Browse the schemas of CustomResourceDefinitions",
		Long: `crdview loads Kubernetes CustomResourceDefinitions from a URL, a file,
stdin, a git repository or a cluster, and shows the OpenAPI v3 schema of
each version as a collapsible tree.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return cfg.log.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return runPrint(cmd, cfg, printOptions{tree: treeCfg}, args)
			}

			return runUI(cmd.Context(), cfg, treeCfg, metricsCfg, args)
		},
	}

	cfg.log.RegisterFlags(rootCmd.PersistentFlags())
	cfg.source.RegisterFlags(rootCmd.PersistentFlags())
	treeCfg.RegisterFlags(rootCmd.Flags(), 1)
	metricsCfg.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(
		newPrintCmd(cfg),
		newListCmd(cfg),
		newServeCmd(cfg),
		newVersionCmd(),
	)

	for _, register := range []func(*cobra.Command) error{
		cfg.log.RegisterCompletions,
		cfg.source.RegisterCompletions,
		treeCfg.RegisterCompletions,
		metricsCfg.RegisterCompletions,
	} {
		err := register(rootCmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
		}
	}

	return rootCmd
}

func newPrintCmd(cfg rootConfig) *cobra.Command {
	treeCfg := tree.NewConfig()
	opts := printOptions{tree: treeCfg}

	cmd := &cobra.Command{
		Use:   "print [flags] [url|file|-]",
		Short: "Print schema trees as text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(cmd, cfg, opts, args)
		},
	}

	treeCfg.RegisterFlags(cmd.Flags(), -1)
	cmd.Flags().StringVar(&opts.name, "crd", "", "only print the definition with this name or kind")
	cmd.Flags().StringVar(&opts.version, "version", "", "version to print (default: first version)")

	err := treeCfg.RegisterCompletions(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func newListCmd(cfg rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list [flags] [url|file|-]",
		Short: "List the loaded definitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := setup(cmd, cfg, args)
			if err != nil {
				return err
			}

			defs, err := load(cmd.Context(), src)
			if err != nil {
				return err
			}

			return listDefinitions(cmd.OutOrStdout(), defs)
		},
	}
}

func newServeCmd(cfg rootConfig) *cobra.Command {
	webCfg := web.NewConfig()

	cmd := &cobra.Command{
		Use:   "serve [flags] [url|file|-]",
		Short: "Serve the viewer in a browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfg, webCfg, args)
		},
	}

	webCfg.RegisterFlags(cmd.Flags())

	err := webCfg.RegisterCompletions(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())

			return err
		},
	}
}

// setup installs the configured logger on stderr and resolves the source.
func setup(cmd *cobra.Command, cfg rootConfig, args []string) (source.Source, error) {
	err := cfg.log.Install(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	return cfg.source.NewSource(args, cmd.InOrStdin())
}

func runPrint(cmd *cobra.Command, cfg rootConfig, opts printOptions, args []string) error {
	src, err := setup(cmd, cfg, args)
	if err != nil {
		return err
	}

	defs, err := load(cmd.Context(), src)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts.styles = tree.PlainStyles()

	if f, ok := out.(*os.File); ok && isTerminal(f) {
		opts.styles = tree.DefaultStyles()

		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			opts.width = w
		}
	}

	return printDefinitions(out, defs, opts)
}

func runUI(ctx context.Context, cfg rootConfig, treeCfg *tree.Config, metricsCfg *metrics.Config, args []string) error {
	src, err := cfg.source.NewSource(args, os.Stdin)
	if err != nil {
		return err
	}

	// The screen owns the terminal, so entries go to the status line.
	pub := log.NewPublisher()
	defer pub.Close()

	h, err := cfg.log.NewPublisherHandler(pub)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(h))

	mt := metrics.New()

	opts := []ui.Option{
		ui.WithContext(ctx),
		ui.WithLogs(pub.Subscribe()),
		ui.WithMetrics(mt),
		ui.WithSession(session.New(session.WithExpander(treeCfg.Apply))),
		ui.WithURLSource(func(url string) source.Source {
			return cfg.source.URLSource(url)
		}),
	}

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		opts = append(opts, ui.WithSize(w, h))
	}

	watcher, err := newWatcher(cfg.source, src)
	if err != nil {
		return err
	}

	if watcher != nil {
		defer watcher.Close()

		opts = append(opts, ui.WithWatcher(watcher))
	}

	if metricsCfg.Addr != "" {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			err := mt.ListenAndServe(ctx, metricsCfg.Addr)
			if err != nil {
				slog.Error("metrics endpoint stopped", slog.Any("error", err))
			}
		}()
	}

	return ui.Run(ctx, ui.New(src, opts...))
}

func runServe(cmd *cobra.Command, cfg rootConfig, webCfg *web.Config, args []string) error {
	src, err := setup(cmd, cfg, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	gin.SetMode(gin.ReleaseMode)

	srv, err := web.New(src,
		web.WithMetrics(metrics.New()),
		web.WithURLSource(func(url string) source.Source {
			return cfg.source.URLSource(url)
		}),
	)
	if err != nil {
		return err
	}

	watcher, err := newWatcher(cfg.source, src)
	if err != nil {
		return err
	}

	if watcher != nil {
		defer watcher.Close()

		go func() {
			for range watcher.Changes() {
				// Failures are logged by Reload and shown on the page.
				_ = srv.Reload(ctx, nil)
			}
		}()
	}

	go func() {
		_ = srv.Reload(ctx, nil)
	}()

	return srv.ListenAndServe(ctx, webCfg.Addr)
}

// newWatcher returns a watcher for src when --watch is set and src is a
// local file. It returns nil otherwise.
func newWatcher(cfg *source.Config, src source.Source) (*source.Watcher, error) {
	if !cfg.Watch {
		return nil, nil
	}

	f, ok := src.(source.Watchable)
	if !ok {
		slog.Warn("ignoring --watch for a source that is not a local file",
			slog.String("source", src.String()),
		)

		return nil, nil
	}

	w, err := source.NewWatcher(f.Path())
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", f.Path(), err)
	}

	return w, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
