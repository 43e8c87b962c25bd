package source

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for source configuration.
type Flags struct {
	GitURL     string
	GitRef     string
	GitPath    string
	GitDepth   string
	Cluster    string
	Kubeconfig string
	Context    string
	Timeout    string
	Watch      string
}

// Config holds CLI flag values for source configuration.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags]. Use [Config.NewSource] to create a [Source].
type Config struct {
	Flags      Flags
	GitURL     string
	GitRef     string
	GitPath    string
	Kubeconfig string
	Context    string
	GitDepth   int
	Timeout    time.Duration
	Cluster    bool
	Watch      bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			GitURL:     "git-url",
			GitRef:     "git-ref",
			GitPath:    "git-path",
			GitDepth:   "git-depth",
			Cluster:    "cluster",
			Kubeconfig: "kubeconfig",
			Context:    "context",
			Timeout:    "timeout",
			Watch:      "watch",
		},
	}
}

// RegisterFlags adds source flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.GitURL, c.Flags.GitURL, "",
		"load from a git repository at this url")
	flags.StringVar(&c.GitRef, c.Flags.GitRef, "",
		"git branch or tag (default: remote HEAD)")
	flags.StringVar(&c.GitPath, c.Flags.GitPath, "",
		"path of the manifest within the git repository")
	flags.IntVar(&c.GitDepth, c.Flags.GitDepth, 1,
		"git clone depth (0 for full history)")
	flags.BoolVar(&c.Cluster, c.Flags.Cluster, false,
		"load the CRDs installed in the current cluster")
	flags.StringVar(&c.Kubeconfig, c.Flags.Kubeconfig, "",
		"path to the kubeconfig file")
	flags.StringVar(&c.Context, c.Flags.Context, "",
		"kubeconfig context to use")
	flags.DurationVar(&c.Timeout, c.Flags.Timeout, 30*time.Second,
		"timeout for network sources")
	flags.BoolVarP(&c.Watch, c.Flags.Watch, "w", false,
		"reload when a file source changes")
}

// RegisterCompletions registers shell completions for source flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{c.Flags.GitURL, c.Flags.GitRef, c.Flags.GitPath, c.Flags.GitDepth, c.Flags.Timeout} {
		err := cmd.RegisterFlagCompletionFunc(flag, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	err := cmd.RegisterFlagCompletionFunc(c.Flags.Context,
		func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			names, err := Contexts(c.Kubeconfig)
			if err != nil {
				return nil, cobra.ShellCompDirectiveError
			}

			return names, cobra.ShellCompDirectiveNoFileComp
		})
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Context, err)
	}

	return nil
}

// NewSource creates the [Source] selected by the flags and args. With no
// flags and no args it returns a [URL] for [DefaultURL].
func (c *Config) NewSource(args []string, stdin io.Reader) (Source, error) {
	selected := 0
	if c.GitURL != "" {
		selected++
	}

	if c.Cluster {
		selected++
	}

	if len(args) > 0 {
		selected++
	}

	if selected > 1 {
		return nil, fmt.Errorf("%w: use only one of an argument, --%s or --%s",
			ErrInvalidArgument, c.Flags.GitURL, c.Flags.Cluster)
	}

	if len(args) > 1 {
		return nil, fmt.Errorf("%w: expected one source, got %d", ErrInvalidArgument, len(args))
	}

	switch {
	case c.GitURL != "":
		if c.GitPath == "" {
			return nil, fmt.Errorf("%w: --%s requires --%s", ErrInvalidArgument, c.Flags.GitURL, c.Flags.GitPath)
		}

		return &Git{URL: c.GitURL, Ref: c.GitRef, Path: c.GitPath, Depth: c.GitDepth}, nil

	case c.Cluster:
		return &Cluster{Kubeconfig: c.Kubeconfig, Context: c.Context}, nil

	case len(args) == 1:
		src, err := Parse(args[0], stdin)
		if err != nil {
			return nil, err
		}

		if u, ok := src.(*URL); ok {
			WithTimeout(c.Timeout)(u)
		}

		return src, nil
	}

	return NewURL(DefaultURL, WithTimeout(c.Timeout)), nil
}

// URLSource creates a [URL] using the configured timeout.
func (c *Config) URLSource(url string) *URL {
	return NewURL(url, WithTimeout(c.Timeout))
}
