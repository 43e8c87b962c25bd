package tree

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for tree rendering configuration.
type Flags struct {
	Depth        string
	Descriptions string
}

// Config holds CLI flag values for tree rendering.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags Flags
	// Depth is the number of levels expanded initially. Negative expands
	// everything.
	Depth        int
	Descriptions bool
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			Depth:        "depth",
			Descriptions: "descriptions",
		},
	}
}

// RegisterFlags adds tree rendering flags to the given [*pflag.FlagSet].
// defaultDepth is the flag default, since interactive and printed output
// want different starting points.
func (c *Config) RegisterFlags(flags *pflag.FlagSet, defaultDepth int) {
	flags.IntVarP(&c.Depth, c.Flags.Depth, "d", defaultDepth,
		"levels to expand initially (-1 for all)")
	flags.BoolVar(&c.Descriptions, c.Flags.Descriptions, true,
		"show full multi-line descriptions")
}

// RegisterCompletions registers shell completions for tree flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Depth,
		cobra.FixedCompletions([]string{"-1", "0", "1", "2", "3"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Depth, err)
	}

	return nil
}

// Apply expands t to the configured depth.
func (c *Config) Apply(t *Tree) {
	if c.Depth != 0 {
		t.ExpandTo(c.Depth)
	}
}
