package metrics

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for metrics configuration.
type Flags struct {
	Addr string
}

// Config holds CLI flag values for exposing metrics from the terminal
// viewer. The browser front end serves its own /metrics route.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags Flags
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			Addr: "metrics-addr",
		},
	}
}

// RegisterFlags adds metrics flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Addr, c.Flags.Addr, "", "serve /metrics on this address while the viewer runs")
}

// RegisterCompletions registers shell completions for metrics flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Addr,
		cobra.FixedCompletions([]string{"localhost:9090", ":9090"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Addr, err)
	}

	return nil
}
