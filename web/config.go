package web

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flags holds CLI flag names for web server configuration.
type Flags struct {
	Addr string
}

// Config holds CLI flag values for the web server.
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags].
type Config struct {
	Flags Flags
	Addr  string
}

// NewConfig returns a new [Config] with default flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{
			Addr: "addr",
		},
	}
}

// RegisterFlags adds web server flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Addr, c.Flags.Addr, ":8080", "address to listen on")
}

// RegisterCompletions registers shell completions for web server flags on cmd.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	err := cmd.RegisterFlagCompletionFunc(c.Flags.Addr,
		cobra.FixedCompletions([]string{":8080", "localhost:8080"}, cobra.ShellCompDirectiveNoFileComp))
	if err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Addr, err)
	}

	return nil
}
