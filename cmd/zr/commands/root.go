// Package commands implements the CLI commands for zr.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/zr/internal/app"
	"go.trai.ch/zr/internal/build"
)

// CLI represents the command line interface for zr.
type CLI struct {
	components *app.Components
	rootCmd    *cobra.Command
}

// New creates a new CLI instance wired to the given application components.
func New(c *app.Components) *CLI {
	rootCmd := &cobra.Command{
		Use:           "zr",
		Short:         "A polyglot task runner for monorepos",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	cli := &CLI{
		components: c,
		rootCmd:    rootCmd,
	}

	rootCmd.AddCommand(
		cli.newRunCmd(),
		cli.newCacheCmd(),
		cli.newHistoryCmd(),
		cli.newConfigCmd(),
		cli.newVersionCmd(),
	)

	return cli
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}
