package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zr/internal/adapters/config"
)

func (c *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved task configuration",
	}
	cmd.AddCommand(c.newConfigDumpCmd())
	return cmd
}

func (c *CLI) newConfigDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Re-serialise the resolved tasks as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			graph, err := c.components.ConfigLoader.Load(".")
			if err != nil {
				return err
			}
			if err := graph.Validate(); err != nil {
				return err
			}
			out, err := config.Dump(graph)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
