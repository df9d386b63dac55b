package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local task cache",
	}
	cmd.AddCommand(c.newCacheClearCmd(), c.newCacheInspectCmd())
	return cmd
}

func (c *CLI) newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := c.components.Cache.ClearAll()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache marker(s)\n", n)
			return nil
		},
	}
}

func (c *CLI) newCacheInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <fingerprint>",
		Short: "Report whether a fingerprint has a cache hit marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hit, err := c.components.Cache.HasHit(args[0])
			if err != nil {
				return err
			}
			if hit {
				fmt.Fprintln(cmd.OutOrStdout(), "hit")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "miss")
			}
			return nil
		},
	}
}
