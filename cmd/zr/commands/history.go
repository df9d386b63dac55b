package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the run history log",
	}
	cmd.AddCommand(c.newHistoryShowCmd())
	return cmd
}

func (c *CLI) newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the most recent run history records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			records, err := c.components.History.LoadLast(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range records {
				status := "ok"
				if !r.Success {
					status = "failed"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%dms\n",
					r.Timestamp.Format("2006-01-02T15:04:05"), r.TaskName, status, r.DurationMS)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of records to show")
	return cmd
}
