package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zr/internal/app"
	"go.trai.ch/zr/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run the given tasks and their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			jobs, _ := cmd.Flags().GetInt("jobs")
			failFast, _ := cmd.Flags().GetBool("fail-fast")
			quiet, _ := cmd.Flags().GetBool("quiet")

			result, err := c.components.App.Run(cmd.Context(), args, app.RunOptions{
				Force:    force,
				MaxJobs:  jobs,
				FailFast: failFast,
				UseColor: !quiet,
				Quiet:    quiet,
			})
			printRunSummary(cmd, result)
			return err
		},
	}
	cmd.Flags().BoolP("force", "f", false, "Bypass the cache and force execution")
	cmd.Flags().IntP("jobs", "j", 0, "Maximum concurrent tasks per level (default: number of CPUs)")
	cmd.Flags().Bool("fail-fast", false, "Stop scheduling new tasks after the first failure")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress the progress line")
	return cmd
}

func printRunSummary(cmd *cobra.Command, result domain.ScheduleResult) {
	counts := result.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "(%d passed, %d failed, %d skipped, %dms)\n",
		counts[domain.OutcomeSuccess],
		counts[domain.OutcomeFailed]+counts[domain.OutcomeTimedOut]+counts[domain.OutcomeCancelled],
		counts[domain.OutcomeSkippedUpstream]+counts[domain.OutcomeSkippedCondition]+counts[domain.OutcomeSkippedCache],
		result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)
}
