package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sheet-probe/internal/app"
)

var (
	reanalyzeLimit int
)

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze",
	Short: "Recompute stored runs under the current analysis configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reanalyzeLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ReanalyzeOptions{
			Limit: reanalyzeLimit,
		}

		return getApp().Reanalyze(cmd.Context(), opts)
	},
}

func init() {
	reanalyzeCmd.Flags().IntVar(&reanalyzeLimit, "limit", 20, "Number of recent runs to reanalyze")
}
