package cli

import (
	"github.com/spf13/cobra"

	"sheet-probe/internal/app"
)

var (
	runConfirmUnsafe bool
	runNoProgress    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sheet resistance test",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{
			ConfirmUnsafe: runConfirmUnsafe,
			NoProgress:    runNoProgress,
		}
		return getApp().RunOnce(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runConfirmUnsafe, "confirm-unsafe", false, "Pre-confirm forcing levels above the safety limit")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Disable the per-level progress bar")
}
