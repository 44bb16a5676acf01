package cmd

import (
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/spf13/cobra"
)

func NewHistoryCmd(app *App) *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "history STUDENT_ID",
		Short: "Show a student's risk trend",
		Long: `Plot the risk levels recorded for one student, oldest first.

Examples:
  riskctl history S-42
  riskctl history S-42 --detailed -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := history.Compact
			if detailed {
				g = history.Detailed
			}
			s := app.newSpinner(" Loading history...")
			s.Start()
			err := showTrend(cmd.Context(), app, args[0], g)
			s.Stop()
			if err != nil {
				return app.fail(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show dates as well as times")
	return cmd
}
