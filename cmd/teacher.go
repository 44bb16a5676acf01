package cmd

import (
	"context"
	"fmt"

	"github.com/helmcode/riskctl/pkg/analytics"
	"github.com/helmcode/riskctl/pkg/formatter"
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/spf13/cobra"
)

type teacherOptions struct {
	exportCSV bool
	studentID string
}

func NewTeacherCmd(app *App) *cobra.Command {
	opts := &teacherOptions{}

	cmd := &cobra.Command{
		Use:   "teacher",
		Short: "Show the teacher dashboard",
		Long: `Show headline numbers, per-cohort risk counts and the students most
often classified High.

Examples:
  riskctl teacher
  riskctl teacher --export-csv --output-dir ./reports
  riskctl teacher --history S-42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeacher(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.exportCSV, "export-csv", false, "Save cohort stats as cohort_stats.csv")
	cmd.Flags().StringVar(&opts.studentID, "history", "", "Also show the detailed trend for this student")
	return cmd
}

func runTeacher(ctx context.Context, app *App, opts *teacherOptions) error {
	dash := analytics.NewTeacherDashboard(app.API)

	s := app.newSpinner(" Loading teacher dashboard...")
	s.Start()
	view, err := dash.Load(ctx)
	s.Stop()
	if err != nil {
		return app.fail(err)
	}

	if err := formatter.DisplayTeacher(app.Out, view, app.Format()); err != nil {
		return err
	}

	if opts.exportCSV {
		art, err := dash.ExportCohortStats(ctx)
		if err != nil {
			return app.fail(err)
		}
		path, err := app.Saver.Save(art)
		if err != nil {
			return fmt.Errorf("export cohort stats: %w", err)
		}
		app.printSuccess(fmt.Sprintf("Saved %s", path))
	}

	if opts.studentID != "" {
		if err := showTrend(ctx, app, opts.studentID, history.Detailed); err != nil {
			return app.fail(err)
		}
	}
	return nil
}
