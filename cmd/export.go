package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/helmcode/riskctl/pkg/client"
	"github.com/helmcode/riskctl/pkg/export"
	"github.com/spf13/cobra"
)

func NewExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download CSV reports from the backend",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "cohort COHORT",
			Short: "Download all predictions for a cohort",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runExport(cmd.Context(), app, "cohort "+args[0], func(ctx context.Context) (export.Artifact, error) {
					body, err := app.API.CohortExport(ctx, args[0])
					return export.CohortCSV(args[0], body), err
				})
			},
		},
		&cobra.Command{
			Use:   "student STUDENT_ID",
			Short: "Download one student's prediction report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runExport(cmd.Context(), app, "student "+args[0], func(ctx context.Context) (export.Artifact, error) {
					body, err := app.API.StudentReport(ctx, args[0])
					return export.StudentReportCSV(args[0], body), err
				})
			},
		},
	)
	return cmd
}

func runExport(ctx context.Context, app *App, what string, fetch func(context.Context) (export.Artifact, error)) error {
	s := app.newSpinner(fmt.Sprintf(" Downloading %s report...", what))
	s.Start()
	art, err := fetch(ctx)
	s.Stop()
	if errors.Is(err, client.ErrNoContent) {
		app.printError(fmt.Sprintf("No data to export for %s", what))
		return nil
	}
	if err != nil {
		return app.fail(err)
	}

	path, err := app.Saver.Save(art)
	if err != nil {
		return fmt.Errorf("save %s: %w", art.Filename, err)
	}
	app.printSuccess(fmt.Sprintf("Saved %s (%d bytes)", path, len(art.Data)))
	return nil
}
