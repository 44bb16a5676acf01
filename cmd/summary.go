package cmd

import (
	"context"
	"fmt"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/analytics"
	"github.com/helmcode/riskctl/pkg/formatter"
	"github.com/spf13/cobra"
)

func NewSummaryCmd(app *App) *cobra.Command {
	var watch string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the analytics summary",
		Long: `Fetch the aggregate risk snapshot across all predictions.

With --watch the summary is refetched on a cron schedule until interrupted.

Examples:
  riskctl summary
  riskctl summary --watch "@every 30s"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch != "" {
				return watchSummary(cmd.Context(), app, watch)
			}
			return showSummary(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVar(&watch, "watch", "", `Refresh on a cron schedule, e.g. "@every 30s"`)
	return cmd
}

func showSummary(ctx context.Context, app *App) error {
	c := analytics.NewSummaryController(app.API.AnalyticsSummary, app.Bus)

	s := app.newSpinner(" Loading analytics...")
	s.Start()
	c.Mount(ctx)
	c.Wait()
	s.Stop()
	defer c.Unmount()

	snap := c.State()
	if err := formatter.DisplaySummary(app.Out, snap, app.Format()); err != nil {
		return err
	}
	if snap.Phase == analytics.PhaseError {
		return fmt.Errorf("%w: %w", ErrReported, snap.Err)
	}
	return nil
}

func watchSummary(ctx context.Context, app *App, spec string) error {
	c := analytics.NewSummaryController(app.API.AnalyticsSummary, app.Bus)
	c.OnChange(func(snap analytics.Snapshot) {
		if snap.Phase == analytics.PhaseLoading {
			return
		}
		if err := formatter.DisplaySummary(app.Out, snap, app.Format()); err != nil {
			log.WithError(err).Error("render summary")
		}
	})

	sched, err := c.Schedule(spec)
	if err != nil {
		return fmt.Errorf("invalid --watch schedule %q: %w", spec, err)
	}

	app.printHeader("📊 Watching analytics summary", fmt.Sprintf("⏱  Schedule: %s", spec))
	c.Mount(ctx)
	sched.Start()

	<-ctx.Done()

	<-sched.Stop().Done()
	c.Unmount()
	c.Wait()
	app.printSuccess("Stopped watching")
	return nil
}
