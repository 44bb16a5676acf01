package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/analytics"
	"github.com/helmcode/riskctl/pkg/events"
	"github.com/helmcode/riskctl/pkg/export"
	"github.com/helmcode/riskctl/pkg/formatter"
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/helmcode/riskctl/pkg/model"
	"github.com/spf13/cobra"
)

type predictOptions struct {
	studentID   string
	fields      map[string]*string
	trend       bool
	export      bool
	showSummary bool
}

func NewPredictCmd(app *App) *cobra.Command {
	opts := &predictOptions{fields: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Submit student metrics and get a risk classification",
		Long: `Submit one student's metrics to the prediction service. Each configured
endpoint is tried in order until one answers.

Examples:
  # Classify a student
  riskctl predict --student-id S-42 --attendance-current 61 --attendance-prev 78 \
    --assignment-delay-avg 3.5 --marks-std 12 --lms-logins 4 --total-days 90

  # Also show the risk trend and save the result as JSON
  riskctl predict --student-id S-42 ... --trend --export

  # Watch the analytics summary refresh after the prediction
  riskctl predict --student-id S-42 ... --show-summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().StringVar(&opts.studentID, "student-id", "", "Student identifier")
	for _, name := range model.PredictionFields {
		v := new(string)
		opts.fields[name] = v
		cmd.Flags().StringVar(v, strings.ReplaceAll(name, "_", "-"), "", strings.ReplaceAll(name, "_", " "))
	}
	cmd.Flags().BoolVar(&opts.trend, "trend", false, "Show the student's risk trend after predicting")
	cmd.Flags().BoolVar(&opts.export, "export", false, "Save the prediction as JSON in the output directory")
	cmd.Flags().BoolVar(&opts.showSummary, "show-summary", false, "Show the analytics summary, refreshed by this prediction")

	return cmd
}

func runPredict(ctx context.Context, app *App, opts *predictOptions) error {
	values := make(map[string]string, len(opts.fields))
	for name, v := range opts.fields {
		values[name] = *v
	}
	req, err := model.ParsePredictionRequest(opts.studentID, values)
	if err != nil {
		return err
	}

	app.printHeader("🎓 Student Risk Prediction",
		fmt.Sprintf("🧑 Student: %s", req.StudentID),
		fmt.Sprintf("🌐 Endpoints: %s", strings.Join(app.Resolver.Endpoints(), ", ")))

	var summary *analytics.SummaryController
	if opts.showSummary {
		summary = analytics.NewSummaryController(app.API.AnalyticsSummary, app.Bus)
		summary.Mount(ctx)
		defer summary.Unmount()
	}

	s := app.newSpinner(" Submitting prediction...")
	s.Start()
	result, resp, err := app.Resolver.SubmitPrediction(ctx, req)
	s.Stop()
	if err != nil {
		return app.fail(err)
	}
	app.printSuccess(fmt.Sprintf("Prediction received from %s", resp.URL))

	if err := formatter.DisplayPrediction(app.Out, result, resp.URL, app.Format()); err != nil {
		return err
	}

	app.Bus.Publish(events.PredictionCreated{StudentID: req.StudentID})

	if opts.trend {
		if err := showTrend(ctx, app, req.StudentID, history.Compact); err != nil {
			app.printError(err.Error())
		}
	}

	if opts.export {
		art, err := export.PredictionJSON(*result, req.StudentID, time.Now())
		if err != nil {
			return fmt.Errorf("export prediction: %w", err)
		}
		path, err := app.Saver.Save(art)
		if err != nil {
			return fmt.Errorf("export prediction: %w", err)
		}
		app.printSuccess(fmt.Sprintf("Saved %s", path))
	}

	if summary != nil {
		summary.Wait()
		if err := formatter.DisplaySummary(app.Out, summary.State(), app.Format()); err != nil {
			return err
		}
	}
	return nil
}

// showTrend loads and renders one student's history. Data-quality
// problems are shown with the points, not returned.
func showTrend(ctx context.Context, app *App, studentID string, g history.Granularity) error {
	n := history.Normalizer{Granularity: g, Location: app.Config.Location}
	points, err := history.Load(ctx, app.API, studentID, n)

	var quality *history.DataQualityError
	if err != nil && !errors.As(err, &quality) {
		log.WithError(err).WithField("student_id", studentID).Warn("history unavailable")
		return err
	}
	var warning error
	if quality != nil {
		warning = quality
	}
	return formatter.DisplayHistory(app.Out, studentID, points, warning, app.Format())
}
