package cmd

import (
	"context"
	"fmt"

	"github.com/helmcode/riskctl/pkg/analyzer"
	"github.com/helmcode/riskctl/pkg/formatter"
	"github.com/helmcode/riskctl/pkg/history"
	"github.com/helmcode/riskctl/pkg/model"
	"github.com/spf13/cobra"
)

type alertOptions struct {
	message  string
	draft    bool
	provider string
	model    string
	dryRun   bool
}

func NewAlertCmd(app *App) *cobra.Command {
	opts := &alertOptions{}

	cmd := &cobra.Command{
		Use:   "alert STUDENT_ID",
		Short: "Send a risk alert to a student's guardian",
		Long: `Send an alert through the backend. Write the message yourself with
--message, or let an AI assistant draft it from the student's risk history
with --draft (needs ANTHROPIC_API_KEY or OPENAI_API_KEY).

Examples:
  riskctl alert S-42 --message "Please contact the school this week."
  riskctl alert S-42 --draft --dry-run
  riskctl alert S-42 --draft --provider openai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlert(cmd.Context(), app, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Alert text")
	cmd.Flags().BoolVar(&opts.draft, "draft", false, "Draft the message with an AI assistant")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "AI provider for --draft (claude, openai)")
	cmd.Flags().StringVar(&opts.model, "model", "", "AI model for --draft")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the message without sending it")
	cmd.MarkFlagsMutuallyExclusive("message", "draft")
	cmd.MarkFlagsOneRequired("message", "draft")

	return cmd
}

func runAlert(ctx context.Context, app *App, studentID string, opts *alertOptions) error {
	req := model.AlertRequest{StudentID: studentID, Message: opts.message, Method: "manual"}

	var draft *model.AlertDraft
	if opts.draft {
		d, err := draftAlert(ctx, app, studentID, opts)
		if err != nil {
			return err
		}
		draft = &d
		req.Message = d.Message
		req.Method = "assisted"
	}

	if opts.dryRun {
		return formatter.DisplayAlert(app.Out, &model.AlertResponse{Status: "draft", StudentID: studentID}, req, draft, app.Format())
	}

	s := app.newSpinner(" Sending alert...")
	s.Start()
	resp, err := app.API.SendAlert(ctx, req)
	s.Stop()
	if err != nil {
		return app.fail(err)
	}
	return formatter.DisplayAlert(app.Out, resp, req, draft, app.Format())
}

func draftAlert(ctx context.Context, app *App, studentID string, opts *alertOptions) (model.AlertDraft, error) {
	a, err := analyzer.NewFromEnv(opts.provider, opts.model)
	if err != nil {
		return model.AlertDraft{}, err
	}

	s := app.newSpinner(fmt.Sprintf(" Drafting with %s...", a.Describe()))
	s.Start()
	n := history.Normalizer{Granularity: history.Detailed, Location: app.Config.Location}
	draft, err := a.DraftAlert(ctx, app.API, n, studentID, nil)
	s.Stop()
	if err != nil {
		return model.AlertDraft{}, app.fail(fmt.Errorf("AI drafting failed: %w", err))
	}
	app.printSuccess("Draft ready")
	return draft, nil
}
