package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helmcode/riskctl/cmd"
	"github.com/spf13/cobra"
)

var (
	version = "v0.1.0" // Overwritten at build time
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cmd.ErrReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := cmd.NewApp()

	rootCmd := &cobra.Command{
		Use:   "riskctl",
		Short: "Student academic risk predictions from the command line",
		Long: `riskctl submits student metrics to the risk prediction service, shows
risk trends and cohort analytics, exports reports and sends guardian alerts.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.Init,
	}

	// Disable automatic 'completion' command added by cobra
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	app.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		cmd.NewPredictCmd(app),
		cmd.NewHistoryCmd(app),
		cmd.NewSummaryCmd(app),
		cmd.NewTeacherCmd(app),
		cmd.NewExportCmd(app),
		cmd.NewAlertCmd(app),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("riskctl version %s\n", version)
		},
	}
}
