package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/helmcode/riskctl/pkg/client"
	"github.com/helmcode/riskctl/pkg/config"
	"github.com/helmcode/riskctl/pkg/events"
	"github.com/helmcode/riskctl/pkg/export"
	"github.com/helmcode/riskctl/pkg/formatter"
	"github.com/helmcode/riskctl/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrReported marks a failure whose details were already printed.
var ErrReported = errors.New("reported")

// App carries what every subcommand shares: settings, the backend clients
// and the process-wide prediction bus.
type App struct {
	Config   config.Config
	Bus      *events.Bus
	Resolver *client.Resolver
	API      *client.API
	Saver    export.Saver

	Out    io.Writer
	Status io.Writer

	baseURL      string
	endpoints    []string
	outputDir    string
	outputFormat string
	verbose      bool
}

func NewApp() *App {
	return &App{Out: os.Stdout, Status: os.Stderr}
}

// AddFlags registers the flags shared by every subcommand.
func (a *App) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&a.baseURL, "base-url", "", "Backend base URL (default from config, "+config.DefaultBaseURL+")")
	fs.StringSliceVar(&a.endpoints, "endpoint", nil, "Prediction endpoint, tried in order (repeatable)")
	fs.StringVar(&a.outputDir, "output-dir", "", "Directory for exported files")
	fs.StringVarP(&a.outputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	fs.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
}

// Init loads configuration and builds the clients. It runs before every
// subcommand.
func (a *App) Init(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("endpoint") {
		cfg.PredictEndpoints = a.endpoints
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = a.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := formatter.ValidateFormat(a.outputFormat); err != nil {
		return err
	}
	if err := logging.Setup(a.Status, cfg.LogLevel, a.verbose); err != nil {
		return err
	}

	a.Config = cfg
	a.Bus = events.NewBus()
	a.Resolver = client.NewResolver(cfg.PredictEndpoints, cfg.BaseURL, cfg.Timeout())
	a.API = client.NewAPI(cfg.BaseURL, cfg.Timeout())
	a.Saver = export.DirSaver{Dir: cfg.OutputDir}

	log.WithFields(log.Fields{
		"base_url":  cfg.BaseURL,
		"endpoints": len(cfg.PredictEndpoints),
		"timeout":   cfg.Timeout(),
	}).Debug("configured")
	return nil
}

// Format is the selected -o value.
func (a *App) Format() string {
	return a.outputFormat
}

func (a *App) human() bool {
	return a.outputFormat == formatter.FormatHuman
}

// fail prints err with its diagnostic and returns it marked as reported.
func (a *App) fail(err error) error {
	formatter.DisplayFailure(a.Status, err)
	return fmt.Errorf("%w: %w", ErrReported, err)
}
