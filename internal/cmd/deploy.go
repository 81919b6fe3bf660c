package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cameronsjo/deckhand/internal/alert"
	"github.com/cameronsjo/deckhand/internal/cloud"
	"github.com/cameronsjo/deckhand/internal/config"
	"github.com/cameronsjo/deckhand/internal/deploy"
	"github.com/cameronsjo/deckhand/internal/report"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// deployCmd deploys one environment of the manifest.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy one environment to the deployment API",
	Long: `Deploy the services of one manifest environment.

The project is checked first; if it does not exist nothing is sent.
For each service, in manifest order:
  1. Upload files (when the service lists any)
  2. Update the image (when set)
  3. Wait 15s for the service to settle
  4. Update the configuration (when set)

Failed update steps are logged and the run continues. Only configuration,
manifest and environment errors make the command exit non-zero.`,
	Example: `  deckhand deploy -e staging
  deckhand deploy -f deploy/environments.yaml -e prod --report report.json
  deckhand deploy -e prod --dry-run`,
	Args: cobra.NoArgs,
	RunE: runDeployCmd,
}

var (
	deployAPIURL      string
	deployHTTPTimeout time.Duration
	deployDryRun      bool
	deployReport      string
)

// pacer waits out the delay between the image and config updates.
// Tests swap it for a fake.
var pacer deploy.Sleeper = deploy.TimerSleeper{}

func init() {
	deployCmd.Flags().StringVar(&deployAPIURL, "api-url", "", "Deployment API root (default: $DECKHAND_API_URL)")
	deployCmd.Flags().DurationVar(&deployHTTPTimeout, "http-timeout", 0, "Timeout for each API request (0 means none)")
	deployCmd.Flags().BoolVarP(&deployDryRun, "dry-run", "n", false, "Check the project and log the updates without sending them")
	deployCmd.Flags().StringVar(&deployReport, "report", "", "Write a JSON run report to this path (default: $DECKHAND_REPORT)")

	rootCmd.AddCommand(deployCmd)
}

func runDeployCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyDeployFlags(cmd, cfg)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = runDeploy(ctx, cfg, deployDryRun, cmd.OutOrStdout())
	return err
}

func applyDeployFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = deployAPIURL
	}
	if flags.Changed("http-timeout") {
		cfg.HTTPTimeout = deployHTTPTimeout
	}
	if flags.Changed("report") {
		cfg.Report = deployReport
	}
}

// runDeploy performs one deployment run. The returned error is non-nil only
// for the fatal conditions: bad configuration, an unreadable or invalid
// manifest, or an unknown environment. Failed API calls are part of the
// summary instead.
func runDeploy(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer) (*deploy.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	log, err := newLogger(cfg, out)
	if err != nil {
		return nil, err
	}

	log.Debug("Deployment API: %s (key %s)", cfg.APIURL, cfg.RedactedKey())
	log.Info("Reading file: %s", cfg.ManifestPath)

	m, err := loadManifest(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	client := cloud.New(cloud.Options{
		BaseURL:    cfg.APIURL,
		APIKey:     cfg.APIKey,
		UserAgent:  "deckhand/" + version,
		RunID:      runID,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
	})

	walker := deploy.New(client,
		deploy.WithLogger(log),
		deploy.WithSleeper(pacer),
		deploy.WithDryRun(dryRun),
		deploy.WithRunID(runID),
	)

	summary, err := walker.Run(ctx, m, cfg.Environment)
	if err != nil {
		return nil, err
	}

	publish(ctx, cfg, summary, log)
	return summary, nil
}

// publish writes the run's reports and sends notifications. Failures here
// are logged as warnings and never change the outcome of the run.
func publish(ctx context.Context, cfg *config.Config, s *deploy.Summary, log ui.Logger) {
	if cfg.StepSummary != "" {
		if err := report.AppendStepSummary(cfg.StepSummary, s); err != nil {
			log.Warn("Failed to write step summary: %v", err)
		}
	}

	if cfg.Report != "" {
		if err := report.WriteJSON(cfg.Report, s); err != nil {
			log.Warn("Failed to write report: %v", err)
		} else {
			log.Debug("Report written to %s", cfg.Report)
		}
	}

	if err := notify(ctx, newAlertManager(cfg.Alerts), cfg.Alerts, s); err != nil {
		log.Warn("Failed to send alert: %v", err)
	}
}

// newAlertManager builds a manager with every configured provider.
func newAlertManager(cfg config.AlertConfig) *alert.Manager {
	manager := alert.NewManager()
	if cfg.DiscordWebhookURL != "" {
		manager.AddProvider(alert.NewDiscordProvider(cfg.DiscordWebhookURL))
	}
	return manager
}

// notify sends the success or failure alert for s, as allowed by cfg.
func notify(ctx context.Context, manager *alert.Manager, cfg config.AlertConfig, s *deploy.Summary) error {
	if !manager.HasProviders() {
		return nil
	}

	d := alert.Deployment{
		Environment: s.Environment,
		ProjectID:   s.ProjectID,
		Project:     s.Project.Name,
		RunID:       s.RunID,
		Services:    len(s.Services),
		Failed:      s.Failed(),
		DryRun:      s.DryRun,
	}

	switch {
	case s.OK():
		if !cfg.OnSuccess {
			return nil
		}
		return manager.SendDeploySuccess(ctx, d)
	case !cfg.OnFailure:
		return nil
	case s.ProjectMissing:
		return manager.SendDeployFailure(ctx, d, fmt.Sprintf("project %s could not be verified: %s", s.ProjectID, s.ProjectReason))
	default:
		return manager.SendDeployFailure(ctx, d, fmt.Sprintf("%d update step(s) failed", d.Failed))
	}
}
