package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/deckhand/internal/alert"
	"github.com/cameronsjo/deckhand/internal/config"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// alertCmd represents the alert command group.
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert configuration and testing commands",
	Long: `Alert commands for checking deployment notifications.

Commands:
  status    Show which alert providers are configured
  test      Send a test alert to the configured providers`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// alertStatusCmd shows configured alert providers.
var alertStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which alert providers are configured",
	Long:  "Display the alert providers and when deployments notify them.",
	Args:  cobra.NoArgs,
	RunE:  runAlertStatus,
}

// alertTestCmd sends a test alert.
var alertTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test alert to configured providers",
	Long:  "Send a test alert message to verify provider configuration.",
	Args:  cobra.NoArgs,
	RunE:  runAlertTest,
}

var (
	alertTestMessage  string
	alertTestSeverity string
)

func init() {
	alertTestCmd.Flags().StringVarP(&alertTestMessage, "message", "m", "", "Custom test message")
	alertTestCmd.Flags().StringVarP(&alertTestSeverity, "severity", "s", "info", "Test severity level (info, warning, error)")

	alertCmd.AddCommand(alertStatusCmd)
	alertCmd.AddCommand(alertTestCmd)

	rootCmd.AddCommand(alertCmd)
}

func runAlertStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	displayAlertStatus(log, cfg.Alerts)
	return nil
}

func displayAlertStatus(log ui.Logger, cfg config.AlertConfig) {
	end := log.Group("Alert Providers")
	if cfg.DiscordWebhookURL != "" {
		log.Success("Discord: configured (%s)", redactWebhook(cfg.DiscordWebhookURL))
	} else {
		log.Warn("Discord: not configured, set DISCORD_WEBHOOK_URL")
	}
	end()

	end = log.Group("Settings")
	log.Info("Alert on success: %s", yesNo(cfg.OnSuccess))
	log.Info("Alert on failure: %s", yesNo(cfg.OnFailure))
	end()

	if !cfg.Enabled() {
		log.Warn("No alert providers configured")
	}
}

func runAlertTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	manager := newAlertManager(cfg.Alerts)
	if !manager.HasProviders() {
		return fmt.Errorf("no alert providers configured")
	}

	message := alertTestMessage
	if message == "" {
		message = "This is a test alert from deckhand"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log.Info("Testing %s...", strings.Join(manager.ProviderNames(), ", "))
	err = manager.Send(ctx, &alert.Alert{
		Title:    "Test Alert from deckhand",
		Message:  message,
		Severity: parseSeverity(alertTestSeverity),
		Source:   "alert-test",
		Metadata: map[string]string{
			"type": "test",
			"time": time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("test alert failed: %w", err)
	}

	log.Success("Test alert sent")
	return nil
}

// parseSeverity converts a string to alert.Severity.
func parseSeverity(s string) alert.Severity {
	switch strings.ToLower(s) {
	case "warning", "warn":
		return alert.SeverityWarning
	case "error", "err":
		return alert.SeverityError
	default:
		return alert.SeverityInfo
	}
}

// redactWebhook keeps the scheme and host of a webhook URL and hides the token path.
func redactWebhook(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		if j := strings.Index(u[i+3:], "/"); j >= 0 {
			return u[:i+3+j] + "/..."
		}
	}
	return "..."
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
