// Package cmd provides the CLI commands for deckhand.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cameronsjo/deckhand/internal/ui"
)

const version = "0.3.0"

// Persistent flags shared by every command.
var (
	flagFile        string
	flagEnvironment string
	flagLogFormat   string
	flagDebug       bool
	flagTemplate    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "deckhand",
	Short: "Manifest-driven deployments for CI pipelines",
	Long: `deckhand - push a deployment manifest to the deployment API

Reads a YAML manifest of environments, picks the one named by --environment
and, for every service in it, uploads files, updates the image, waits out
the pacing delay and updates the configuration.

COMMANDS
  deploy                Deploy one environment (default inside GitHub Actions)
    --dry-run, -n       Check the project and log what would be sent
  validate              Lint the manifest without touching the API
  environments          List environment names in the manifest
  alert status          Show configured notification providers
  alert test            Send a test notification

INPUTS (flags override environment)
  --file, -f            INPUT_FILE / input_file (default: deckhand.yaml)
  --environment, -e     INPUT_ENVIRONMENT / environment
  DECKHAND_API_URL      Deployment API root (or KARNOT_CLOUD_URL)
  DECKHAND_API_KEY      API key sent as X-Api-Key (or KARNOT_CLOUD_TOKEN)`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Workflow steps run the binary without arguments.
		if v, _ := lookupEnv("GITHUB_ACTIONS"); v == "true" {
			return runDeployCmd(cmd, args)
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Fatal("%v", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagFile, "file", "f", "", "Deployment manifest (default: $INPUT_FILE or deckhand.yaml)")
	flags.StringVarP(&flagEnvironment, "environment", "e", "", "Target environment (default: $INPUT_ENVIRONMENT)")
	flags.StringVar(&flagLogFormat, "log-format", "", "Log format: console, actions or json")
	flags.BoolVar(&flagDebug, "debug", false, "Show debug output")
	flags.BoolVar(&flagTemplate, "template", false, "Render the manifest as a Go template before parsing")

	rootCmd.RegisterFlagCompletionFunc("environment", completeEnvironments)
	rootCmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(ui.Formats, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.SetVersionTemplate("deckhand version {{.Version}}\n")
}
