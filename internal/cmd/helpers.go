package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/deckhand/internal/config"
	"github.com/cameronsjo/deckhand/internal/manifest"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// lookupEnv is swapped in tests.
var lookupEnv config.LookupFunc = os.LookupEnv

// loadConfig builds the run configuration from the environment, then
// applies any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.FromEnv(lookupEnv)
	if err != nil {
		if v, _ := lookupEnv("GITHUB_ACTIONS"); v == "true" {
			ui.SetActionsMode(true)
		}
		return nil, fmt.Errorf("configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.ManifestPath = flagFile
	}
	if flags.Changed("environment") {
		cfg.Environment = flagEnvironment
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if flags.Changed("debug") {
		cfg.Debug = flagDebug
	}
	if flags.Changed("template") {
		cfg.Template = flagTemplate
	}

	// Fatal errors from here on are reported as workflow annotations.
	ui.SetActionsMode(cfg.LogFormat == ui.FormatActions)
	return cfg, nil
}

// newLogger returns the logger for cfg.LogFormat writing to w.
// It also switches fatal messages to annotations in Actions mode.
func newLogger(cfg *config.Config, w io.Writer) (ui.Logger, error) {
	ui.SetActionsMode(cfg.LogFormat == ui.FormatActions)
	return ui.NewLogger(cfg.LogFormat, w, cfg.Debug)
}

// loadManifest reads cfg.ManifestPath, rendering it first if templating
// is enabled. The target environment is available to templates as
// {{ .environment }}.
func loadManifest(cfg *config.Config) (*manifest.Manifest, error) {
	var opts []manifest.LoadOption
	if cfg.Template {
		opts = append(opts, manifest.WithTemplate(map[string]any{
			"environment": cfg.Environment,
		}))
	}
	return manifest.Load(cfg.ManifestPath, opts...)
}
