package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/deckhand/internal/manifest"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// validateCmd lints the manifest without calling the API.
var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"lint"},
	Short:   "Validate the manifest without deploying",
	Long: `Validate the deployment manifest without making any API calls.

The manifest is parsed with the same rules deploy uses. When an environment
is given it must exist, and only that environment is listed. Otherwise every
environment is listed with the updates each service would receive.

Examples:
  deckhand validate
  deckhand validate -f deploy/environments.yaml -e prod`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		log, err := newLogger(cfg, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		log.Info("Reading file: %s", cfg.ManifestPath)
		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		envs := m.Environments
		if cfg.Environment != "" {
			env, err := m.Resolve(cfg.Environment)
			if err != nil {
				return err
			}
			envs = []manifest.Environment{*env}
		}

		for _, env := range envs {
			describeEnvironment(log, env)
		}

		log.Success("Manifest is valid (%d environment(s))", len(m.Environments))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func describeEnvironment(log ui.Logger, env manifest.Environment) {
	end := log.Group(fmt.Sprintf("Environment: %s (project %s)", env.Name, env.ProjectID))
	defer end()

	if len(env.Services) == 0 {
		log.Warn("Environment %s defines no services", env.Name)
		return
	}

	for _, svc := range env.Services {
		log.Info("%s: %s", svc.Name, serviceUpdates(svc))
	}
}

// serviceUpdates names the updates a deploy would send for svc.
func serviceUpdates(svc manifest.Service) string {
	if svc.IsEmpty() {
		return "nothing to update"
	}

	var parts []string
	if svc.HasFiles() {
		parts = append(parts, fmt.Sprintf("%d file(s)", len(svc.Files)))
	}
	if svc.HasImage() {
		parts = append(parts, "image "+svc.Image)
	}
	if svc.HasConfig() {
		parts = append(parts, "config")
	}
	return strings.Join(parts, ", ")
}
