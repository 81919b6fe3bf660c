package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// environmentsCmd prints environment names, one per line.
var environmentsCmd = &cobra.Command{
	Use:     "environments",
	Aliases: []string{"envs"},
	Short:   "List the environments defined in the manifest",
	Long: `List the environment names of the manifest in file order, one per line.

The output is plain so it can feed a CI matrix:
  deckhand environments -f deploy/environments.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		m, err := loadManifest(cfg)
		if err != nil {
			return err
		}

		for _, name := range m.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(environmentsCmd)
}
