package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/deckhand/internal/ui"
)

// resetFlags restores every flag of cmd and its children to its default.
// Cobra keeps parsed values in package globals between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// withEnv replaces the environment seen by loadConfig for the test.
func withEnv(t *testing.T, env map[string]string) {
	t.Helper()
	prev := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	t.Cleanup(func() {
		lookupEnv = prev
		ui.SetActionsMode(false)
	})
}

// executeCmd executes the root command with the given args and returns the output.
// This handles proper state reset between test executions.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeManifest writes content to a manifest file in a temp dir.
func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deckhand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const testManifest = `environments:
  - project: staging
    id: p-staging
    repos:
      api:
        image: registry.example.com/api:v1
  - project: prod
    id: p-prod
    repos:
      sequencer:
        files:
          genesis: https://example.com/genesis.json
        image: registry.example.com/sequencer:v2
        config:
          replicas: 3
      gateway:
        config:
          port: 8080
`
