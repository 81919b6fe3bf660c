package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/deckhand/internal/config"
	"github.com/cameronsjo/deckhand/internal/deploy"
	"github.com/cameronsjo/deckhand/internal/manifest"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// apiRequest is one request seen by the fake API.
type apiRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeAPI is an httptest server standing in for the deployment API.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	requests []apiRequest

	// projectStatus is returned for project lookups. Defaults to 200.
	projectStatus int
	// failPath makes every POST to this path return 500.
	failPath string

	// pauses records the pacing delays requested during the test.
	pauses *fakePacer
}

// fakePacer records pacing delays instead of sleeping.
type fakePacer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (p *fakePacer) Sleep(_ context.Context, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays = append(p.delays, d)
}

func (p *fakePacer) recorded() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.delays...)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{projectStatus: http.StatusOK, pauses: &fakePacer{}}
	api.Server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.Close)

	prev := pacer
	pacer = api.pauses
	t.Cleanup(func() { pacer = prev })
	return api
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	req := apiRequest{Method: r.Method, Path: r.URL.Path}
	if r.Method == http.MethodPost {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &req.Body)
	}

	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	if r.Header.Get("X-Api-Key") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodGet {
		if a.projectStatus != http.StatusOK {
			w.WriteHeader(a.projectStatus)
			return
		}
		w.Write([]byte(`{"data":{"name":"rollup","organization":"acme","stack":"madara"}}`))
		return
	}

	if r.URL.Path == a.failPath {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *fakeAPI) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.requests))
	for i, r := range a.requests {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

func (a *fakeAPI) env(extra map[string]string) map[string]string {
	env := map[string]string{
		"DECKHAND_API_URL": a.URL,
		"DECKHAND_API_KEY": "test-key",
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func TestDeployCmd(t *testing.T) {
	t.Run("deploys every service in order", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(nil))
		path := writeManifest(t, testManifest)

		output, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.NoError(t, err)

		want := []string{
			"GET /project/p-prod",
			"POST /project/deployment/chain-forge",
			"POST /project/deployment/image",
			"POST /project/deployment/config",
			"POST /project/deployment/config",
		}
		if diff := cmp.Diff(want, api.calls()); diff != "" {
			t.Errorf("calls mismatch (-want +got):\n%s", diff)
		}

		assert.Contains(t, output, "Reading file: "+path)
		assert.Contains(t, output, "Deploying pipeline for environment: prod")
		assert.Contains(t, output, "project: rollup, organization: acme, stack: madara")
		assert.Contains(t, output, "Service name: sequencer")
		assert.Contains(t, output, "Service name: gateway")

		files := api.requests[1].Body
		assert.Equal(t, "https://example.com/genesis.json", files["url"])
		assert.Equal(t, "p-prod", files["projectId"])
		assert.Equal(t, "sequencer", files["serviceName"])

		cfg := api.requests[4].Body
		assert.Equal(t, "gateway", cfg["serviceName"])
		assert.Equal(t, map[string]any{"port": float64(8080)}, cfg["config"])
	})

	t.Run("pacing delay cannot be shortened", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(map[string]string{"DECKHAND_PACE": "0s"}))
		path := writeManifest(t, testManifest)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{15 * time.Second, 15 * time.Second}, api.pauses.recorded())

		_, err = executeCmd(t, "deploy", "-f", path, "-e", "prod", "--pace", "0s")
		assert.ErrorContains(t, err, "unknown flag: --pace")
	})

	t.Run("environment from inputs", func(t *testing.T) {
		api := newFakeAPI(t)
		path := writeManifest(t, testManifest)
		withEnv(t, api.env(map[string]string{
			"INPUT_FILE":        path,
			"INPUT_ENVIRONMENT": "staging",
		}))

		_, err := executeCmd(t, "deploy")
		require.NoError(t, err)
		assert.Equal(t, []string{"GET /project/p-staging", "POST /project/deployment/image"}, api.calls())
	})

	t.Run("unknown environment fails without requests", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(nil))
		path := writeManifest(t, testManifest)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "dev")
		require.Error(t, err)

		var unknown *manifest.UnknownEnvironmentError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "dev", unknown.Target)
		assert.Empty(t, api.calls())
	})

	t.Run("missing manifest fails", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(nil))

		_, err := executeCmd(t, "deploy", "-f", filepath.Join(t.TempDir(), "nope.yaml"), "-e", "prod")
		require.Error(t, err)

		var readErr *manifest.ReadError
		assert.True(t, errors.As(err, &readErr))
		assert.Empty(t, api.calls())
	})

	t.Run("missing credentials fail", func(t *testing.T) {
		withEnv(t, map[string]string{})
		path := writeManifest(t, testManifest)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrMissingAPIURL)
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	})

	t.Run("configuration errors are annotations inside actions", func(t *testing.T) {
		withEnv(t, map[string]string{"GITHUB_ACTIONS": "true"})
		path := writeManifest(t, testManifest)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.Error(t, err)

		var buf bytes.Buffer
		ui.PrintFatal(&buf, "%v", err)
		assert.True(t, strings.HasPrefix(buf.String(), "::error::configuration: "), buf.String())
		assert.Contains(t, buf.String(), "%0Adeployment API key is required")
	})

	t.Run("missing project is not fatal", func(t *testing.T) {
		api := newFakeAPI(t)
		api.projectStatus = http.StatusNotFound
		withEnv(t, api.env(nil))
		path := writeManifest(t, testManifest)

		output, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.NoError(t, err)
		assert.Equal(t, []string{"GET /project/p-prod"}, api.calls())
		assert.Contains(t, output, "Project with id: p-prod does not exist")
	})

	t.Run("failed steps are not fatal", func(t *testing.T) {
		api := newFakeAPI(t)
		api.failPath = "/project/deployment/image"
		withEnv(t, api.env(nil))
		path := writeManifest(t, testManifest)

		output, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.NoError(t, err)
		assert.Len(t, api.calls(), 5)
		assert.Contains(t, output, "Failed to update image for service: sequencer: unexpected status: 500")
		assert.Contains(t, output, "deployed with 1 failed step(s)")
	})

	t.Run("dry run only checks the project", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(nil))
		path := writeManifest(t, testManifest)

		output, err := executeCmd(t, "deploy", "-f", path, "-e", "prod", "--dry-run")
		require.NoError(t, err)
		assert.Equal(t, []string{"GET /project/p-prod"}, api.calls())
		assert.Contains(t, output, "Would update image for service: sequencer")
	})

	t.Run("actions log format", func(t *testing.T) {
		api := newFakeAPI(t)
		api.failPath = "/project/deployment/config"
		withEnv(t, api.env(map[string]string{"GITHUB_ACTIONS": "true"}))
		path := writeManifest(t, testManifest)

		output, err := executeCmd(t, "deploy", "-f", path, "-e", "prod")
		require.NoError(t, err)
		assert.Contains(t, output, "::group::Service: sequencer\n")
		assert.Contains(t, output, "::endgroup::\n")
		assert.Contains(t, output, "::error::Failed to update config for service: gateway")
	})

	t.Run("writes step summary and report", func(t *testing.T) {
		api := newFakeAPI(t)
		dir := t.TempDir()
		summaryPath := filepath.Join(dir, "summary.md")
		reportPath := filepath.Join(dir, "report.json")
		withEnv(t, api.env(map[string]string{"GITHUB_STEP_SUMMARY": summaryPath}))
		path := writeManifest(t, testManifest)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "staging", "--report", reportPath)
		require.NoError(t, err)

		md, err := os.ReadFile(summaryPath)
		require.NoError(t, err)
		assert.Contains(t, string(md), "### Deployment: staging")
		assert.Contains(t, string(md), "| api | – | ✅ | – |")

		data, err := os.ReadFile(reportPath)
		require.NoError(t, err)
		var report deploy.Summary
		require.NoError(t, json.Unmarshal(data, &report))
		assert.Equal(t, "staging", report.Environment)
		assert.NotEmpty(t, report.RunID)
		require.Len(t, report.Services, 1)
		assert.Equal(t, "api", report.Services[0].Name)
	})

	t.Run("renders templated manifest", func(t *testing.T) {
		api := newFakeAPI(t)
		withEnv(t, api.env(nil))
		path := writeManifest(t, `environments:
  - project: {{ .environment }}
    id: p-{{ .environment }}
    repos:
      api:
        image: registry.example.com/api:{{ .environment | upper }}
`)

		_, err := executeCmd(t, "deploy", "-f", path, "-e", "qa", "--template")
		require.NoError(t, err)
		assert.Equal(t, []string{"GET /project/p-qa", "POST /project/deployment/image"}, api.calls())
		assert.Equal(t, "registry.example.com/api:QA", api.requests[1].Body["image"])
	})
}

func TestRunDeploy_Alerts(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Embeds []struct {
				Title string `json:"title"`
			} `json:"embeds"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		mu.Lock()
		for _, e := range payload.Embeds {
			titles = append(titles, e.Title)
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer webhook.Close()

	api := newFakeAPI(t)
	api.failPath = "/project/deployment/config"

	env := api.env(map[string]string{
		"DISCORD_WEBHOOK_URL": webhook.URL,
		"INPUT_FILE":          writeManifest(t, testManifest),
		"INPUT_ENVIRONMENT":   "prod",
	})
	cfg, err := config.FromEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	require.NoError(t, err)

	summary, err := runDeploy(context.Background(), cfg, false, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Deployment Finished With Errors"}, titles)
}

func TestNotify(t *testing.T) {
	ok := &deploy.Summary{Environment: "prod", ProjectID: "p1"}
	missing := &deploy.Summary{Environment: "prod", ProjectID: "p1", ProjectMissing: true, ProjectReason: "unexpected status: 404"}

	tests := []struct {
		name    string
		cfg     config.AlertConfig
		summary *deploy.Summary
		want    int
	}{
		{"success skipped by default", config.AlertConfig{OnFailure: true}, ok, 0},
		{"success when enabled", config.AlertConfig{OnSuccess: true}, ok, 1},
		{"failure when enabled", config.AlertConfig{OnFailure: true}, missing, 1},
		{"failure when disabled", config.AlertConfig{OnSuccess: true}, missing, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits++
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			tt.cfg.DiscordWebhookURL = server.URL
			err := notify(context.Background(), newAlertManager(tt.cfg), tt.cfg, tt.summary)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hits)
		})
	}

	t.Run("no providers", func(t *testing.T) {
		err := notify(context.Background(), newAlertManager(config.AlertConfig{OnFailure: true}), config.AlertConfig{OnFailure: true}, missing)
		assert.NoError(t, err)
	})
}
