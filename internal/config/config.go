// Package config builds the run configuration from the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cameronsjo/deckhand/internal/ui"
)

// DefaultPace is the fixed delay between the image and config updates of a service.
const DefaultPace = 15 * time.Second

// DefaultManifestPath is used when no manifest input is given.
const DefaultManifestPath = "deckhand.yaml"

// Startup configuration errors.
var (
	// ErrMissingAPIURL indicates no deployment API URL was configured.
	ErrMissingAPIURL = errors.New("deployment API URL is required (set DECKHAND_API_URL)")

	// ErrMissingAPIKey indicates no API credential was configured.
	ErrMissingAPIKey = errors.New("deployment API key is required (set DECKHAND_API_KEY)")

	// ErrInvalidAPIURL indicates the API URL is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New("deployment API URL must be an absolute http(s) URL")
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Config holds everything a run needs. It is built once at startup and
// passed down explicitly; nothing below the command layer reads the
// environment.
type Config struct {
	// APIURL is the deployment API root.
	APIURL string

	// APIKey is sent in the X-Api-Key header.
	APIKey string

	// ManifestPath is the deployment manifest to read.
	ManifestPath string

	// Environment is the target environment name.
	Environment string

	// HTTPTimeout bounds each API request. Zero means no client timeout.
	HTTPTimeout time.Duration

	// Template renders the manifest with text/template before parsing.
	Template bool

	// LogFormat is one of ui.Formats.
	LogFormat string

	// Debug enables debug output.
	Debug bool

	// StepSummary is the GitHub step summary file to append to.
	StepSummary string

	// Report is a path for a JSON run report.
	Report string

	// Alerts configures deployment notifications.
	Alerts AlertConfig
}

// AlertConfig holds notification settings.
type AlertConfig struct {
	DiscordWebhookURL string
	OnSuccess         bool
	OnFailure         bool
}

// Enabled reports whether any provider is configured.
func (a AlertConfig) Enabled() bool {
	return a.DiscordWebhookURL != ""
}

// FromEnv builds a Config from lookup. Unset values get defaults; malformed
// values are reported as errors. Required values are not checked here, see
// Validate.
func FromEnv(lookup LookupFunc) (*Config, error) {
	cfg := &Config{
		ManifestPath: DefaultManifestPath,
		LogFormat:    ui.FormatConsole,
		Alerts:       AlertConfig{OnFailure: true},
	}

	first := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	var errs []error

	cfg.APIURL = first("DECKHAND_API_URL", "KARNOT_CLOUD_URL")
	cfg.APIKey = first("DECKHAND_API_KEY", "KARNOT_CLOUD_TOKEN")
	if v := first("INPUT_FILE", "input_file"); v != "" {
		cfg.ManifestPath = v
	}
	cfg.Environment = first("INPUT_ENVIRONMENT", "environment")

	if v := first("DECKHAND_HTTP_TIMEOUT"); v != "" {
		d, err := parseDuration("DECKHAND_HTTP_TIMEOUT", v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.HTTPTimeout = d
		}
	}

	if v := first("DECKHAND_TEMPLATE"); v != "" {
		b, err := parseBool("DECKHAND_TEMPLATE", v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Template = b
	}

	if github := first("GITHUB_ACTIONS"); github == "true" {
		cfg.LogFormat = ui.FormatActions
	}
	if v := first("DECKHAND_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	// RUNNER_DEBUG is set to 1 when a workflow is re-run with debug logging.
	cfg.Debug = first("RUNNER_DEBUG") == "1"
	if v := first("DECKHAND_DEBUG"); v != "" {
		b, err := parseBool("DECKHAND_DEBUG", v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Debug = cfg.Debug || b
	}

	cfg.StepSummary = first("GITHUB_STEP_SUMMARY")
	cfg.Report = first("DECKHAND_REPORT")

	cfg.Alerts.DiscordWebhookURL = first("DISCORD_WEBHOOK_URL")
	if v := first("DECKHAND_ALERT_ON_SUCCESS"); v != "" {
		b, err := parseBool("DECKHAND_ALERT_ON_SUCCESS", v)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Alerts.OnSuccess = b
	}
	if v := first("DECKHAND_ALERT_ON_FAILURE"); v != "" {
		b, err := parseBool("DECKHAND_ALERT_ON_FAILURE", v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Alerts.OnFailure = b
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the values a deployment cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.APIURL == "" {
		errs = append(errs, ErrMissingAPIURL)
	} else if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAPIURL, c.APIURL))
	}

	if c.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}

	valid := false
	for _, f := range ui.Formats {
		if c.LogFormat == f {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("unknown log format %q (supported: %s)", c.LogFormat, strings.Join(ui.Formats, ", ")))
	}

	return errors.Join(errs...)
}

// RedactedKey returns the API key with all but its edges masked.
func (c *Config) RedactedKey() string {
	if len(c.APIKey) <= 8 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func parseBool(key, v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}
