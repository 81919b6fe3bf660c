package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Discord embed colors (decimal format).
const (
	ColorInfo    = 0x3498db // Blue
	ColorWarning = 0xf39c12 // Orange
	ColorError   = 0xe74c3c // Red
	ColorSuccess = 0x2ecc71 // Green
)

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Footer      *discordFooter      `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordProvider sends alerts via Discord webhooks.
type DiscordProvider struct {
	webhookURL string
	client     *http.Client
	now        func() time.Time
}

// NewDiscordProvider creates a new Discord provider.
func NewDiscordProvider(webhookURL string) *DiscordProvider {
	return &DiscordProvider{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// Name returns the provider name.
func (d *DiscordProvider) Name() string {
	return "discord"
}

// IsConfigured returns true if the webhook URL is set.
func (d *DiscordProvider) IsConfigured() bool {
	return d.webhookURL != ""
}

// Send posts the alert as a single embed.
func (d *DiscordProvider) Send(ctx context.Context, alert *Alert) error {
	if !d.IsConfigured() {
		return nil
	}

	embed := discordEmbed{
		Title:       alert.Title,
		Description: truncateString(alert.Message, 4096), // Discord description limit.
		Color:       severityToColor(alert.Severity),
		Footer:      &discordFooter{Text: fmt.Sprintf("deckhand/%s", alert.Source)},
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}

	// Sorted so the embed layout is stable between runs.
	keys := make([]string, 0, len(alert.Metadata))
	for k, v := range alert.Metadata {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   k,
			Value:  truncateString(alert.Metadata[k], 1024), // Discord field limit.
			Inline: true,
		})
	}

	body, err := json.Marshal(discordPayload{
		Username: "deckhand",
		Embeds:   []discordEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Discord returns 204 No Content on success.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}

func severityToColor(severity Severity) int {
	switch severity {
	case SeverityInfo:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
