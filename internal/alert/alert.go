// Package alert sends deployment notifications to configured providers.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Severity levels for alerts.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert represents a notification to send.
type Alert struct {
	Title    string            // Short title/subject
	Message  string            // Full message body
	Severity Severity          // Alert severity
	Source   string            // What generated this (e.g., "deploy")
	Metadata map[string]string // Additional context (environment, run ID, etc.)
}

// Provider interface for alert backends.
type Provider interface {
	Name() string
	Send(ctx context.Context, alert *Alert) error
	IsConfigured() bool
}

// Manager handles multiple alert providers.
type Manager struct {
	providers []Provider
}

// NewManager creates a new alert manager.
func NewManager() *Manager {
	return &Manager{providers: make([]Provider, 0)}
}

// AddProvider adds a provider if it is configured.
func (m *Manager) AddProvider(p Provider) {
	if p.IsConfigured() {
		m.providers = append(m.providers, p)
	}
}

// Send sends an alert to all configured providers.
// Returns an aggregated error if any provider fails.
func (m *Manager) Send(ctx context.Context, alert *Alert) error {
	if len(m.providers) == 0 {
		return nil
	}

	var errs []error
	for _, p := range m.providers {
		if err := p.Send(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("alert errors: %w", errors.Join(errs...))
	}
	return nil
}

// HasProviders returns true if at least one provider is configured.
func (m *Manager) HasProviders() bool {
	return len(m.providers) > 0
}

// ProviderNames returns the names of all configured providers.
func (m *Manager) ProviderNames() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

// Deployment describes a finished run for notification purposes.
type Deployment struct {
	Environment string
	ProjectID   string
	Project     string
	RunID       string
	Services    int
	Failed      int
	DryRun      bool
}

func (d Deployment) metadata() map[string]string {
	md := map[string]string{
		"environment": d.Environment,
		"project_id":  d.ProjectID,
		"project":     d.Project,
		"run_id":      d.RunID,
		"services":    strconv.Itoa(d.Services),
	}
	if d.Failed > 0 {
		md["failed_steps"] = strconv.Itoa(d.Failed)
	}
	if d.DryRun {
		md["dry_run"] = "true"
	}
	return md
}

// SendDeploySuccess sends a deployment success notification.
func (m *Manager) SendDeploySuccess(ctx context.Context, d Deployment) error {
	return m.Send(ctx, &Alert{
		Title:    "Deployment Successful",
		Message:  fmt.Sprintf("Deployed %d service(s) to %s (project %s)", d.Services, d.Environment, d.ProjectID),
		Severity: SeverityInfo,
		Source:   "deploy",
		Metadata: d.metadata(),
	})
}

// SendDeployFailure sends a deployment failure notification.
// Failed update steps are reported as a warning; a run that deployed
// nothing (Failed is zero) as an error.
func (m *Manager) SendDeployFailure(ctx context.Context, d Deployment, reason string) error {
	severity := SeverityError
	title := "Deployment Failed"
	if d.Failed > 0 {
		severity = SeverityWarning
		title = "Deployment Finished With Errors"
	}

	md := d.metadata()
	md["error"] = reason

	return m.Send(ctx, &Alert{
		Title:    title,
		Message:  fmt.Sprintf("Deployment to %s (project %s): %s", d.Environment, d.ProjectID, reason),
		Severity: severity,
		Source:   "deploy",
		Metadata: md,
	})
}
