// Package deploy walks a manifest environment and pushes each service to
// the deployment API.
//
// The walk is strictly sequential. For every service it runs files, then
// image, then the pacing delay, then config. A failed step is logged and
// the walk moves on; only environment resolution can abort a run.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cameronsjo/deckhand/internal/cloud"
	"github.com/cameronsjo/deckhand/internal/config"
	"github.com/cameronsjo/deckhand/internal/manifest"
	"github.com/cameronsjo/deckhand/internal/ui"
)

// ErrNilManifest is returned when Run is given no manifest.
var ErrNilManifest = errors.New("no manifest loaded")

// Walker runs deployments.
type Walker struct {
	client Deployer
	sleep  Sleeper
	log    ui.Logger
	pace   time.Duration
	dryRun bool
	runID  string
	now    func() time.Time
}

// Option is a functional option for configuring the Walker.
type Option func(*Walker)

// WithSleeper sets the Sleeper used for the pacing delay.
func WithSleeper(s Sleeper) Option {
	return func(w *Walker) {
		w.sleep = s
	}
}

// WithPace sets the delay between the image and config phases.
func WithPace(d time.Duration) Option {
	return func(w *Walker) {
		w.pace = d
	}
}

// WithLogger sets the Logger.
func WithLogger(l ui.Logger) Option {
	return func(w *Walker) {
		w.log = l
	}
}

// WithDryRun logs updates instead of sending them.
func WithDryRun(dryRun bool) Option {
	return func(w *Walker) {
		w.dryRun = dryRun
	}
}

// WithRunID tags the Summary with a run identifier.
func WithRunID(id string) Option {
	return func(w *Walker) {
		w.runID = id
	}
}

// WithClock sets the time source used for the Summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Walker) {
		w.now = now
	}
}

// New creates a Walker that sends updates through client.
func New(client Deployer, opts ...Option) *Walker {
	w := &Walker{
		client: client,
		sleep:  TimerSleeper{},
		log:    ui.NewConsoleLogger(io.Discard, false),
		pace:   config.DefaultPace,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run deploys the environment named target.
//
// A resolution failure is returned before any request is sent. A missing
// project is logged and reported in the Summary with a nil error, as are
// failed update steps.
func (w *Walker) Run(ctx context.Context, m *manifest.Manifest, target string) (*Summary, error) {
	if m == nil {
		return nil, ErrNilManifest
	}

	w.log.Info("Deploying pipeline for environment: %s", target)

	env, err := m.Resolve(target)
	if err != nil {
		return nil, err
	}

	start := w.now()
	summary := &Summary{
		RunID:       w.runID,
		Environment: env.Name,
		ProjectID:   env.ProjectID,
		DryRun:      w.dryRun,
		Started:     start,
		Services:    make([]ServiceOutcome, 0, len(env.Services)),
	}
	defer func() {
		summary.Duration = w.now().Sub(start)
	}()

	project, res := w.client.ProjectExists(ctx, env.ProjectID)
	if !res.OK {
		w.log.Error("Project with id: %s does not exist: %s", env.ProjectID, res.Reason)
		summary.ProjectMissing = true
		summary.ProjectReason = res.Reason
		return summary, nil
	}
	summary.Project = project

	w.log.Info("project: %s, organization: %s, stack: %s", project.Name, project.Organization, project.Stack)
	w.log.Info("Deploying pipeline for project: %s with id: %s", env.Name, env.ProjectID)

	for _, svc := range env.Services {
		summary.Services = append(summary.Services, w.deployService(ctx, env.ProjectID, svc))
	}

	if failed := summary.Failed(); failed > 0 {
		w.log.Warn("Environment %s deployed with %d failed step(s)", env.Name, failed)
	} else {
		w.log.Success("Environment %s deployed", env.Name)
	}

	return summary, nil
}

// deployService runs the steps of one service in order: files, image,
// pacing delay, config. The delay is unconditional.
func (w *Walker) deployService(ctx context.Context, projectID string, svc manifest.Service) ServiceOutcome {
	end := w.log.Group("Service: " + svc.Name)
	defer end()

	w.log.Info("Service name: %s", svc.Name)
	if svc.IsEmpty() {
		w.log.Info("Nothing to deploy for service: %s", svc.Name)
	}

	out := ServiceOutcome{Name: svc.Name}

	out.Steps = append(out.Steps, w.step(StepFiles, svc, !svc.HasFiles(), func() cloud.Result {
		return w.client.UpdateFiles(ctx, projectID, svc.Name, svc.Files)
	}))

	out.Steps = append(out.Steps, w.step(StepImage, svc, !svc.HasImage(), func() cloud.Result {
		return w.client.UpdateImage(ctx, projectID, svc.Name, svc.Image)
	}))

	if w.dryRun {
		w.log.Info("Would wait %s before config update", w.pace)
	} else {
		w.log.Debug("Waiting %s before config update", w.pace)
		w.sleep.Sleep(ctx, w.pace)
	}

	out.Steps = append(out.Steps, w.step(StepConfig, svc, !svc.HasConfig(), func() cloud.Result {
		return w.client.UpdateConfig(ctx, projectID, svc.Name, svc.Config)
	}))

	return out
}

// step runs one update unless it is skipped or the walker is in dry-run mode.
func (w *Walker) step(kind StepKind, svc manifest.Service, skip bool, send func() cloud.Result) StepOutcome {
	if skip {
		w.log.Debug("No %s update for service: %s", kind, svc.Name)
		return StepOutcome{Kind: kind, Skipped: true}
	}

	w.log.Debug("Updating %s for service: %s (%s)", kind, svc.Name, describe(kind, svc))

	if w.dryRun {
		w.log.Info("Would update %s for service: %s (%s)", kind, svc.Name, describe(kind, svc))
		return StepOutcome{Kind: kind, DryRun: true}
	}

	res := send()
	if res.OK {
		w.log.Success("Updated %s for service: %s", kind, svc.Name)
	} else {
		w.log.Error("Failed to update %s for service: %s: %s", kind, svc.Name, res.Reason)
	}
	return StepOutcome{Kind: kind, Result: res}
}

// describe renders the requested value of a step for log lines.
func describe(kind StepKind, svc manifest.Service) string {
	switch kind {
	case StepFiles:
		labels := make([]string, len(svc.Files))
		for i, f := range svc.Files {
			labels[i] = f.Label
		}
		return strings.Join(labels, ", ")
	case StepImage:
		return svc.Image
	case StepConfig:
		data, err := json.Marshal(svc.Config)
		if err != nil {
			return "unencodable config"
		}
		return string(data)
	default:
		return ""
	}
}
