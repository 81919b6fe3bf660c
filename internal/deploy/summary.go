package deploy

import (
	"time"

	"github.com/cameronsjo/deckhand/internal/cloud"
)

// StepKind names an update step.
type StepKind string

const (
	StepFiles  StepKind = "files"
	StepImage  StepKind = "image"
	StepConfig StepKind = "config"
)

// StepOutcome records one update step of a service.
type StepOutcome struct {
	Kind StepKind `json:"kind"`

	// Skipped is true when the manifest requested no update of this kind.
	Skipped bool `json:"skipped"`

	// DryRun is true when the update was logged but not sent.
	DryRun bool `json:"dryRun,omitempty"`

	Result cloud.Result `json:"result"`
}

// Failed reports whether the step was attempted and failed.
func (s StepOutcome) Failed() bool {
	return !s.Skipped && !s.DryRun && !s.Result.OK
}

// ServiceOutcome records every step of one service.
type ServiceOutcome struct {
	Name  string        `json:"name"`
	Steps []StepOutcome `json:"steps"`
}

// Failed returns the number of failed steps.
func (s ServiceOutcome) Failed() int {
	n := 0
	for _, step := range s.Steps {
		if step.Failed() {
			n++
		}
	}
	return n
}

// Step returns the outcome of the given kind.
func (s ServiceOutcome) Step(kind StepKind) (StepOutcome, bool) {
	for _, step := range s.Steps {
		if step.Kind == kind {
			return step, true
		}
	}
	return StepOutcome{}, false
}

// Summary is the outcome of a run.
type Summary struct {
	RunID       string        `json:"runId,omitempty"`
	Environment string        `json:"environment"`
	ProjectID   string        `json:"projectId"`
	Project     cloud.Project `json:"project"`

	// ProjectMissing is true when the existence check failed and no
	// service was processed.
	ProjectMissing bool   `json:"projectMissing"`
	ProjectReason  string `json:"projectReason,omitempty"`

	DryRun   bool             `json:"dryRun"`
	Services []ServiceOutcome `json:"services"`

	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Failed returns the number of failed steps across all services.
func (s *Summary) Failed() int {
	n := 0
	for _, svc := range s.Services {
		n += svc.Failed()
	}
	return n
}

// OK reports whether the project was found and every step succeeded.
func (s *Summary) OK() bool {
	return !s.ProjectMissing && s.Failed() == 0
}
