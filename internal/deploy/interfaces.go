package deploy

import (
	"context"
	"time"

	"github.com/cameronsjo/deckhand/internal/cloud"
	"github.com/cameronsjo/deckhand/internal/manifest"
)

// Deployer defines the remote deployment operations.
type Deployer interface {
	// ProjectExists checks the project and returns its metadata.
	ProjectExists(ctx context.Context, projectID string) (cloud.Project, cloud.Result)

	// UpdateFiles uploads every file, attempting all of them.
	UpdateFiles(ctx context.Context, projectID, serviceName string, files []manifest.File) cloud.Result

	// UpdateImage replaces the running image.
	UpdateImage(ctx context.Context, projectID, serviceName, image string) cloud.Result

	// UpdateConfig replaces the service configuration.
	UpdateConfig(ctx context.Context, projectID, serviceName string, config any) cloud.Result
}

// Sleeper blocks for the pacing delay.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Compile-time interface verification.
var (
	_ Deployer = (*cloud.Client)(nil)
	_ Sleeper  = TimerSleeper{}
)
