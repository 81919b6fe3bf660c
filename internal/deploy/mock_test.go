package deploy

import (
	"context"
	"time"

	"github.com/cameronsjo/deckhand/internal/cloud"
	"github.com/cameronsjo/deckhand/internal/manifest"
)

// call records one interaction with the fakes, in order.
type call struct {
	Op      string
	Service string
	Arg     string
	At      time.Duration
}

// fakeClock is a manual time source shared by the fakes.
type fakeClock struct {
	start   time.Time
	elapsed time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.start.Add(c.elapsed)
}

// recorder collects calls from the fake deployer and sleeper.
type recorder struct {
	clock *fakeClock
	calls []call
}

func (r *recorder) record(op, service, arg string) {
	r.calls = append(r.calls, call{Op: op, Service: service, Arg: arg, At: r.clock.elapsed})
}

// fakeDeployer implements Deployer for tests.
type fakeDeployer struct {
	rec *recorder

	project       cloud.Project
	projectResult cloud.Result

	// fileResults is keyed by file label; missing labels succeed.
	fileResults  map[string]cloud.Result
	imageResult  *cloud.Result
	configResult *cloud.Result

	configs []any
}

func newFakeDeployer(rec *recorder) *fakeDeployer {
	return &fakeDeployer{
		rec:           rec,
		project:       cloud.Project{Name: "rollup", Organization: "acme", Stack: "madara"},
		projectResult: cloud.Success(200),
	}
}

func (f *fakeDeployer) ProjectExists(_ context.Context, projectID string) (cloud.Project, cloud.Result) {
	f.rec.record("get-project", "", projectID)
	if !f.projectResult.OK {
		return cloud.Project{}, f.projectResult
	}
	return f.project, f.projectResult
}

func (f *fakeDeployer) UpdateFiles(_ context.Context, _, serviceName string, files []manifest.File) cloud.Result {
	var failed bool
	for _, file := range files {
		f.rec.record("file", serviceName, file.Label)
		if res, ok := f.fileResults[file.Label]; ok && !res.OK {
			failed = true
		}
	}
	if failed {
		return cloud.Failure(500, "upload failed")
	}
	return cloud.Success(200)
}

func (f *fakeDeployer) UpdateImage(_ context.Context, _, serviceName, image string) cloud.Result {
	f.rec.record("image", serviceName, image)
	if f.imageResult != nil {
		return *f.imageResult
	}
	return cloud.Success(200)
}

func (f *fakeDeployer) UpdateConfig(_ context.Context, _, serviceName string, config any) cloud.Result {
	f.rec.record("config", serviceName, "")
	f.configs = append(f.configs, config)
	if f.configResult != nil {
		return *f.configResult
	}
	return cloud.Success(200)
}

// fakeSleeper advances the fake clock instead of blocking.
type fakeSleeper struct {
	rec *recorder
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) {
	s.rec.record("sleep", "", d.String())
	s.rec.clock.elapsed += d
}

// harness wires a walker to fakes.
type harness struct {
	rec      *recorder
	deployer *fakeDeployer
	walker   *Walker
}

func newHarness(opts ...Option) *harness {
	clock := newFakeClock()
	rec := &recorder{clock: clock}
	deployer := newFakeDeployer(rec)

	all := append([]Option{
		WithSleeper(&fakeSleeper{rec: rec}),
		WithClock(clock.Now),
	}, opts...)

	return &harness{
		rec:      rec,
		deployer: deployer,
		walker:   New(deployer, all...),
	}
}
