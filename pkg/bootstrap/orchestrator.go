// Package bootstrap drives a topology's routers through connect, render
// and stage, then commit or diff-and-discard. Each phase completes for
// every router before the next begins, and a failed phase ends the run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/device/sshcli"
	"github.com/newtron-network/newtboot/pkg/journal"
	"github.com/newtron-network/newtboot/pkg/metrics"
	"github.com/newtron-network/newtboot/pkg/render"
	"github.com/newtron-network/newtboot/pkg/topology"
	"github.com/newtron-network/newtboot/pkg/util"
)

// Phase names, as reported in errors, logs and metrics.
const (
	PhaseSetup   = "setup"
	PhaseConnect = "connect"
	PhaseStage   = "stage"
	PhaseCommit  = "commit"
	PhaseDiff    = "diff"
)

const (
	// journalTimeout bounds each journal write made from a state transition.
	journalTimeout = 5 * time.Second
	// lockMargin covers rendering, staging and commit after the connect phase.
	lockMargin = 15 * time.Minute
)

// LockTTL is the run lock lifetime for routers connected parallel at a
// time: every wave of the connect phase may spend a full boot timeout.
func LockTTL(routers, parallel int, bootTimeout time.Duration) time.Duration {
	if parallel < 1 {
		parallel = 1
	}
	waves := (routers + parallel - 1) / parallel
	if waves < 1 {
		waves = 1
	}
	return time.Duration(waves)*bootTimeout + lockMargin
}

// Options select what a run does.
type Options struct {
	WaitForBoot bool
	Commit      bool // render, stage and commit
	Diff        bool // render, stage, compare and discard

	// Parallel is the number of routers worked on at once within a phase.
	// 1 (or less) runs routers one at a time and stops at the first
	// failure; above 1 every router in the phase runs and all failures
	// are reported together.
	Parallel int

	// RenderDir, if set, receives <router>.cfg for every rendered router.
	RenderDir string

	Credentials device.Credentials
	Backoff     time.Duration // default device.DefaultBackoff
	BootTimeout time.Duration // default device.DefaultBootTimeout

	// Holder identifies this run in the journal lock.
	Holder string
}

// Orchestrator runs the bootstrap phases over a topology. Metrics is
// optional; a nil Journal records nothing.
type Orchestrator struct {
	Topology *topology.Topology
	Renderer render.Renderer
	Drivers  DriverFactory
	Resolver device.Resolver
	Journal  journal.Journal
	Metrics  *metrics.Metrics

	// RetryOn returns the retryable open failure kinds for a family.
	// Defaults to sshcli.RetryOn.
	RetryOn func(topology.Family) []error
}

// RouterResult is one router's outcome.
type RouterResult struct {
	Router  string       `json:"router"`
	Address string       `json:"address,omitempty"`
	State   device.State `json:"-"`
	Diff    string       `json:"diff,omitempty"`
}

// Result is a run's outcome in topology order. It is returned alongside a
// failure too, reflecting how far each router got.
type Result struct {
	Routers []RouterResult
}

// Diffs returns the routers that reported a non-empty diff.
func (r *Result) Diffs() []RouterResult {
	var out []RouterResult
	for _, rr := range r.Routers {
		if rr.Diff != "" {
			out = append(out, rr)
		}
	}
	return out
}

// Run executes the phases selected by opts.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (res *Result, err error) {
	if opts.Commit && opts.Diff {
		return nil, fmt.Errorf("bootstrap: commit and diff are mutually exclusive")
	}
	if o.Topology == nil || len(o.Topology.Routers) == 0 {
		return nil, fmt.Errorf("bootstrap: no routers")
	}
	if opts.BootTimeout <= 0 {
		opts.BootTimeout = device.DefaultBootTimeout
	}

	if o.Metrics != nil {
		defer func() { o.Metrics.RecordRun(time.Now(), err) }()
	}

	j := o.Journal
	if j == nil {
		j = journal.Noop{}
	}
	ttl := LockTTL(len(o.Topology.Routers), opts.Parallel, opts.BootTimeout)
	if err := j.Acquire(ctx, opts.Holder, ttl); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := j.Release(context.Background(), opts.Holder); err != nil {
			util.Warnf("Releasing run lock: %v", err)
		}
	}()

	util.WithFields(map[string]interface{}{
		"routers":  len(o.Topology.Routers),
		"parallel": opts.Parallel,
		"commit":   opts.Commit,
		"diff":     opts.Diff,
		"wait":     opts.WaitForBoot,
	}).Info("Starting bootstrap run")

	run := &run{o: o, journal: j, opts: opts, diffs: make([]string, len(o.Topology.Routers))}
	if err := run.setup(); err != nil {
		return nil, err
	}
	defer run.close()
	defer func() { res = run.result() }()

	if err := run.phase(ctx, PhaseConnect, run.connect); err != nil {
		return nil, err
	}
	if !opts.Commit && !opts.Diff {
		return nil, nil
	}
	if err := run.phase(ctx, PhaseStage, run.stage); err != nil {
		return nil, err
	}
	if opts.Commit {
		return nil, run.phase(ctx, PhaseCommit, run.commit)
	}
	return nil, run.phase(ctx, PhaseDiff, run.diff)
}

// run is the state of one Orchestrator.Run.
type run struct {
	o           *Orchestrator
	journal     journal.Journal
	opts        Options
	controllers []*device.Controller
	diffs       []string
}

func (r *run) setup() error {
	retryOn := r.o.RetryOn
	if retryOn == nil {
		retryOn = sshcli.RetryOn
	}

	var failures []*util.RouterError
	for _, router := range r.o.Topology.Routers {
		drv, err := r.o.Drivers(router)
		if err != nil {
			failures = append(failures, util.NewRouterError(router.Name, PhaseSetup, err))
			continue
		}
		r.controllers = append(r.controllers, device.NewController(router, drv, r.o.Resolver, device.Options{
			Credentials:  r.opts.Credentials,
			RetryOn:      retryOn(router.Family()),
			Backoff:      r.opts.Backoff,
			BootTimeout:  r.opts.BootTimeout,
			OnTransition: r.onTransition,
			OnAttempt:    r.onAttempt,
		}))
	}
	if len(failures) > 0 {
		return &PhaseError{Phase: PhaseSetup, Failures: failures}
	}
	return nil
}

func (r *run) onTransition(router string, from, to device.State) {
	if r.o.Metrics != nil {
		r.o.Metrics.RecordTransition(router, from, to)
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := r.journal.Record(ctx, router, to); err != nil {
		util.WithRouter(router).Warnf("Journal record failed: %v", err)
	}
}

func (r *run) onAttempt(router string, err error) {
	if r.o.Metrics != nil {
		r.o.Metrics.RecordAttempt(router, err)
	}
}

// phase applies fn to every controller and joins before returning.
func (r *run) phase(ctx context.Context, name string, fn func(ctx context.Context, i int, c *device.Controller) error) error {
	log := util.WithPhase(name)
	log.Infof("Starting on %d routers", len(r.controllers))
	start := time.Now()

	var failures []*util.RouterError
	if r.opts.Parallel <= 1 {
		for i, c := range r.controllers {
			if err := fn(ctx, i, c); err != nil {
				failures = append(failures, util.NewRouterError(c.Router.Name, name, err))
				break
			}
		}
	} else {
		errs := make([]error, len(r.controllers))
		var g errgroup.Group
		g.SetLimit(r.opts.Parallel)
		for i, c := range r.controllers {
			i, c := i, c
			g.Go(func() error {
				errs[i] = fn(ctx, i, c)
				return errs[i]
			})
		}
		g.Wait()
		for i, err := range errs {
			if err != nil {
				failures = append(failures, util.NewRouterError(r.controllers[i].Router.Name, name, err))
			}
		}
	}

	elapsed := time.Since(start)
	if r.o.Metrics != nil {
		r.o.Metrics.ObservePhase(name, elapsed, len(failures))
	}
	if len(failures) > 0 {
		log.Warnf("Failed on %d routers after %s", len(failures), elapsed.Round(time.Millisecond))
		return &PhaseError{Phase: name, Failures: failures}
	}
	log.Infof("Completed in %s", elapsed.Round(time.Millisecond))
	return nil
}

func (r *run) connect(ctx context.Context, _ int, c *device.Controller) error {
	return c.Connect(ctx, r.opts.WaitForBoot)
}

func (r *run) stage(ctx context.Context, _ int, c *device.Controller) error {
	text, err := render.Router(r.o.Renderer, c.Router)
	if err != nil {
		return err
	}
	if r.opts.RenderDir != "" {
		if err := writeRendered(r.opts.RenderDir, c.Router.Name, text); err != nil {
			return err
		}
	}
	return c.Stage(ctx, text)
}

func (r *run) commit(ctx context.Context, _ int, c *device.Controller) error {
	return c.Commit(ctx)
}

func (r *run) diff(ctx context.Context, i int, c *device.Controller) error {
	diff, err := c.Compare(ctx)
	if err != nil {
		return err
	}
	r.diffs[i] = diff
	return c.Discard(ctx)
}

func (r *run) close() {
	for _, c := range r.controllers {
		if err := c.Close(); err != nil {
			util.WithRouter(c.Router.Name).Warnf("Closing session: %v", err)
		}
	}
}

func (r *run) result() *Result {
	res := &Result{}
	for i, c := range r.controllers {
		res.Routers = append(res.Routers, RouterResult{
			Router:  c.Router.Name,
			Address: c.Address(),
			State:   c.State(),
			Diff:    r.diffs[i],
		})
	}
	return res
}

func writeRendered(dir, router, text string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("render dir: %w", err)
	}
	path := filepath.Join(dir, router+".cfg")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Failed reports the routers named in err's phase failures, if any.
func Failed(err error) []string {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Routers()
	}
	return nil
}
