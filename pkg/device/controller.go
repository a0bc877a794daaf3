package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newtron-network/newtboot/pkg/topology"
	"github.com/newtron-network/newtboot/pkg/util"
)

const (
	// DefaultBackoff is the pause between boot-wait open attempts.
	DefaultBackoff = 2 * time.Second
	// DefaultBootTimeout caps the elapsed boot-wait retry time per router.
	DefaultBootTimeout = 15 * time.Minute
)

// Options configure a Controller.
type Options struct {
	Credentials Credentials

	// RetryOn lists the error kinds (matched with errors.Is) that mean
	// "not reachable yet" for this router's driver family.
	RetryOn []error

	Backoff     time.Duration // default DefaultBackoff
	BootTimeout time.Duration // default DefaultBootTimeout

	// OnTransition is called after every state change.
	OnTransition func(router string, from, to State)
	// OnAttempt is called after every open attempt with its result.
	OnAttempt func(router string, err error)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) setDefaults() {
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	if o.BootTimeout <= 0 {
		o.BootTimeout = DefaultBootTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
}

// Controller owns one router's driver session and lifecycle state.
type Controller struct {
	Router *topology.Router

	driver   Driver
	resolver Resolver
	opts     Options

	mu    sync.Mutex
	state State
	addr  string
}

// NewController creates a controller in StateDisconnected.
func NewController(r *topology.Router, driver Driver, resolver Resolver, opts Options) *Controller {
	opts.setDefaults()
	return &Controller{
		Router:   r,
		driver:   driver,
		resolver: resolver,
		opts:     opts,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Address returns the resolved address once connected.
func (c *Controller) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Connect resolves the router's address and opens a driver session. With
// waitForBoot, open failures matching Options.RetryOn are retried every
// Backoff. BootTimeout is a hard ceiling: every attempt runs under a
// context that expires at it, no backoff sleep crosses it, and reaching it
// fails with ErrConnectTimeout. Connecting an already connected router is
// a no-op.
func (c *Controller) Connect(ctx context.Context, waitForBoot bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connect(ctx, waitForBoot)
}

func (c *Controller) connect(ctx context.Context, waitForBoot bool) error {
	if c.state >= StateConnected {
		return nil
	}
	c.transition(StateConnecting)

	addr, err := c.resolver.Resolve(ctx, c.Router.Name)
	if err != nil {
		if !errors.Is(err, util.ErrAddressResolution) {
			err = fmt.Errorf("%w: %s: %w", util.ErrAddressResolution, c.Router.Name, err)
		}
		return err
	}
	if err := c.open(ctx, addr, waitForBoot); err != nil {
		return err
	}

	c.addr = addr
	c.transition(StateConnected)
	util.WithRouter(c.Router.Name).Infof("Connected to %s", addr)
	return nil
}

func (c *Controller) open(ctx context.Context, addr string, waitForBoot bool) error {
	log := util.WithRouter(c.Router.Name)
	start := c.opts.now()

	for attempt := 1; ; attempt++ {
		openCtx, cancel := ctx, context.CancelFunc(func() {})
		if waitForBoot {
			// Each attempt only gets what is left of the ceiling.
			openCtx, cancel = context.WithTimeout(ctx, c.opts.BootTimeout-c.opts.now().Sub(start))
		}
		err := c.driver.Open(openCtx, addr, c.opts.Credentials)
		cutOff := waitForBoot && ctx.Err() == nil &&
			(openCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded))
		cancel()

		if c.opts.OnAttempt != nil {
			c.opts.OnAttempt(c.Router.Name, err)
		}
		elapsed := c.opts.now().Sub(start)
		if err == nil {
			if waitForBoot && elapsed > c.opts.BootTimeout {
				c.driver.Close()
				return c.timeout(elapsed, attempt, errors.New("session opened past the deadline"))
			}
			return nil
		}
		if cutOff {
			return c.timeout(elapsed, attempt, err)
		}
		if !waitForBoot || !c.retryable(err) {
			return util.NewDriverError(c.Router.Name, "open", err)
		}
		if elapsed+c.opts.Backoff >= c.opts.BootTimeout {
			return c.timeout(elapsed, attempt, err)
		}
		log.Infof("Not reachable yet (attempt %d, %s elapsed): %v", attempt, elapsed.Round(time.Second), err)

		if err := c.opts.sleep(ctx, c.opts.Backoff); err != nil {
			return fmt.Errorf("boot wait for %s: %w", c.Router.Name, err)
		}
	}
}

func (c *Controller) timeout(elapsed time.Duration, attempts int, last error) error {
	return fmt.Errorf("%w: %s not reachable within %s (%d attempts, %s elapsed): %v",
		util.ErrConnectTimeout, c.Router.Name, c.opts.BootTimeout, attempts, elapsed.Round(time.Second), last)
}

func (c *Controller) retryable(err error) bool {
	for _, kind := range c.opts.RetryOn {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Stage loads config as the candidate configuration. A router that was
// never connected is connected first without boot wait.
func (c *Controller) Stage(ctx context.Context, config string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		if err := c.connect(ctx, false); err != nil {
			return err
		}
	}
	switch {
	case c.state < StateConnected:
		return util.NewStateError(c.Router.Name, "stage", c.state.String(), util.ErrNotConnected)
	case c.state == StateStaged:
		return util.NewStateError(c.Router.Name, "stage", c.state.String(), util.ErrAlreadyStaged)
	case c.state.Final():
		return util.NewStateError(c.Router.Name, "stage", c.state.String(), util.ErrAlreadyFinal)
	}

	if err := c.driver.LoadCandidate(ctx, config); err != nil {
		return util.NewDriverError(c.Router.Name, "load candidate", err)
	}
	c.transition(StateStaged)
	return nil
}

// Commit commits the staged candidate.
func (c *Controller) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStaged("commit"); err != nil {
		return err
	}
	if err := c.driver.Commit(ctx); err != nil {
		return util.NewDriverError(c.Router.Name, "commit", err)
	}
	c.transition(StateCommitted)
	return nil
}

// Discard drops the staged candidate.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStaged("discard"); err != nil {
		return err
	}
	if err := c.driver.Discard(ctx); err != nil {
		return util.NewDriverError(c.Router.Name, "discard", err)
	}
	c.transition(StateDiscarded)
	return nil
}

// Compare returns the difference between the staged candidate and the
// running configuration. State is unchanged.
func (c *Controller) Compare(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireStaged("compare"); err != nil {
		return "", err
	}
	diff, err := c.driver.Compare(ctx)
	if err != nil {
		return "", util.NewDriverError(c.Router.Name, "compare", err)
	}
	return diff, nil
}

// Close releases the driver session. State is unchanged.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state < StateConnected {
		return nil
	}
	return c.driver.Close()
}

func (c *Controller) requireStaged(op string) error {
	switch {
	case c.state < StateStaged:
		return util.NewStateError(c.Router.Name, op, c.state.String(), util.ErrNotStaged)
	case c.state.Final():
		return util.NewStateError(c.Router.Name, op, c.state.String(), util.ErrAlreadyFinal)
	}
	return nil
}

func (c *Controller) transition(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	util.WithRouter(c.Router.Name).Debugf("State %s -> %s", from, to)
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(c.Router.Name, from, to)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
