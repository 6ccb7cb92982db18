package platform

import (
	"context"
	"sync"
	"time"

	"resumind/internal/host"
	"resumind/internal/shared/metrics"
	"resumind/internal/shared/telemetry"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollTimeout  = 10 * time.Second
)

// Controller waits, with a bounded deadline, for a host to appear in the
// resolver. It moves NotChecked -> Polling -> Ready|Failed exactly once.
type Controller struct {
	resolver host.Resolver
	interval time.Duration
	timeout  time.Duration
	clock    Clock

	onReady  func(ctx context.Context)
	onFailed func(cancelled bool)
	onChange func()

	mu     sync.Mutex
	state  Readiness
	cancel context.CancelFunc
	polls  int
	done   chan struct{}
}

// NewController builds a controller. Zero durations fall back to the defaults.
func NewController(resolver host.Resolver, interval, timeout time.Duration, clock Clock) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Controller{
		resolver: resolver,
		interval: interval,
		timeout:  timeout,
		clock:    clock,
		state:    NotChecked,
		done:     make(chan struct{}),
	}
}

// State returns the current readiness.
func (c *Controller) State() Readiness {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Polls returns how many interval checks have run.
func (c *Controller) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// Done is closed once a terminal state is reached and its hook has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Wait blocks until Done or ctx ends.
func (c *Controller) Wait(ctx context.Context) (Readiness, error) {
	select {
	case <-c.done:
		return c.State(), nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// Start begins detection. It is a no-op unless the state is NotChecked, so at
// most one polling goroutine ever runs.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != NotChecked {
		c.mu.Unlock()
		return
	}
	if _, ok := c.resolver.Resolve(); ok {
		c.state = Ready
		c.mu.Unlock()
		c.changed()
		go c.settled(ctx, Ready, 0, false)
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	c.state = Polling
	c.cancel = cancel
	c.mu.Unlock()
	c.changed()

	telemetry.Debug("platform.bootstrap.polling", map[string]any{
		"interval_ms": c.interval.Milliseconds(),
		"timeout_ms":  c.timeout.Milliseconds(),
	})
	go c.poll(ctx, pollCtx)
}

// Stop cancels an in-progress poll. The controller ends in Failed.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) poll(parent, ctx context.Context) {
	ticker := c.clock.NewTicker(c.interval)
	deadline := c.clock.NewTimer(c.timeout)
	defer c.cancel()

	finish := func(to Readiness, cancelled bool) {
		ticker.Stop()
		deadline.Stop()
		c.transition(parent, to, cancelled)
	}

	for {
		select {
		case <-ctx.Done():
			finish(Failed, true)
			return
		case <-ticker.C():
			c.mu.Lock()
			c.polls++
			c.mu.Unlock()
			if _, ok := c.resolver.Resolve(); ok {
				finish(Ready, false)
				return
			}
		case <-deadline.C():
			ticker.Stop()
			// one last look so a host that arrived with the deadline still counts
			if _, ok := c.resolver.Resolve(); ok {
				finish(Ready, false)
				return
			}
			finish(Failed, false)
			return
		}
	}
}

func (c *Controller) transition(ctx context.Context, to Readiness, cancelled bool) {
	c.mu.Lock()
	c.state = to
	polls := c.polls
	c.mu.Unlock()
	c.changed()
	c.settled(ctx, to, polls, cancelled)
}

func (c *Controller) settled(ctx context.Context, state Readiness, polls int, cancelled bool) {
	defer close(c.done)
	if state == Ready {
		metrics.IncBootstrapReady()
		telemetry.Info("platform.bootstrap.ready", map[string]any{"polls": polls})
		if c.onReady != nil {
			c.onReady(ctx)
		}
		return
	}
	metrics.IncBootstrapFailed()
	telemetry.Error("platform.bootstrap.failed", map[string]any{
		"polls":      polls,
		"timeout_ms": c.timeout.Milliseconds(),
		"cancelled":  cancelled,
	})
	if c.onFailed != nil {
		c.onFailed(cancelled)
	}
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
