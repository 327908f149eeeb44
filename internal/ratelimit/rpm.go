// Package ratelimit provides the requests-per-minute gate shared by all
// agents of a running crew.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Controller throttles underlying agent calls to a maximum number of
// requests per minute. A nil Controller is a no-op gate, used when no
// limit is configured.
//
// The controller is started once before dispatch begins and stopped
// exactly once when the run finishes, success or failure.
type Controller struct {
	maxRPM  int
	mu      sync.Mutex
	limiter *rate.Limiter
	stopped bool
}

// New creates a Controller allowing at most maxRPM requests per minute.
// Returns nil if maxRPM is zero or negative, meaning unlimited.
func New(maxRPM int) *Controller {
	if maxRPM <= 0 {
		return nil
	}
	return &Controller{maxRPM: maxRPM}
}

// Start arms the gate. Acquire blocks callers until Start has been called.
func (c *Controller) Start() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.maxRPM)), c.maxRPM)
	c.stopped = false
}

// Acquire blocks until a request permit is available or the context is
// canceled. Safe to call on a nil or stopped controller, in which case it
// returns immediately.
func (c *Controller) Acquire(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	limiter := c.limiter
	stopped := c.stopped
	c.mu.Unlock()

	if limiter == nil || stopped {
		return nil
	}
	return limiter.Wait(ctx)
}

// Stop disarms the gate. Idempotent; later Acquire calls pass through.
func (c *Controller) Stop() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.limiter = nil
}

// MaxRPM returns the configured requests-per-minute limit, or 0 for a nil
// controller.
func (c *Controller) MaxRPM() int {
	if c == nil {
		return 0
	}
	return c.maxRPM
}
