// Package gascap implements the Usage Cap (spec section 4.4): a soft,
// per-sponsor daily spend admission gate checked at the top of
// reservation, never at submission time.
package gascap

import (
	"errors"
	"sync"
	"time"
)

// windowLength is the rolling accounting window; the spec requires
// only that it be 24h, not that it align to any wall-clock boundary.
const windowLength = 24 * time.Hour

// ErrCapExceeded is returned by Check when the sponsor's usage for the
// current window is at or above its daily limit.
var ErrCapExceeded = errors.New("gascap: daily usage cap exceeded")

// Cap tracks net gas usage against a daily limit for a single sponsor.
// The window starts on the first Update call, not at construction or
// process start — spec section 9 leaves this choice open and this is
// the simpler of the two to reason about from a cold start.
type Cap struct {
	mu          sync.Mutex
	dailyLimit  uint64
	windowStart time.Time
	usage       int64
}

// New returns a Cap enforcing dailyLimit net gas units per 24h window.
func New(dailyLimit uint64) *Cap {
	return &Cap{dailyLimit: dailyLimit}
}

// Check reports ErrCapExceeded if the sponsor's current-window usage
// is already at or beyond the daily limit. Called before any expensive
// work (signing, submission) — per spec section 4.4, the cap is
// evaluated only here, never re-checked once a reservation has reached
// its commit point.
func (c *Cap) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollIfElapsedLocked()
	if c.usage >= int64(c.dailyLimit) {
		return ErrCapExceeded
	}
	return nil
}

// Update adds a signed delta (a refund may be negative) to the current
// window's usage and returns the resulting total. The window starts on
// the first call to Update, not on Check; a window whose length has
// already elapsed rolls over to zero before the delta is applied, so a
// single large transaction at the start of a fresh window is still
// accounted for.
func (c *Cap) Update(netGasUsage int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.windowStart.IsZero() {
		c.windowStart = time.Now()
	} else {
		c.rollIfElapsedLocked()
	}
	c.usage += netGasUsage
	return c.usage
}

// rollIfElapsedLocked zeroes the window if its length has elapsed. It is
// a no-op before the first Update, since windowStart is zero and usage
// is already zero.
func (c *Cap) rollIfElapsedLocked() {
	if c.windowStart.IsZero() {
		return
	}
	if time.Since(c.windowStart) >= windowLength {
		c.windowStart = time.Now()
		c.usage = 0
	}
}
