// Package players implements the global admission counter: a single
// integer guarded by an exclusion lock, with admission as an atomic
// test-and-increment against a configured maximum and decrement safe
// against underflow.
package players

import "sync"

// Counter tracks how many sessions currently occupy a global player slot.
type Counter struct {
	mu    sync.Mutex
	count int
	// max is the configured ceiling; a negative value means unlimited,
	// matching internal/config's convention for MaxPlayers.
	max int
}

// NewCounter returns a Counter admitting up to max concurrent players, or
// unlimited if max is negative.
func NewCounter(max int) *Counter {
	return &Counter{max: max}
}

// TryAdmit attempts to claim one slot. Returns false without side effects
// if the configured maximum has already been reached.
func (c *Counter) TryAdmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.max >= 0 && c.count >= c.max {
		return false
	}
	c.count++
	return true
}

// Release gives back one slot. Safe to call more times than TryAdmit
// succeeded; the count never goes negative.
func (c *Counter) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 {
		c.count--
	}
}

// Count reports the current census, for diagnostics.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
