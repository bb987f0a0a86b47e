// Package clock abstracts time so the match tick and the simulated
// responder delay can be driven by a virtual clock in tests instead of real
// sleeps.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop cancels the timer; it reports false when the callback already
	// fired or was stopped before.
	Stop() bool
}

// Clock provides current time and scheduling.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall-clock implementation.
type Real struct{}

// NewReal returns the wall clock.
func NewReal() *Real {
	return &Real{}
}

func (*Real) Now() time.Time {
	return time.Now().UTC()
}

func (*Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *Fake
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewFake starts a fake clock at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fake) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	timer := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, timer)
	c.mu.Unlock()
	return timer
}

// Advance moves the clock forward and fires every due timer in schedule
// order. Callbacks run synchronously on the caller's goroutine, and may
// schedule further timers that fire within the same advance.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		timer := c.nextDue(target)
		if timer == nil {
			break
		}
		timer.f()
	}

	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
}

func (c *Fake) nextDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.when.After(target) {
			pending = append(pending, timer)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].when.Before(pending[j].when)
	})
	due := pending[0]
	due.fired = true
	if due.when.After(c.now) {
		c.now = due.when
	}
	return due
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
