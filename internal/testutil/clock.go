package testutil

import (
	"context"
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe monotonic wall clock for tests.
//
// Every call to Now() returns the previous time plus Step, so timestamps
// written by the store are strictly increasing and reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// Epoch is the default start time of a DeterministicClock.
var Epoch = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock at Epoch advancing one second per
// call.
//
// The first call to Now() returns Epoch+1s.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{start: Epoch, now: Epoch, step: time.Second}
}

// Now advances the clock by one step and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock to its start time.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}

// RecordingSleeper is a sleep function that returns immediately and
// remembers every requested duration. Its Sleep method matches the sleeper
// signature used by store.RetryPolicy and the import pipeline.
type RecordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// Sleep records d and returns ctx.Err().
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Calls returns a copy of the recorded durations.
func (s *RecordingSleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.calls))
	copy(out, s.calls)
	return out
}
