package swiftclient

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Throttle is a single acquirable capability with capacity >= 1 — the
// unification the design notes call for: a mutex is just a throttle with
// capacity 1, a counting semaphore is a throttle with capacity N.
type Throttle interface {
	Acquire(ctx context.Context) error
	Release()
}

// countingThrottle wraps golang.org/x/sync/semaphore.Weighted.
type countingThrottle struct {
	sem *semaphore.Weighted
}

// NewCountingThrottle returns a Throttle with the given capacity. Capacity
// must be >= 1; callers configuring capacity 0 should omit the throttle
// from the set entirely rather than constructing one.
func NewCountingThrottle(capacity int64) Throttle {
	return &countingThrottle{sem: semaphore.NewWeighted(capacity)}
}

func (t *countingThrottle) Acquire(ctx context.Context) error {
	return t.sem.Acquire(ctx, 1)
}

func (t *countingThrottle) Release() {
	t.sem.Release(1)
}

// ThrottleSet is an ordered list of throttling primitives. Before each
// request all are acquired in list order; after the response completes
// (success or failure) all are released, order irrelevant. An empty set
// acquires and releases nothing — the usual case when both
// num_connections_per_session and num_persistent_connections are 0.
//
// Invariant upheld by every caller in this package: throttles are always
// acquired in the same declared order, so a holder of an earlier throttle
// never waits on a later one elsewhere — this excludes deadlock without
// needing acquire timeouts.
type ThrottleSet []Throttle

// Acquire acquires every throttle in order, releasing any already-acquired
// ones if a later acquire fails or the context is canceled.
func (s ThrottleSet) Acquire(ctx context.Context) error {
	for i, t := range s {
		if err := t.Acquire(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				s[j].Release()
			}

			return err
		}
	}

	return nil
}

// Release releases every throttle in the set; order does not matter.
func (s ThrottleSet) Release() {
	for _, t := range s {
		t.Release()
	}
}
