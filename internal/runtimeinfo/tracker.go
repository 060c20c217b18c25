// Package runtimeinfo implements the SIGUSR1/SIGUSR2 diagnostics dump
// described in SPEC_FULL.md §12, grounded on
// original_source/swftp/utils.py's print_runtime_info: a process-wide
// snapshot of active sessions, in-flight backend requests, and goroutine
// count, logged on demand without restarting the daemon.
package runtimeinfo

import (
	"sync"
	"time"
)

// Handle identifies one registered session for later Unregister calls.
type Handle uint64

type sessionRecord struct {
	username string
	start    time.Time
}

// Tracker records the set of currently active protocol sessions across
// one daemon process. One Tracker is shared by every connection a daemon
// accepts.
type Tracker struct {
	mu       sync.Mutex
	sessions map[Handle]sessionRecord
	nextID   Handle
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[Handle]sessionRecord)}
}

// Register records a newly authenticated session for username, returning
// a Handle to pass to Unregister at logout/disconnect.
func (t *Tracker) Register(username string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	h := t.nextID
	t.sessions[h] = sessionRecord{username: username, start: time.Now()}

	return h
}

// Unregister removes a previously registered session. Safe to call more
// than once for the same handle.
func (t *Tracker) Unregister(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, h)
}

// Count returns the number of currently registered sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.sessions)
}

// SessionSummary is one line of the SIGUSR2 per-session dump.
type SessionSummary struct {
	Username     string
	ConnectedFor time.Duration
}

// Snapshot returns a summary of every currently registered session, for
// the SIGUSR2 detailed dump.
func (t *Tracker) Snapshot() []SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	out := make([]SessionSummary, 0, len(t.sessions))

	for _, rec := range t.sessions {
		out = append(out, SessionSummary{Username: rec.username, ConnectedFor: now.Sub(rec.start)})
	}

	return out
}
