package runtimeinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRegisterUnregister(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 0, tr.Count())

	h1 := tr.Register("alice")
	h2 := tr.Register("bob")
	assert.Equal(t, 2, tr.Count())

	tr.Unregister(h1)
	assert.Equal(t, 1, tr.Count())

	snap := tr.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "bob", snap[0].Username)
	assert.GreaterOrEqual(t, snap[0].ConnectedFor, time.Duration(0))

	tr.Unregister(h2)
	assert.Equal(t, 0, tr.Count())
}

func TestTrackerUnregisterIsIdempotent(t *testing.T) {
	tr := NewTracker()
	h := tr.Register("alice")
	tr.Unregister(h)
	tr.Unregister(h)
	assert.Equal(t, 0, tr.Count())
}
