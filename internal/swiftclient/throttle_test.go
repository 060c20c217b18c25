package swiftclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleSetLimitsConcurrency(t *testing.T) {
	const capacity = 3
	const workers = 20

	set := ThrottleSet{NewCountingThrottle(capacity)}

	var inFlight, maxObserved atomic.Int32

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ctx := context.Background()
			assert.NoError(t, set.Acquire(ctx))

			n := inFlight.Add(1)
			for {
				old := maxObserved.Load()
				if n <= old || maxObserved.CompareAndSwap(old, n) {
					break
				}
			}

			time.Sleep(2 * time.Millisecond)
			inFlight.Add(-1)
			set.Release()
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, maxObserved.Load(), int32(capacity))
}

func TestThrottleSetEmptySetNeverBlocks(t *testing.T) {
	var set ThrottleSet

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.NoError(t, set.Acquire(ctx))
	set.Release()
}
