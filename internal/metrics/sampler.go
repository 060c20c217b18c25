package metrics

import (
	"context"
	"time"
)

// RunSampler rotates every rolling window once per tick until ctx is
// canceled. Run it once per process in a goroutine; it is the Go
// equivalent of the original's 1 Hz reactor.callLater sampling loop.
func (r *Registry) RunSampler(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = time.Second
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			windows := make([]*rollingWindow, 0, len(r.windows))
			for _, w := range r.windows {
				windows = append(windows, w)
			}
			r.mu.Unlock()

			for _, w := range windows {
				w.rotate()
			}
		}
	}
}
