package runtimeinfo

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// Handlers owns the signal registration that drives the diagnostics dump.
type Handlers struct {
	Tracker *Tracker
	Backend *CountingTransport
	Logger  *slog.Logger
}

// Install registers SIGUSR1/SIGUSR2 handlers and returns a stop function
// that deregisters them. SIGUSR1 logs process-wide counts; SIGUSR2 logs
// the same counts plus one line per active session, matching
// print_runtime_info's sig == signal.SIGUSR2 branch.
func (h *Handlers) Install(ctx context.Context) (stop func()) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				h.dump(logger, sig == syscall.SIGUSR2)
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		<-done
	}
}

func (h *Handlers) dump(logger *slog.Logger, detailed bool) {
	sessions := h.Tracker.Count()

	var inFlight int64
	if h.Backend != nil {
		inFlight = h.Backend.InFlight()
	}

	logger.Info("runtime diagnostics",
		"sessions", sessions,
		"backend_requests_in_flight", inFlight,
		"goroutines", runtime.NumGoroutine(),
	)

	if !detailed {
		return
	}

	for _, s := range h.Tracker.Snapshot() {
		logger.Info("runtime diagnostics: session",
			"username", s.Username,
			"connected_for", s.ConnectedFor.String(),
		)
	}
}
