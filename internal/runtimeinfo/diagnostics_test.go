package runtimeinfo

import (
	"context"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHandlersInstallRespondsToSIGUSR1(t *testing.T) {
	tr := NewTracker()
	tr.Register("alice")

	h := &Handlers{Tracker: tr, Logger: slog.Default()}

	ctx, cancel := context.WithCancel(context.Background())
	stop := h.Install(ctx)

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	time.Sleep(20 * time.Millisecond)

	cancel()
	stop()
}
