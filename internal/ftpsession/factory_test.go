package ftpsession

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swftpgo/swftpgo/internal/runtimeinfo"
	"github.com/swftpgo/swftpgo/internal/sessionlimit"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
)

func TestFactoryNewShellRegistersAndReleases(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	f := &Factory{
		Auth: &swiftclient.Authenticator{
			AuthURL:   srv.URL + "/auth/v1.0",
			UserAgent: "swftpgo-test/1.0",
		},
		Limiter: sessionlimit.NewLimiter(1),
		Tracker: runtimeinfo.NewTracker(),
	}

	shell, err := f.NewShell(context.Background(), "tester", "key")
	require.NoError(t, err)
	assert.Equal(t, "tester", shell.Username())
	assert.Equal(t, 1, f.Tracker.Count())

	_, err = f.NewShell(context.Background(), "tester", "key")
	assert.Error(t, err, "expected the per-user session limit to reject a second login")

	f.Release(shell)
	assert.Equal(t, 0, f.Tracker.Count())

	shell2, err := f.NewShell(context.Background(), "tester", "key")
	require.NoError(t, err)
	f.Release(shell2)
}

func TestFactoryNewShellPropagatesAuthFailure(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	f := &Factory{
		Auth: &swiftclient.Authenticator{
			AuthURL:   srv.URL + "/does-not-exist",
			UserAgent: "swftpgo-test/1.0",
		},
	}

	_, err := f.NewShell(context.Background(), "tester", "key")
	assert.Error(t, err)
}
