package swiftclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccessEmitsCounter(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storage-Url", srv.URL+"/v1/AUTH_tester")
		w.Header().Set("X-Auth-Token", "tok-1")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	var succeeded, failed int

	a := &Authenticator{
		AuthURL:     srv.URL,
		UserAgent:   "swftpgo-test/1.0",
		AuthSucceed: func() { succeeded++ },
		AuthFail:    func() { failed++ },
	}

	conn, err := a.Login(context.Background(), Credentials{Username: "tester", APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, "tester", conn.Username())
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, failed)
}

func TestLoginFailureEmitsFailCounterAndSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	var succeeded, failed int

	a := &Authenticator{
		AuthURL:     srv.URL,
		UserAgent:   "swftpgo-test/1.0",
		AuthSucceed: func() { succeeded++ },
		AuthFail:    func() { failed++ },
	}

	_, err := a.Login(context.Background(), Credentials{Username: "tester", APIKey: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorizedLogin)
	assert.Equal(t, 0, succeeded)
	assert.Equal(t, 1, failed)
}

func TestLoginBuildsOrderedThrottleList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storage-Url", "http://ignored")
		w.Header().Set("X-Auth-Token", "tok-1")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	a := &Authenticator{AuthURL: srv.URL, UserAgent: "t", PerSessionConcurrency: 2, GlobalConcurrency: 5}

	conn, err := a.Login(context.Background(), Credentials{Username: "u", APIKey: "k"})
	require.NoError(t, err)
	require.Len(t, conn.throttles, 2)
}

// TestLoginSharesOneGlobalThrottleAcrossConcurrentFirstLogins guards
// against two simultaneous first logins each constructing their own
// process-wide semaphore: if that happened, requests would be split
// across two independent capacity-N throttles and could jointly exceed
// GlobalConcurrency in-flight requests at the backend (spec.md §8).
func TestLoginSharesOneGlobalThrottleAcrossConcurrentFirstLogins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storage-Url", "http://ignored")
		w.Header().Set("X-Auth-Token", "tok-1")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	a := &Authenticator{AuthURL: srv.URL, UserAgent: "t", GlobalConcurrency: 5}

	const n = 20

	conns := make([]*Connection, n)

	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i

		go func() {
			defer wg.Done()

			conn, err := a.Login(context.Background(), Credentials{Username: "u", APIKey: "k"})
			require.NoError(t, err)

			conns[i] = conn
		}()
	}

	wg.Wait()

	first := conns[0].throttles[0]
	for _, conn := range conns[1:] {
		assert.Same(t, first, conn.throttles[0], "every connection must share the same process-wide throttle instance")
	}
}
