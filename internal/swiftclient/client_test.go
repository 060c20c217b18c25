package swiftclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T, handler http.HandlerFunc) (*Connection, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conn := NewConnection(srv.URL+"/auth/v1.0", "tester", "key", nil, "swftpgo-test/1.0", nil, srv.Client(), nil, nil)

	return conn, srv
}

func TestAuthenticateStoresStorageURLAndToken(t *testing.T) {
	conn, srv := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tester", r.Header.Get("X-Auth-User"))
		assert.Equal(t, "key", r.Header.Get("X-Auth-Key"))
		w.Header().Set("X-Storage-Url", "http://backend.example/v1/AUTH_tester")
		w.Header().Set("X-Auth-Token", "tok-1")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, conn.Authenticate(context.Background()))
	assert.Equal(t, "http://backend.example/v1/AUTH_tester", conn.currentStorageURL())
	assert.Equal(t, "tok-1", conn.currentToken())
	_ = srv
}

func TestDoRetriesOnceOnAuthExpiry(t *testing.T) {
	var authCalls, reqCalls atomic.Int32

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1.0" {
			authCalls.Add(1)
			w.Header().Set("X-Storage-Url", srv.URL+"/v1/AUTH_tester")
			w.Header().Set("X-Auth-Token", "tok-"+string(rune('0'+authCalls.Load())))
			w.WriteHeader(http.StatusOK)

			return
		}

		n := reqCalls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		assert.Equal(t, "tok-2", r.Header.Get("X-Auth-Token"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	conn := NewConnection(srv.URL+"/auth/v1.0", "tester", "key", nil, "swftpgo-test/1.0", nil, srv.Client(), nil, nil)
	require.NoError(t, conn.Authenticate(context.Background()))

	_, err := conn.HeadAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), reqCalls.Load())
	assert.Equal(t, int32(2), authCalls.Load())
}

func TestGetContainerDecodesListing(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1.0" {
			w.Header().Set("X-Storage-Url", srv.URL+"/v1/AUTH_tester")
			w.Header().Set("X-Auth-Token", "tok-1")
			w.WriteHeader(http.StatusOK)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"a.txt","bytes":10,"content_type":"text/plain","last_modified":"2020-01-01T00:00:00.000000","hash":"abc"},{"subdir":"dir/"}]`))
	}))
	t.Cleanup(srv.Close)

	conn := NewConnection(srv.URL+"/auth/v1.0", "tester", "key", nil, "swftpgo-test/1.0", nil, srv.Client(), nil, nil)
	require.NoError(t, conn.Authenticate(context.Background()))

	entries, err := conn.GetContainer(context.Background(), "sftp_tests", ListOptions{Delimiter: "/"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.True(t, entries[1].IsSubdirStub())
	assert.Equal(t, "dir/", entries[1].EntryName())
}
