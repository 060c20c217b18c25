package runtimeinfo

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingTransportTracksInFlight(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ct := NewCountingTransport(http.DefaultTransport)
	client := &http.Client{Transport: ct}

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		resp, err := client.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}()

	assert.Eventually(t, func() bool { return ct.InFlight() == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int64(0), ct.InFlight())
}
