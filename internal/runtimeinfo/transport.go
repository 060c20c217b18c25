package runtimeinfo

import (
	"net/http"
	"sync/atomic"
)

// CountingTransport wraps an http.RoundTripper to track how many backend
// requests are currently in flight, the Go equivalent of the original's
// http_conn_num (readers classified as twisted.internet.tcp.Client). Set
// one of these per daemon process as swiftclient.Authenticator.Transport,
// which every Connection's http.Client then uses.
type CountingTransport struct {
	next     http.RoundTripper
	inFlight atomic.Int64
}

// NewCountingTransport wraps next, or http.DefaultTransport if next is
// nil.
func NewCountingTransport(next http.RoundTripper) *CountingTransport {
	if next == nil {
		next = http.DefaultTransport
	}

	return &CountingTransport{next: next}
}

// RoundTrip implements http.RoundTripper.
func (c *CountingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	return c.next.RoundTrip(req)
}

// InFlight returns the current number of backend requests awaiting a
// response.
func (c *CountingTransport) InFlight() int64 {
	return c.inFlight.Load()
}
