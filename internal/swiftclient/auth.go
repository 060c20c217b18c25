package swiftclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Credentials is the username/API-key pair exchanged for a storage URL and
// auth token.
type Credentials struct {
	Username string
	APIKey   string
}

// ErrUnauthorizedLogin is returned by Login when the backend rejects the
// supplied credentials (a 401 or 403 from authenticate()).
var ErrUnauthorizedLogin = errors.New("swiftclient: unauthorized login")

// Authenticator wraps the login flow: it builds the ordered throttle list,
// constructs a Connection, authenticates exactly once, and reports the
// outcome via the metrics recorder. Grounded on
// original_source/swftp/auth.py's SwiftBasedAuthDB.requestAvatarId.
type Authenticator struct {
	AuthURL      string
	ExtraHeaders []HeaderPair
	UserAgent    string
	Rewrite      *URLRewrite
	Logger       *slog.Logger

	// PerSessionConcurrency and GlobalConcurrency configure the ordered
	// throttle list: per-session first, then global, either may be 0 to
	// disable that throttle.
	PerSessionConcurrency int64
	GlobalConcurrency     int64

	globalThrottleOnce sync.Once
	globalThrottle     Throttle // shared across all connections from one Authenticator

	// ConnectionTimeout bounds how long idle connections are kept in the
	// per-connection HTTP transport's pool. It applies only when Transport
	// is nil.
	ConnectionTimeout time.Duration

	// AuthSucceed/AuthFail are invoked (if non-nil) to bump the
	// auth.succeed/auth.fail counters described in the metrics registry.
	AuthSucceed func()
	AuthFail    func()

	// Transport, if non-nil, is used as-is as the HTTP transport of every
	// connection (e.g. a diagnostics-instrumented one), so all connections
	// share its pool and PerSessionConcurrency/ConnectionTimeout do not
	// configure it. nil gives each connection its own http.Transport,
	// capped at PerSessionConcurrency connections per host (at least 1)
	// with ConnectionTimeout as its idle timeout.
	Transport http.RoundTripper
}

// sharedGlobalThrottle lazily constructs the single process-wide semaphore
// all connections from this Authenticator share, per spec.md §4.C
// ("process-wide semaphore... second"). Login is called concurrently from
// every incoming session's first authentication, so the lazy construction
// is guarded by sync.Once: without it, two simultaneous first logins could
// each build and use their own independent semaphore, splitting requests
// across both and jointly exceeding GlobalConcurrency.
func (a *Authenticator) sharedGlobalThrottle() Throttle {
	if a.GlobalConcurrency <= 0 {
		return nil
	}

	a.globalThrottleOnce.Do(func() {
		a.globalThrottle = NewCountingThrottle(a.GlobalConcurrency)
	})

	return a.globalThrottle
}

// Login authenticates credentials and returns a ready-to-use Connection
// bound to a new http.Client over Transport (a fresh per-connection pool
// only when Transport is nil) and the configured throttle list.
// Exactly one authentication round trip occurs.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*Connection, error) {
	var throttles ThrottleSet

	if a.PerSessionConcurrency > 0 {
		throttles = append(throttles, NewCountingThrottle(a.PerSessionConcurrency))
	}

	if g := a.sharedGlobalThrottle(); g != nil {
		throttles = append(throttles, g)
	}

	transport := a.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxConnsPerHost:     int(maxInt64(a.PerSessionConcurrency, 1)),
			IdleConnTimeout:     a.ConnectionTimeout,
			MaxIdleConnsPerHost: int(maxInt64(a.PerSessionConcurrency, 1)),
		}
	}

	pool := &http.Client{Transport: transport}

	conn := NewConnection(a.AuthURL, creds.Username, creds.APIKey, a.ExtraHeaders, a.UserAgent, a.Rewrite, pool, throttles, a.Logger)

	if err := conn.Authenticate(ctx); err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && (errors.Is(respErr, ErrUnauthenticated) || errors.Is(respErr, ErrUnauthorized)) {
			if a.AuthFail != nil {
				a.AuthFail()
			}

			return nil, fmt.Errorf("%w: %s", ErrUnauthorizedLogin, creds.Username)
		}

		return nil, fmt.Errorf("swiftclient: login: %w", err)
	}

	if a.AuthSucceed != nil {
		a.AuthSucceed()
	}

	return conn, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}

	return b
}
