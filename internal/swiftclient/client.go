package swiftclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swftpgo/swftpgo/internal/pathmodel"
)

// Retry tuning for metadata (HEAD/GET-listing) requests against transient
// server failures. This is never applied
// to streaming object GET/PUT bodies — those get exactly the single
// auth-retry described in do, nothing more.
const (
	metadataMaxRetries = 3
	metadataBaseBackoff = 250 * time.Millisecond
)

// URLRewrite replaces the scheme and/or host of the storage URL returned at
// authentication time, preserving path/query/fragment. Either field may be
// empty to leave that component untouched.
type URLRewrite struct {
	Scheme string
	Netloc string
}

func (r *URLRewrite) apply(raw string) (string, error) {
	if r == nil {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("swiftclient: rewriting storage url: %w", err)
	}

	if r.Scheme != "" {
		u.Scheme = r.Scheme
	}

	if r.Netloc != "" {
		u.Host = r.Netloc
	}

	return u.String(), nil
}

// Connection is a single authenticated backend connection: one per gateway
// session. It holds the mutable storage URL and auth token behind a mutex
// (re-auth on 401/403 mutates both), the immutable credentials, and the
// throttle set and HTTP transport it was constructed with.
type Connection struct {
	authURL      string
	username     string
	apiKey       string
	extraHeaders []HeaderPair
	userAgent    string
	rewrite      *URLRewrite
	pool         *http.Client
	throttles    ThrottleSet
	logger       *slog.Logger

	mu         sync.Mutex
	storageURL string
	authToken  string

	// reauth coalesces concurrent 401/403s into a single authenticate()
	// round trip, per the "idempotent re-auth" testable property.
	reauthMu    sync.Mutex
	reauthInFlight chan struct{}
}

// NewConnection constructs a Connection bound to the given throttle set and
// HTTP transport. It does not authenticate; call Authenticate first.
func NewConnection(authURL, username, apiKey string, extraHeaders []HeaderPair, userAgent string, rewrite *URLRewrite, pool *http.Client, throttles ThrottleSet, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		authURL:      authURL,
		username:     username,
		apiKey:       apiKey,
		extraHeaders: extraHeaders,
		userAgent:    userAgent,
		rewrite:      rewrite,
		pool:         pool,
		throttles:    throttles,
		logger:       logger,
	}
}

// Username returns the account the connection authenticated as, for
// logging at the session-surface boundary.
func (c *Connection) Username() string { return c.username }

// Close releases the connection's HTTP transport idle connections. Called
// at session logout.
func (c *Connection) Close() {
	if t, ok := c.pool.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
}

// Authenticate performs a single GET against the auth URL with
// X-Auth-User/X-Auth-Key and stores the returned storage URL and token.
// Exactly one round trip; never retried internally (the authenticator
// emits auth.succeed/auth.fail around this call — see auth.go).
func (c *Connection) Authenticate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL, nil)
	if err != nil {
		return fmt.Errorf("swiftclient: building auth request: %w", err)
	}

	req.Header.Set("X-Auth-User", c.username)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	for _, h := range c.extraHeaders {
		req.Header.Add(h.Key, h.Value)
	}

	resp, err := c.pool.Do(req)
	if err != nil {
		return fmt.Errorf("swiftclient: auth request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ResponseError{StatusCode: resp.StatusCode, Err: classifyStatus(resp.StatusCode)}
	}

	storageURL, err := c.rewrite.apply(resp.Header.Get("X-Storage-Url"))
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.storageURL = storageURL
	c.authToken = resp.Header.Get("X-Auth-Token")
	c.mu.Unlock()

	c.logger.Debug("swiftclient: authenticated", slog.String("username", c.username))

	return nil
}

func (c *Connection) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.authToken
}

func (c *Connection) currentStorageURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.storageURL
}

// reauthenticate coalesces concurrent callers into a single Authenticate
// round trip: the first caller performs the request, later callers wait on
// the same in-flight channel and then observe the refreshed token.
func (c *Connection) reauthenticate(ctx context.Context) error {
	c.reauthMu.Lock()

	if c.reauthInFlight != nil {
		ch := c.reauthInFlight
		c.reauthMu.Unlock()

		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ch := make(chan struct{})
	c.reauthInFlight = ch
	c.reauthMu.Unlock()

	err := c.Authenticate(ctx)

	c.reauthMu.Lock()
	c.reauthInFlight = nil
	c.reauthMu.Unlock()
	close(ch)

	return err
}

// request describes a single backend call before URL assembly.
type request struct {
	method  string
	path    string // already-quoted path appended to the storage URL
	query   url.Values
	headers http.Header
	body    io.Reader
	// bodyLen, if >= 0, sets Content-Length explicitly (streaming PUTs with
	// a known size); -1 lets net/http chunk the request.
	bodyLen int64
}

// do executes an authenticated request with the single-retry-on-auth-expiry
// contract from the response classification table: on a 401/403 the body is
// discarded, the token is refreshed exactly once, and the request is
// resubmitted; a second 401/403 surfaces. The returned response's body must
// be closed by the caller (it is the raw streaming body for GET object).
func (c *Connection) do(ctx context.Context, r request) (*http.Response, error) {
	if err := c.throttles.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.throttles.Release()

	resp, err := c.doOnce(ctx, r)
	if err != nil {
		return nil, err
	}

	if isAuthExpired(resp.StatusCode) {
		drainAndClose(resp.Body)

		if reauthErr := c.reauthenticate(ctx); reauthErr != nil {
			return nil, reauthErr
		}

		resp, err = c.doOnce(ctx, r)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		drainAndClose(resp.Body)

		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: string(body), Err: classifyStatus(resp.StatusCode)}
	}

	return resp, nil
}

// doMetadata is do with a bounded retry against transient 408/429/502/503/504 responses,
// used only by non-streaming metadata requests (HEAD, GET listing).
func (c *Connection) doMetadata(ctx context.Context, r request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= metadataMaxRetries; attempt++ {
		resp, err := c.do(ctx, r)
		if err == nil {
			return resp, nil
		}

		var respErr *ResponseError
		if !isTransientResponseError(err, &respErr) || attempt == metadataMaxRetries {
			return nil, err
		}

		lastErr = err

		backoff := metadataBaseBackoff * time.Duration(1<<attempt)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, lastErr
}

func isTransientResponseError(err error, out **ResponseError) bool {
	re, ok := err.(*ResponseError)
	if !ok {
		return false
	}

	*out = re

	return isRetryableTransient(re.StatusCode)
}

func (c *Connection) doOnce(ctx context.Context, r request) (*http.Response, error) {
	full := strings.TrimRight(c.currentStorageURL(), "/") + "/" + strings.TrimLeft(r.path, "/")

	if len(r.query) > 0 {
		full += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, full, r.body)
	if err != nil {
		return nil, fmt.Errorf("swiftclient: building request: %w", err)
	}

	if r.bodyLen >= 0 {
		req.ContentLength = r.bodyLen
	}

	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("X-Auth-Token", c.currentToken())
	req.Header.Set("User-Agent", c.userAgent)

	for _, h := range c.extraHeaders {
		req.Header.Add(h.Key, h.Value)
	}

	resp, err := c.pool.Do(req)
	if err != nil {
		return nil, fmt.Errorf("swiftclient: %s %s: %w", r.method, r.path, err)
	}

	return resp, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// --- account ---

func (c *Connection) HeadAccount(ctx context.Context) (http.Header, error) {
	resp, err := c.doMetadata(ctx, request{method: http.MethodHead, path: "", bodyLen: -1})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	return normalizeHeaders(resp.Header), nil
}

func (c *Connection) GetAccount(ctx context.Context, opts ListOptions) ([]ObjectEntry, error) {
	q := url.Values{"format": {"json"}}
	applyListOptions(q, opts)

	resp, err := c.doMetadata(ctx, request{method: http.MethodGet, path: "", query: q, bodyLen: -1})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	return decodeEntries(resp.Body)
}

// --- container ---

func (c *Connection) HeadContainer(ctx context.Context, container string) (http.Header, error) {
	resp, err := c.doMetadata(ctx, request{method: http.MethodHead, path: quotedContainerPath(container), bodyLen: -1})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	return normalizeHeaders(resp.Header), nil
}

func (c *Connection) GetContainer(ctx context.Context, container string, opts ListOptions) ([]ObjectEntry, error) {
	q := url.Values{"format": {"json"}}
	applyListOptions(q, opts)

	resp, err := c.doMetadata(ctx, request{method: http.MethodGet, path: quotedContainerPath(container), query: q, bodyLen: -1})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	return decodeEntries(resp.Body)
}

func (c *Connection) PutContainer(ctx context.Context, container string, headers http.Header) error {
	resp, err := c.do(ctx, request{method: http.MethodPut, path: quotedContainerPath(container), headers: headers, bodyLen: 0})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	return nil
}

func (c *Connection) DeleteContainer(ctx context.Context, container string) error {
	resp, err := c.do(ctx, request{method: http.MethodDelete, path: quotedContainerPath(container), bodyLen: -1})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	return nil
}

// --- object ---

func (c *Connection) objectPath(container, object string) string {
	p := pathmodel.Join(container, object)
	return p.QuotedContainer() + "/" + p.QuotedObject()
}

// quotedContainerPath percent-encodes a bare container segment for use in a
// backend request URL, via the same internal/pathmodel quoting the
// filesystem projection's rename/copy paths already go through.
func quotedContainerPath(container string) string {
	return pathmodel.Join(container, "").QuotedContainer()
}

func (c *Connection) HeadObject(ctx context.Context, container, object string) (http.Header, error) {
	resp, err := c.doMetadata(ctx, request{method: http.MethodHead, path: c.objectPath(container, object), bodyLen: -1})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	return normalizeHeaders(resp.Header), nil
}

// GetObject issues the streaming GET and returns the live response body
// (not drained/closed here — the download receiver owns its lifecycle) plus
// its normalized headers. headers may include Range for offset resumes.
func (c *Connection) GetObject(ctx context.Context, container, object string, headers http.Header) (io.ReadCloser, http.Header, error) {
	if err := c.throttles.Acquire(ctx); err != nil {
		return nil, nil, err
	}

	resp, err := c.doOnce(ctx, request{method: http.MethodGet, path: c.objectPath(container, object), headers: headers, bodyLen: -1})
	if err != nil {
		c.throttles.Release()
		return nil, nil, err
	}

	if isAuthExpired(resp.StatusCode) {
		drainAndClose(resp.Body)

		if reauthErr := c.reauthenticate(ctx); reauthErr != nil {
			c.throttles.Release()
			return nil, nil, reauthErr
		}

		resp, err = c.doOnce(ctx, request{method: http.MethodGet, path: c.objectPath(container, object), headers: headers, bodyLen: -1})
		if err != nil {
			c.throttles.Release()
			return nil, nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		drainAndClose(resp.Body)
		c.throttles.Release()

		return nil, nil, &ResponseError{StatusCode: resp.StatusCode, Message: string(body), Err: classifyStatus(resp.StatusCode)}
	}

	return &releaseOnCloseBody{ReadCloser: resp.Body, release: c.throttles.Release}, normalizeHeaders(resp.Header), nil
}

// PutObject issues a single streaming PUT; body may be of unknown length
// (chunked). headers may carry Content-Type or X-Copy-From.
func (c *Connection) PutObject(ctx context.Context, container, object string, headers http.Header, body io.Reader, bodyLen int64) error {
	resp, err := c.do(ctx, request{method: http.MethodPut, path: c.objectPath(container, object), headers: headers, body: body, bodyLen: bodyLen})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	return nil
}

func (c *Connection) DeleteObject(ctx context.Context, container, object string) error {
	resp, err := c.do(ctx, request{method: http.MethodDelete, path: c.objectPath(container, object), bodyLen: -1})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	return nil
}

// releaseOnCloseBody wraps a response body so that closing it (whether the
// stream completed normally or the caller aborts early) releases the
// throttle held for the duration of the streaming GET.
type releaseOnCloseBody struct {
	io.ReadCloser
	release func()
	once    sync.Once
}

func (b *releaseOnCloseBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)

	return err
}

func applyListOptions(q url.Values, opts ListOptions) {
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	if opts.Marker != "" {
		q.Set("marker", opts.Marker)
	}

	if opts.EndMarker != "" {
		q.Set("end_marker", opts.EndMarker)
	}

	if opts.Prefix != "" {
		q.Set("prefix", opts.Prefix)
	}

	if opts.Path != "" {
		q.Set("path", opts.Path)
	}

	if opts.Delimiter != "" {
		q.Set("delimiter", opts.Delimiter)
	}
}

func decodeEntries(body io.Reader) ([]ObjectEntry, error) {
	var entries []ObjectEntry
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("swiftclient: decoding listing: %w", err)
	}

	return entries, nil
}

// normalizeHeaders lower-cases header keys and collapses repeated values to
// the last one, per the response-header normalization rule.
func normalizeHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))

	for k, vs := range h {
		if len(vs) == 0 {
			continue
		}

		out.Set(strings.ToLower(k), vs[len(vs)-1])
	}

	return out
}
