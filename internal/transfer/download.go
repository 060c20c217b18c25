// Package transfer implements the two streaming adapters that bridge the
// backend's push-streaming HTTP body to the pull-oriented SFTP/FTP
// read/write model: Download (component F) and Upload (component G).
package transfer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// DownloadConfig tunes the buffer/backpressure thresholds. Zero values
// fall back to the defaults below.
type DownloadConfig struct {
	// BufferLimit caps the in-memory buffer of backend bytes not yet
	// consumed by the client; exceeding it pauses the backend read.
	// Defaults to 1 MiB (download_buffer_limit).
	BufferLimit int64

	// IdleTimeout, if non-zero, aborts the download if no backend chunk
	// arrives within this duration (the FTP variant's 20s idle timer).
	// The SFTP variant leaves this zero and relies on the session buffer
	// feedback loop instead (see Download.SetDownstreamPressure).
	IdleTimeout time.Duration
}

const defaultDownloadBufferLimit = 1 << 20

// pendingRead is one outstanding SFTP/FTP read request, served strictly
// FIFO regardless of arrival order, per spec.md §5's ordering guarantee.
type pendingRead struct {
	length int64
	result chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// Download bridges a backend response body (push) to offset+length pull
// reads. One Download is created per file handle on first read and dies
// with the handle or on connection loss. Grounded on
// original_source/swftp/sftp/swiftfile.py's SwiftFileReceiver, translated
// from its single-threaded callback chain into a goroutine draining the
// body plus a mutex-guarded FIFO pending-read queue.
type Download struct {
	cfg  DownloadConfig
	body io.ReadCloser
	size int64

	mu      sync.Mutex
	buf     []byte
	offset  int64 // total bytes removed from buf so far (= next read offset)
	pending []*pendingRead
	done    bool
	err     error // sticky terminal error (nil on clean EOF)

	pauseCh   chan struct{} // closed to signal "resume" to the pump goroutine
	pauseMu   sync.Mutex
	pausedByBuffer     bool // this Download's own buffer exceeded BufferLimit
	pausedByDownstream bool // the SFTP session's write buffer exceeded its limit
	startPump sync.Once
}

// NewDownload constructs a Download over body (total object size in size,
// already positioned at the requested start offset by the caller via a
// Range header) and starts the background pump immediately.
func NewDownload(body io.ReadCloser, size int64, cfg DownloadConfig) *Download {
	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = defaultDownloadBufferLimit
	}

	d := &Download{cfg: cfg, body: body, size: size}
	d.startPump.Do(func() { go d.pump() })

	return d
}

// SetDownstreamPressure is the SFTP variant's half of the dual-backpressure
// loop: called (typically from a zero-delay poll of the SFTP session's own
// write buffer, since SSH transports don't push a "drained" event) with
// true when that buffer exceeds its configured limit and false when it
// drains. The backend read pauses while either this or the Download's own
// buffer is over limit. The FTP variant never calls this.
func (d *Download) SetDownstreamPressure(paused bool) {
	d.pauseMu.Lock()
	d.pausedByDownstream = paused
	wantPaused := d.pausedByDownstream || d.pausedByBuffer
	d.pauseMu.Unlock()

	d.applyPaused(wantPaused)
}

// Paused reports whether the backend read is currently held off, for
// either reason (own buffer over limit or downstream session pressure).
// Exported for tests that need to observe the backpressure state rather
// than infer it from timing.
func (d *Download) Paused() bool {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	return d.currentlyPausedLocked()
}

// chunkResult is the outcome of one backend body Read, delivered across
// the read-goroutine/pump boundary so the pump can race it against the
// idle timer instead of blocking on it directly.
type chunkResult struct {
	n   int
	err error
}

// pump reads the backend body into the buffer and services pending reads,
// implementing the pause/resume backpressure described in spec.md §4.F.
// Each Read runs in its own goroutine so the idle-chunk timer (FTP only)
// can race against a Read that never returns: on expiry the pump closes
// the backend body to force that Read to unblock with an error, rather
// than relying on the Read itself to respect a deadline it doesn't know
// about.
func (d *Download) pump() {
	chunk := make([]byte, 32*1024)
	readCh := make(chan chunkResult, 1)

	var idleTimer *time.Timer
	if d.cfg.IdleTimeout > 0 {
		idleTimer = time.NewTimer(d.cfg.IdleTimeout)
		defer idleTimer.Stop()
	}

	for {
		d.waitWhilePaused()

		go func() {
			n, err := d.body.Read(chunk)
			readCh <- chunkResult{n: n, err: err}
		}()

		var res chunkResult
		if idleTimer != nil {
			select {
			case res = <-readCh:
				if !idleTimer.Stop() {
					<-idleTimer.C
				}
				idleTimer.Reset(d.cfg.IdleTimeout)
			case <-idleTimer.C:
				d.body.Close()
				<-readCh // drain the now-unblocked Read so its goroutine doesn't leak
				d.finish(errTimeout)
				return
			}
		} else {
			res = <-readCh
		}

		if res.n > 0 {
			d.appendAndServe(chunk[:res.n])
		}

		if res.err != nil {
			d.finish(res.err)
			return
		}
	}
}

var errTimeout = errors.New("transfer: download idle timeout")

func (d *Download) waitWhilePaused() {
	for {
		d.pauseMu.Lock()
		if !d.currentlyPausedLocked() {
			d.pauseMu.Unlock()
			return
		}

		ch := d.pauseCh
		d.pauseMu.Unlock()

		<-ch
	}
}

func (d *Download) currentlyPausedLocked() bool {
	return d.pausedByBuffer || d.pausedByDownstream
}

// applyPaused flips the pump's pause gate to match wantPaused, signaling
// any blocked pump goroutine via pauseCh when transitioning to not-paused.
func (d *Download) applyPaused(wantPaused bool) {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	wasPaused := d.pauseCh != nil

	if wantPaused == wasPaused {
		return
	}

	if wantPaused {
		d.pauseCh = make(chan struct{})
		return
	}

	close(d.pauseCh)
	d.pauseCh = nil
}

// appendAndServe appends a backend chunk to the buffer and runs the
// readloop, pausing the backend transport when the buffer exceeds its
// configured limit.
func (d *Download) appendAndServe(chunk []byte) {
	d.mu.Lock()
	d.buf = append(d.buf, chunk...)
	d.serveLocked()
	over := int64(len(d.buf)) > d.cfg.BufferLimit
	d.mu.Unlock()

	d.pauseMu.Lock()
	d.pausedByBuffer = over
	wantPaused := d.pausedByBuffer || d.pausedByDownstream
	d.pauseMu.Unlock()

	d.applyPaused(wantPaused)
}

// serveLocked delivers buffered bytes to pending readers strictly FIFO,
// stopping at the first request that cannot yet be satisfied. Must be
// called with d.mu held.
func (d *Download) serveLocked() {
	for len(d.pending) > 0 {
		req := d.pending[0]

		want := req.length
		if d.offset+int64(len(d.buf)) >= d.size {
			// Near end of object: clamp to remaining bytes so a short
			// final read is servable without waiting for more data that
			// will never arrive.
			remaining := d.size - d.offset
			if want > remaining {
				want = remaining
			}
		}

		if int64(len(d.buf)) < want {
			if !d.done {
				return
			}

			if d.err != nil {
				// Abnormal termination: don't synthesize a short read out
				// of whatever partial bytes arrived before the failure.
				// Leave this (and every later) request queued for finish's
				// error fan-out below.
				return
			}
		}

		n := want
		if n > int64(len(d.buf)) {
			n = int64(len(d.buf))
		}

		data := append([]byte(nil), d.buf[:n]...)
		d.buf = d.buf[n:]
		d.offset += n

		d.pending = d.pending[1:]
		req.result <- readResult{data: data}
		close(req.result)
	}
}

// finish marks the backend stream ended (cleanly or with err) and wakes
// every pending reader.
func (d *Download) finish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done = true

	if !errors.Is(err, io.EOF) {
		d.err = err
	}

	d.serveLocked()

	// Any still-pending reads can never be satisfied: normal/expected
	// termination (EOF) resolves them as end-of-file; abnormal
	// termination surfaces the error to every one of them.
	for _, req := range d.pending {
		if d.err != nil {
			req.result <- readResult{err: d.err}
		} else {
			req.result <- readResult{err: io.EOF}
		}

		close(req.result)
	}

	d.pending = nil
}

// Read serves one offset+length read request. A Download represents a
// single forward byte stream starting at the offset its backend GET was
// opened with (via an optional Range header) — offset must equal the
// number of bytes already delivered by this Download; a non-contiguous
// offset is a caller error (the session surface must open a fresh Download
// per range, per spec.md §4.F: "a fresh receiver is built per range;
// offsets are not re-indexed across ranges"). Requests are still queued
// FIFO so that readers that arrive before their bytes do are served in
// the order they arrived, not in arbitrary completion order. A request
// whose length exceeds the remaining object size is clamped.
func (d *Download) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	d.mu.Lock()

	if offset != d.offset+d.pendingBytes() {
		d.mu.Unlock()
		return nil, errNonContiguousOffset
	}

	if d.offset >= d.size && len(d.buf) == 0 {
		d.mu.Unlock()
		return nil, io.EOF
	}

	req := &pendingRead{length: length, result: make(chan readResult, 1)}
	d.pending = append(d.pending, req)
	d.serveLocked()
	d.mu.Unlock()

	select {
	case res := <-req.result:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// pendingBytes returns the total length already promised to queued-but-
// not-yet-delivered read requests, so a newly submitted contiguous read's
// expected offset accounts for reads still in flight ahead of it.
func (d *Download) pendingBytes() int64 {
	var total int64
	for _, p := range d.pending {
		total += p.length
	}

	return total
}

var errNonContiguousOffset = errors.New("transfer: download read offset is non-contiguous")

// Close releases the backend body. Safe to call more than once.
func (d *Download) Close() error {
	return d.body.Close()
}
