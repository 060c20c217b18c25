package transfer

import (
	"context"
	"errors"
	"io"
	"sync"
)

// UploadConfig tunes the upload sender's backpressure thresholds. Zero
// values fall back to the defaults below (max_buffer_writes=20,
// buffer_writes_resume=5).
type UploadConfig struct {
	// MaxBufferWrites is the number of unconsumed writes queued before the
	// session surface is told to pause accepting further writes.
	MaxBufferWrites int

	// ResumeBufferWrites is the queue depth at which a paused sender
	// resumes accepting writes. Must be less than MaxBufferWrites.
	ResumeBufferWrites int
}

const (
	defaultMaxBufferWrites    = 20
	defaultResumeBufferWrites = 5
)

// writeRequest is one buffered chunk awaiting the pump, or the sentinel
// "no more data" marker produced by Close.
type writeRequest struct {
	data []byte
	last bool
}

// Upload bridges pull-oriented SFTP/FTP writes to the backend's single
// push-streaming PUT body. One Upload is created per file handle opened
// for writing; dst is invoked exactly once, in a background goroutine,
// with an io.Reader that yields bytes as they are written by the session
// surface. Grounded on original_source/swftp/sftp/swiftfile.py's
// SwiftFileSender: a cooperative pump draining a bounded queue, pausing
// the writer when the queue grows past MaxBufferWrites and resuming it
// once drained back to ResumeBufferWrites.
type Upload struct {
	cfg UploadConfig
	dst func(io.Reader) error

	mu      sync.Mutex
	queue   []writeRequest
	closed  bool
	stopped bool
	stopErr error

	notEmpty chan struct{} // signaled when the pump should re-check the queue

	pauseOk chan struct{} // non-nil and open while a Write is blocked on backpressure

	done     chan struct{} // closed when dst returns
	result   error
	startPump sync.Once
}

// NewUpload constructs an Upload that will invoke dst exactly once with a
// reader fed by subsequent Write calls, and starts the pump immediately.
func NewUpload(dst func(io.Reader) error, cfg UploadConfig) *Upload {
	if cfg.MaxBufferWrites <= 0 {
		cfg.MaxBufferWrites = defaultMaxBufferWrites
	}

	if cfg.ResumeBufferWrites <= 0 {
		cfg.ResumeBufferWrites = defaultResumeBufferWrites
	}

	u := &Upload{
		cfg:      cfg,
		dst:      dst,
		notEmpty: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	u.startPump.Do(func() {
		pr, pw := io.Pipe()
		go u.drain(pw)
		go u.runDst(pr)
	})

	return u
}

// runDst invokes dst exactly once and records its outcome.
func (u *Upload) runDst(r *io.PipeReader) {
	err := u.dst(r)
	r.CloseWithError(err)

	u.mu.Lock()
	u.result = err
	u.mu.Unlock()

	close(u.done)
}

// drain pulls queued chunks and writes them into pw, closing pw once Close
// has been called and the queue is fully drained, or immediately if Stop
// tore the upload down early.
func (u *Upload) drain(pw *io.PipeWriter) {
	for {
		u.mu.Lock()
		if u.stopped {
			u.mu.Unlock()
			pw.CloseWithError(u.stopErr)
			return
		}

		if len(u.queue) == 0 {
			if u.closed {
				u.mu.Unlock()
				pw.Close()
				return
			}

			ch := u.notEmpty
			u.mu.Unlock()
			<-ch
			continue
		}

		// The entry stays queued until pw.Write returns, so a write the
		// backend has not yet taken still counts against MaxBufferWrites.
		req := u.queue[0]
		u.mu.Unlock()

		if req.last {
			pw.Close()
			return
		}

		_, err := pw.Write(req.data)

		u.mu.Lock()
		if err != nil {
			if !u.stopped {
				u.stopped = true
				u.stopErr = err
			}
			u.mu.Unlock()

			return
		}

		u.queue = u.queue[1:]
		u.signalResumeIfBelowThresholdLocked()
		u.mu.Unlock()
	}
}

// signalResumeIfBelowThresholdLocked wakes a Write blocked on backpressure
// once the queue has drained to ResumeBufferWrites. Must be called with
// u.mu held.
func (u *Upload) signalResumeIfBelowThresholdLocked() {
	if u.pauseOk != nil && len(u.queue) <= u.cfg.ResumeBufferWrites {
		close(u.pauseOk)
		u.pauseOk = nil
	}
}

var errUploadClosed = errors.New("transfer: upload already closed")
var errUploadStopped = errors.New("transfer: upload connection lost")

// Write enqueues p for delivery to the backend PUT body, blocking while
// the queue is over MaxBufferWrites (the session surface's signal to stop
// reading from its own transport until told to resume).
func (u *Upload) Write(ctx context.Context, p []byte) error {
	data := append([]byte(nil), p...)

	for {
		u.mu.Lock()

		if u.stopped {
			err := u.stopErr
			u.mu.Unlock()
			return err
		}

		if u.closed {
			u.mu.Unlock()
			return errUploadClosed
		}

		if len(u.queue) < u.cfg.MaxBufferWrites {
			u.queue = append(u.queue, writeRequest{data: data})
			u.wakeLocked()
			u.mu.Unlock()
			return nil
		}

		if u.pauseOk == nil {
			u.pauseOk = make(chan struct{})
		}
		wait := u.pauseOk
		u.mu.Unlock()

		select {
		case <-wait:
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// wakeLocked pings the pump if it is blocked waiting for a non-empty
// queue. Must be called with u.mu held.
func (u *Upload) wakeLocked() {
	select {
	case u.notEmpty <- struct{}{}:
	default:
	}
}

// Close marks the upload complete, flushes remaining queued data, and
// waits for the backend PUT to finish. The returned error is the PUT's
// outcome (including a NotFound mapping if the containing directory
// vanished mid-upload). A second call waits for the same PUT and returns
// the same result.
func (u *Upload) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		<-u.done
		return u.finalResult()
	}

	u.closed = true
	u.queue = append(u.queue, writeRequest{last: true})
	u.wakeLocked()
	u.mu.Unlock()

	<-u.done

	return u.finalResult()
}

func (u *Upload) finalResult() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.stopped && u.result == nil {
		return u.stopErr
	}

	return u.result
}

// Stop tears the upload down immediately on connection loss: any write
// queued or in flight fails with a connection-lost error rather than
// waiting for Close. Safe to call concurrently with Write/Close.
func (u *Upload) Stop() {
	u.mu.Lock()
	if u.stopped || u.closed {
		u.mu.Unlock()
		return
	}

	u.stopped = true
	u.stopErr = errUploadStopped
	u.signalResumeIfBelowThresholdLocked()
	u.wakeLocked()
	u.mu.Unlock()
}
