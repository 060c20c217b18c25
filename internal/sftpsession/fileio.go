package sftpsession

import (
	"context"
	"io"
	"sync"

	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/transfer"
	"github.com/swftpgo/swftpgo/internal/vfs"
)

// readerAt adapts a vfs.Filesystem object-read to sftp's io.ReaderAt
// contract. pkg/sftp.RequestServer serves ReadAt calls for one handle from
// a single goroutine in increasing-offset order for a sequential transfer,
// but a client may also issue a ReadAt at an offset that does not
// contiguously follow the previous one (a seek). transfer.Download only
// supports one monotonic stream, so a ReadAt before the offset the live
// Download was opened at closes it and reopens at the new offset, per
// OpenForReading's per-range contract; any other offset is passed to
// Download.Read, which rejects a forward jump as non-contiguous.
type readerAt struct {
	ctx context.Context
	fs  *vfs.Filesystem
	p   pathmodel.Path
	wb  downstreamBuffer

	mu   sync.Mutex
	dl   *transfer.Download
	base int64 // offset the current Download was opened at
}

// downstreamBuffer reports how many bytes are currently queued awaiting
// delivery to the SFTP client, standing in for the Twisted original's
// transport.dataBuffer length check (spec.md §4.F). Satisfied by
// *bufferedWriteChannel in production; left nil in tests that don't
// exercise the backpressure path.
type downstreamBuffer interface {
	Queued() int64
}

func newReaderAt(ctx context.Context, fs *vfs.Filesystem, p pathmodel.Path, wb downstreamBuffer) *readerAt {
	return &readerAt{ctx: ctx, fs: fs, p: p, wb: wb}
}

func (r *readerAt) ReadAt(buf []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dl == nil || off < r.base {
		if r.dl != nil {
			r.dl.Close()
		}

		dl, err := r.fs.OpenForReading(r.ctx, r.p, off)
		if err != nil {
			return 0, mapError(err)
		}

		r.dl = dl
		r.base = off
	}

	data, err := r.dl.Read(r.ctx, off-r.base, int64(len(buf)))
	n := copy(buf, data)

	// Poll the session write buffer right as new bytes are about to flow
	// to the client: a zero-delay cross-check (spec.md §4.F) rather than
	// one gated by a wall-clock ticker.
	if r.wb != nil {
		r.dl.SetDownstreamPressure(r.wb.Queued() > sessionWriteBufferLimit)
	}

	if err != nil {
		return n, translateReadError(err)
	}

	if n < len(buf) {
		return n, io.EOF
	}

	return n, nil
}

func (r *readerAt) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dl == nil {
		return nil
	}

	err := r.dl.Close()
	r.dl = nil

	return err
}

func translateReadError(err error) error {
	if err == io.EOF {
		return io.EOF
	}

	return mapError(err)
}

// writerAt adapts a vfs.Filesystem object-write to sftp's io.WriterAt
// contract. The backend PUT accepts only one contiguous, in-order stream,
// so a WriteAt at an offset that doesn't match the running total is
// rejected rather than silently reordered.
type writerAt struct {
	ctx context.Context
	up  *transfer.Upload

	mu      sync.Mutex
	written int64
}

func newWriterAt(ctx context.Context, up *transfer.Upload) *writerAt {
	return &writerAt{ctx: ctx, up: up}
}

func (w *writerAt) WriteAt(buf []byte, off int64) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if off != w.written {
		return 0, errNonSequentialWrite
	}

	if err := w.up.Write(w.ctx, buf); err != nil {
		return 0, mapError(err)
	}

	w.written += int64(len(buf))

	return len(buf), nil
}

func (w *writerAt) Close() error {
	return mapError(w.up.Close())
}

var errNonSequentialWrite = &writeOrderError{}

type writeOrderError struct{}

func (*writeOrderError) Error() string {
	return "sftpsession: out-of-order write to backend object stream"
}
