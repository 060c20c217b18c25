package ftpsession

import (
	"context"
	"io"

	"github.com/swftpgo/swftpgo/internal/transfer"
)

// ReadFile streams one object to the external FTP library's data-transfer
// connection, mirroring SwiftReadFile's producer role. The caller passes
// the REST offset once, at open time, matching SwiftReadFile.send's
// one-shot consumption of consumer.rest_offset.
type ReadFile struct {
	dl     *transfer.Download
	offset int64
}

// OpenForReading opens path for streaming starting at restOffset. A
// restOffset of 0 is an ordinary full read.
func (s *Shell) OpenForReading(ctx context.Context, path []string, restOffset int64) (*ReadFile, error) {
	s.logCommand("openForReading", pathJoin(path))

	p := fullPath(path)

	stat, err := s.sess.FS.GetAttrs(ctx, p)
	if err != nil {
		return nil, translate(err)
	}

	if stat.IsDir {
		return nil, ErrIsADirectory
	}

	dl, err := s.sess.FS.OpenForReading(ctx, p, restOffset)
	if err != nil {
		return nil, translate(err)
	}

	return &ReadFile{dl: dl, offset: restOffset}, nil
}

// Read returns up to length bytes from the current offset, advancing it.
// It returns io.EOF once the object is exhausted, matching the
// io.Reader-shaped contract an external FTP library's data-connection
// writer expects.
func (r *ReadFile) Read(ctx context.Context, length int64) ([]byte, error) {
	data, err := r.dl.Read(ctx, r.offset, length)
	r.offset += int64(len(data))

	return data, err
}

// Close releases the backend connection. The external FTP library is
// expected to call this when the data-transfer connection closes,
// whether on normal completion, client abort, or the 20-second idle
// timeout configured via transfer.DownloadConfig.IdleTimeout.
func (r *ReadFile) Close() error {
	return r.dl.Close()
}

// WriteFile streams one object up from the external FTP library's
// data-transfer connection, mirroring SwiftWriteFile's consumer role.
type WriteFile struct {
	up *transfer.Upload
}

// OpenForWriting opens path for an upload. Uploading directly into the
// account root is rejected, matching SwiftFTPShell.openForWriting's
// "Cannot upload files to root directory" guard.
func (s *Shell) OpenForWriting(ctx context.Context, path []string) (*WriteFile, error) {
	s.logCommand("openForWriting", pathJoin(path))

	p := fullPath(path)
	if p.IsAccountLevel() || p.IsContainerLevel() {
		return nil, ErrCmdNotImplementedForArg
	}

	up, err := s.sess.FS.OpenForWriting(ctx, p)
	if err != nil {
		return nil, translate(err)
	}

	return &WriteFile{up: up}, nil
}

// Write sends one chunk of the uploaded object's body.
func (w *WriteFile) Write(ctx context.Context, data []byte) error {
	return w.up.Write(ctx, data)
}

// Close finalizes the upload, blocking until the backend confirms the
// PUT. On a partial transfer the external library should call Stop
// instead so the backend request is aborted rather than finalized.
func (w *WriteFile) Close() error {
	return translate(w.up.Close())
}

// Stop aborts an in-progress upload without finalizing it, for use when
// the data-transfer connection drops before the client sends the
// end-of-file marker.
func (w *WriteFile) Stop() {
	w.up.Stop()
}

var (
	_ io.Closer = (*ReadFile)(nil)
	_ io.Closer = (*WriteFile)(nil)
)
