package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
	"github.com/swftpgo/swftpgo/internal/transfer"
)

// removeDirectoryRetryDelay is how long removeDirectory waits before
// retrying a container delete that failed with Conflict (container not
// yet empty from the backend's point of view).
const removeDirectoryRetryDelay = 2 * time.Second

// Filesystem projects one authenticated backend connection onto the
// POSIX-like virtual filesystem operations a session surface needs:
// stat, list, mkdir, rmdir, rename, delete, open-for-reading,
// open-for-writing. One Filesystem per gateway session.
type Filesystem struct {
	conn   *swiftclient.Connection
	logger *slog.Logger

	download transfer.DownloadConfig
	upload   transfer.UploadConfig
}

// NewFilesystem builds a Filesystem over an already-authenticated
// connection. Zero-value download/upload configs fall back to the
// package defaults.
func NewFilesystem(conn *swiftclient.Connection, logger *slog.Logger, download transfer.DownloadConfig, upload transfer.UploadConfig) *Filesystem {
	if logger == nil {
		logger = slog.Default()
	}

	return &Filesystem{conn: conn, logger: logger, download: download, upload: upload}
}

// GetAttrs synthesizes a Stat for any account/container/object path,
// falling back to a synthetic directory stat when an object path exists
// only as a non-empty prefix of other objects.
func (fs *Filesystem) GetAttrs(ctx context.Context, p pathmodel.Path) (Stat, error) {
	switch {
	case p.IsObjectLevel():
		h, err := fs.conn.HeadObject(ctx, p.Container(), p.Object())
		if err == nil {
			return statFromHeaders(h, false), nil
		}

		if !errors.Is(err, swiftclient.ErrNotFound) {
			return Stat{}, classifyBackendError(p.Join(), err)
		}

		children, lerr := fs.conn.GetContainer(ctx, p.Container(), swiftclient.ListOptions{
			Prefix: p.Object() + "/",
			Limit:  1,
		})
		if lerr != nil {
			return Stat{}, classifyBackendError(p.Join(), lerr)
		}

		if len(children) == 0 {
			return Stat{}, newError(KindNotFound, p.Join(), swiftclient.ErrNotFound)
		}

		return syntheticDirStat(), nil

	case p.IsContainerLevel():
		h, err := fs.conn.HeadContainer(ctx, p.Container())
		if err != nil {
			return Stat{}, classifyBackendError(p.Join(), err)
		}

		return statFromHeaders(h, true), nil

	default:
		h, err := fs.conn.HeadAccount(ctx)
		if err != nil {
			return Stat{}, classifyBackendError(p.Join(), err)
		}

		return statFromHeaders(h, true), nil
	}
}

// List returns the directory listing for an account, container, or
// object-prefix path.
func (fs *Filesystem) List(ctx context.Context, p pathmodel.Path) ([]Entry, error) {
	if p.IsAccountLevel() {
		return fs.listAccount(ctx)
	}

	return fs.listContainer(ctx, p.Container(), p.Object())
}

// MakeDirectory creates a container (path has no object segment) or an
// object-backed pseudo-directory marker (path has an object segment).
// Account-level creation has no backend equivalent.
func (fs *Filesystem) MakeDirectory(ctx context.Context, p pathmodel.Path) error {
	switch {
	case p.IsObjectLevel():
		h := http.Header{"Content-Type": []string{directoryContentType}}

		if err := fs.conn.PutObject(ctx, p.Container(), p.Object(), h, nil, 0); err != nil {
			return classifyBackendError(p.Join(), err)
		}

		return nil

	case p.IsContainerLevel():
		if err := fs.conn.PutContainer(ctx, p.Container(), nil); err != nil {
			return classifyBackendError(p.Join(), err)
		}

		return nil

	default:
		return newError(KindNotImplemented, p.Join(), errNotImplemented)
	}
}

// RemoveDirectory deletes an object-backed pseudo-directory or an empty
// container, retrying a conflicted container delete once after a short
// delay (the backend reports a container as non-empty transiently right
// after its last object is removed).
func (fs *Filesystem) RemoveDirectory(ctx context.Context, p pathmodel.Path) error {
	switch {
	case p.IsObjectLevel():
		if err := fs.conn.DeleteObject(ctx, p.Container(), p.Object()); err != nil {
			return classifyBackendError(p.Join(), err)
		}

		return nil

	case p.IsContainerLevel():
		err := fs.conn.DeleteContainer(ctx, p.Container())
		if err == nil {
			return nil
		}

		if !errors.Is(err, swiftclient.ErrConflict) {
			return classifyBackendError(p.Join(), err)
		}

		timer := time.NewTimer(removeDirectoryRetryDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if retryErr := fs.conn.DeleteContainer(ctx, p.Container()); retryErr != nil {
			return classifyBackendError(p.Join(), retryErr)
		}

		return nil

	default:
		return newError(KindNotImplemented, p.Join(), errNotImplemented)
	}
}

// RemoveFile deletes a single object. Container-only and account-level
// paths are invalid targets for a file delete.
func (fs *Filesystem) RemoveFile(ctx context.Context, p pathmodel.Path) error {
	if !p.IsObjectLevel() {
		return newError(KindNotImplemented, p.Join(), errNotImplemented)
	}

	if err := fs.conn.DeleteObject(ctx, p.Container(), p.Object()); err != nil {
		return classifyBackendError(p.Join(), err)
	}

	return nil
}

// Rename moves an object via copy-then-delete, or recreates a container
// under a new name (losing its metadata — logged at Warn, there is no
// metadata-preserving rename in the Swift v1 API). Directory (prefix)
// renames and account-level renames are not implemented: the backend has
// no atomic recursive move, and a multi-object rename cannot be made to
// look atomic to a client.
func (fs *Filesystem) Rename(ctx context.Context, oldP, newP pathmodel.Path) error {
	if oldP.IsAccountLevel() && newP.IsAccountLevel() {
		return newError(KindNotImplemented, oldP.Join(), errNotImplemented)
	}

	if oldP.IsContainerLevel() && newP.IsContainerLevel() && oldP.Container() != newP.Container() {
		fs.logger.Warn("vfs: renaming container, metadata will be lost",
			slog.String("old", oldP.Container()), slog.String("new", newP.Container()))

		if err := fs.conn.DeleteContainer(ctx, oldP.Container()); err != nil {
			return classifyBackendError(oldP.Join(), err)
		}

		if err := fs.conn.PutContainer(ctx, newP.Container(), nil); err != nil {
			return classifyBackendError(newP.Join(), err)
		}

		return nil
	}

	if !oldP.IsObjectLevel() || !newP.IsObjectLevel() {
		return newError(KindNotImplemented, oldP.Join(), errNotImplemented)
	}

	_, headErr := fs.conn.HeadObject(ctx, oldP.Container(), oldP.Object())
	if headErr != nil && !errors.Is(headErr, swiftclient.ErrNotFound) {
		return classifyBackendError(oldP.Join(), headErr)
	}

	children, err := fs.conn.GetContainer(ctx, oldP.Container(), swiftclient.ListOptions{
		Prefix: oldP.Object() + "/",
		Limit:  1,
	})
	if err != nil {
		return classifyBackendError(oldP.Join(), err)
	}

	if len(children) > 0 {
		return newError(KindNotImplemented, oldP.Join(), errNotImplemented)
	}

	if headErr != nil {
		return classifyBackendError(oldP.Join(), headErr)
	}

	copyHeaders := http.Header{"X-Copy-From": []string{oldP.Container() + "/" + oldP.Object()}}
	if err := fs.conn.PutObject(ctx, newP.Container(), newP.Object(), copyHeaders, nil, 0); err != nil {
		return classifyBackendError(newP.Join(), err)
	}

	if err := fs.conn.DeleteObject(ctx, oldP.Container(), oldP.Object()); err != nil {
		return classifyBackendError(oldP.Join(), err)
	}

	return nil
}

// OpenForReading pre-flights a HEAD to confirm the object exists and
// learn its size, then returns a Download bound to the backend's
// streaming body starting at offset (added as a Range header when
// non-zero — an SFTP ranged read or FTP REST).
func (fs *Filesystem) OpenForReading(ctx context.Context, p pathmodel.Path, offset int64) (*transfer.Download, error) {
	if !p.IsObjectLevel() {
		return nil, newError(KindIsDirectory, p.Join(), errIsDirectory)
	}

	stat, err := fs.GetAttrs(ctx, p)
	if err != nil {
		return nil, err
	}

	if stat.IsDir {
		return nil, newError(KindIsDirectory, p.Join(), errIsDirectory)
	}

	headers := http.Header{}
	if offset > 0 {
		headers.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	body, _, err := fs.conn.GetObject(ctx, p.Container(), p.Object(), headers)
	if err != nil {
		return nil, classifyBackendError(p.Join(), err)
	}

	remaining := stat.Size - offset
	if remaining < 0 {
		remaining = 0
	}

	return transfer.NewDownload(body, remaining, fs.download), nil
}

// OpenForWriting returns an Upload bound to a backend PUT that starts as
// soon as the Upload is built, before any write arrives; the PUT's body is
// fed by the Upload's writes and ends at Close. Container-only and account-level targets are invalid write destinations.
func (fs *Filesystem) OpenForWriting(ctx context.Context, p pathmodel.Path) (*transfer.Upload, error) {
	if !p.IsObjectLevel() {
		return nil, newError(KindNotImplemented, p.Join(), errNotImplemented)
	}

	dst := func(r io.Reader) error {
		if err := fs.conn.PutObject(ctx, p.Container(), p.Object(), nil, r, -1); err != nil {
			return classifyBackendError(p.Join(), err)
		}

		return nil
	}

	return transfer.NewUpload(dst, fs.upload), nil
}

var errNotImplemented = errors.New("vfs: operation not implemented for this path level")
var errIsDirectory = errors.New("vfs: path is a directory")
