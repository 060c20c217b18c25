// Package ftpsession implements the FTP session surface described in
// spec.md §4.I: a small driver interface, grounded on
// twisted.protocols.ftp.IFTPShell (original_source/swftp/ftp/server.py's
// SwiftFTPShell), that an external FTP command-protocol library drives.
// The wire protocol itself (command parsing, data-transfer-connection
// setup) is out of scope per spec.md §1 — this package exposes only the
// filesystem operations such a library calls into.
package ftpsession

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/swftpgo/swftpgo/internal/gatewaysession"
	"github.com/swftpgo/swftpgo/internal/metrics"
	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/vfs"
)

// Shell adapts one gateway session to the IFTPShell-shaped method set:
// directory/file CRUD, stat/list, and open-for-reading/-writing.
type Shell struct {
	sess    *gatewaysession.Session
	logger  *slog.Logger
	metrics *metrics.Registry
}

// NewShell wraps sess for FTP command dispatch, logging the "login"
// command immediately the way SwiftFTPShell.__init__ does.
func NewShell(sess *gatewaysession.Session, logger *slog.Logger, reg *metrics.Registry) *Shell {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Shell{sess: sess, logger: logger, metrics: reg}
	s.logCommand("login")

	return s
}

// Username returns the session's backend username.
func (s *Shell) Username() string { return s.sess.Username }

// Logout releases the backend connection. Idempotent.
func (s *Shell) Logout() {
	s.logCommand("logout")
	s.sess.Close()
}

func (s *Shell) logCommand(verb string, args ...string) {
	s.logger.Debug("ftp command", "user", s.sess.Username, "verb", verb, "args", strings.Join(args, ", "))

	if s.metrics != nil {
		s.metrics.Incr("command." + verb)
	}
}

func pathJoin(parts []string) string {
	return strings.Join(parts, "/")
}

func fullPath(parts []string) pathmodel.Path {
	return pathmodel.Split(pathJoin(parts))
}

// MakeDirectory creates a container or pseudo-directory at path.
func (s *Shell) MakeDirectory(ctx context.Context, path []string) error {
	s.logCommand("makeDirectory", pathJoin(path))
	return translate(s.sess.FS.MakeDirectory(ctx, fullPath(path)))
}

// RemoveDirectory deletes an empty container or pseudo-directory. A
// missing directory is not an error (NotFound is swallowed, matching
// SwiftFTPShell.removeDirectory's not_found_eb); a non-empty one surfaces
// as ErrCmdNotImplementedForArg.
func (s *Shell) RemoveDirectory(ctx context.Context, path []string) error {
	s.logCommand("removeDirectory", pathJoin(path))

	err := s.sess.FS.RemoveDirectory(ctx, fullPath(path))
	if vfs.IsNotFound(err) {
		return nil
	}

	return translate(err)
}

// RemoveFile deletes a single object. Unlike RemoveDirectory, NotFound is
// surfaced to the caller (the FTP DELE command is not idempotent here,
// matching SwiftFTPShell.removeFile's errback which only swallows a
// container/account-level NotImplementedError by remapping it to
// ErrIsADirectory, not NotFound).
func (s *Shell) RemoveFile(ctx context.Context, path []string) error {
	s.logCommand("removeFile", pathJoin(path))

	err := s.sess.FS.RemoveFile(ctx, fullPath(path))

	var verr *vfs.Error
	if errors.As(err, &verr) && verr.Kind == vfs.KindNotImplemented {
		return ErrIsADirectory
	}

	return translate(err)
}

// Rename moves fromPath to toPath.
func (s *Shell) Rename(ctx context.Context, fromPath, toPath []string) error {
	s.logCommand("rename", pathJoin(fromPath), pathJoin(toPath))
	return translate(s.sess.FS.Rename(ctx, fullPath(fromPath), fullPath(toPath)))
}

// Access checks that path names a directory a client may CWD/upload into,
// matching SwiftFTPShell.access: a container that doesn't exist yet is an
// error (containers must be created explicitly before use), but a
// not-yet-existing sub-prefix within an existing container is not, since
// object pseudo-directories are created implicitly by the first upload.
func (s *Shell) Access(ctx context.Context, path []string) error {
	s.logCommand("access", pathJoin(path))

	p := fullPath(path)

	stat, err := s.sess.FS.GetAttrs(ctx, p)
	if err == nil {
		if !stat.IsDir {
			return ErrIsNotADirectory
		}

		return nil
	}

	if vfs.IsNotFound(err) && len(path) != 1 {
		return nil
	}

	return ErrIsNotADirectory
}
