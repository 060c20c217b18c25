package sftpsession

import (
	"errors"

	"github.com/pkg/sftp"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

// mapError translates a vfs.Error into the sftp status sentinel a
// pkg/sftp.Handlers method should return, per spec.md §7's Kind table.
// Non-vfs errors (context cancellation, programmer errors) fall through to
// FX_FAILURE.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var verr *vfs.Error
	if !errors.As(err, &verr) {
		return sftp.ErrSSHFxFailure
	}

	switch verr.Kind {
	case vfs.KindNotFound:
		return sftp.ErrSSHFxNoSuchFile
	case vfs.KindConflict:
		return sftp.ErrSSHFxFailure
	case vfs.KindUnAuthenticated, vfs.KindUnAuthorized:
		return sftp.ErrSSHFxFailure
	case vfs.KindIsDirectory, vfs.KindIsNotDirectory:
		return sftp.ErrSSHFxFailure
	case vfs.KindNotImplemented:
		return sftp.ErrSSHFxOpUnsupported
	case vfs.KindConnectionLost:
		return sftp.ErrSSHFxConnectionLost
	default:
		return sftp.ErrSSHFxFailure
	}
}
