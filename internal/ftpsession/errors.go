package ftpsession

import (
	"errors"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

// Sentinel errors mirroring the exception vocabulary
// twisted.protocols.ftp.IFTPShell callers (the external FTP
// command-protocol library) switch on to pick a reply code: file-not-found
// (550), is-a-directory/is-not-a-directory (550), and command-not-
// implemented-for-this-argument (502).
var (
	ErrFileNotFound            = errors.New("ftpsession: file not found")
	ErrIsADirectory            = errors.New("ftpsession: is a directory")
	ErrIsNotADirectory         = errors.New("ftpsession: is not a directory")
	ErrCmdNotImplementedForArg = errors.New("ftpsession: command not implemented for this argument")
	ErrUnauthorized            = errors.New("ftpsession: backend rejected the session's credentials")
)

// translate maps a vfs.Error onto the ftpsession sentinel vocabulary. Non-
// vfs errors (context cancellation, transport failures) pass through
// unchanged so the caller's generic error path still fires.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var verr *vfs.Error
	if !errors.As(err, &verr) {
		return err
	}

	switch verr.Kind {
	case vfs.KindNotFound:
		return ErrFileNotFound
	case vfs.KindConflict, vfs.KindNotImplemented:
		return ErrCmdNotImplementedForArg
	case vfs.KindIsDirectory:
		return ErrIsADirectory
	case vfs.KindIsNotDirectory:
		return ErrIsNotADirectory
	case vfs.KindUnAuthenticated, vfs.KindUnAuthorized:
		return ErrUnauthorized
	default:
		return err
	}
}
