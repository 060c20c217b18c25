package sftpsession

import (
	"errors"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

func TestMapErrorTranslatesKinds(t *testing.T) {
	cases := []struct {
		kind vfs.ErrorKind
		want error
	}{
		{vfs.KindNotFound, sftp.ErrSSHFxNoSuchFile},
		{vfs.KindConflict, sftp.ErrSSHFxFailure},
		{vfs.KindUnAuthenticated, sftp.ErrSSHFxFailure},
		{vfs.KindUnAuthorized, sftp.ErrSSHFxFailure},
		{vfs.KindIsDirectory, sftp.ErrSSHFxFailure},
		{vfs.KindNotImplemented, sftp.ErrSSHFxOpUnsupported},
		{vfs.KindConnectionLost, sftp.ErrSSHFxConnectionLost},
		{vfs.KindTimeout, sftp.ErrSSHFxFailure},
	}

	for _, c := range cases {
		verr := &vfs.Error{Kind: c.kind, Path: "/x", Err: errors.New("boom")}
		assert.Equal(t, c.want, mapError(verr))
	}
}

func TestMapErrorPassesNilThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
}

func TestMapErrorFallsBackToFailureForNonVFSErrors(t *testing.T) {
	assert.Equal(t, sftp.ErrSSHFxFailure, mapError(errors.New("unrelated")))
}
