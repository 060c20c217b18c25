// Package vfs projects the hierarchical Swift account/container/object
// model onto a POSIX-like virtual filesystem: stat, list, mkdir, rmdir,
// rename, delete, open-for-reading, open-for-writing, expressed over the
// backend client in internal/swiftclient and the path model in
// internal/pathmodel.
package vfs

import (
	"errors"
	"fmt"

	"github.com/swftpgo/swftpgo/internal/swiftclient"
)

// ErrorKind classifies a vfs-level failure for the session-surface
// adapters to map onto their own protocol's reply/status codes, per
// spec.md §7.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindConflict
	KindUnAuthenticated
	KindUnAuthorized
	KindIsDirectory
	KindIsNotDirectory
	KindNotImplemented
	KindConnectionLost
	KindTimeout
	KindRequest
)

// Error wraps a vfs-level failure with its kind and the path it occurred
// on. Session-surface adapters switch on Kind; they never inspect Err
// directly except via errors.Is/errors.As for logging.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vfs: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// classifyBackendError maps a swiftclient sentinel error to a vfs ErrorKind.
// Non-sentinel errors (network failures, context cancellation) classify as
// KindRequest.
func classifyBackendError(path string, err error) *Error {
	switch {
	case errors.Is(err, swiftclient.ErrNotFound):
		return newError(KindNotFound, path, err)
	case errors.Is(err, swiftclient.ErrConflict):
		return newError(KindConflict, path, err)
	case errors.Is(err, swiftclient.ErrUnauthenticated):
		return newError(KindUnAuthenticated, path, err)
	case errors.Is(err, swiftclient.ErrUnauthorized):
		return newError(KindUnAuthorized, path, err)
	default:
		return newError(KindRequest, path, err)
	}
}

// IsNotFound reports whether err is (or wraps) a vfs NotFound error.
func IsNotFound(err error) bool {
	var verr *Error
	return errors.As(err, &verr) && verr.Kind == KindNotFound
}

// IsConflict reports whether err is (or wraps) a vfs Conflict error.
func IsConflict(err error) bool {
	var verr *Error
	return errors.As(err, &verr) && verr.Kind == KindConflict
}
