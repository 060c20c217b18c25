package sftpsession

import (
	"context"
	"io"

	"github.com/pkg/sftp"

	"github.com/swftpgo/swftpgo/internal/gatewaysession"
	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/vfs"
)

// sftpHandler implements sftp.Handlers (Fileread, Filewrite, Filecmd,
// Filelist) over one gateway session's filesystem projection, grounded on
// the two pkg/sftp-based servers surveyed in other_examples/ and on
// original_source/swftp/sftp/server.py's SFTPServerForSwiftConchUser for
// the per-operation error-swallowing rules.
type sftpHandler struct {
	sess *gatewaysession.Session
	log  func(verb, path string)

	// writeBuffer, when set, reports how many bytes are currently queued
	// for delivery to this client so newly opened readerAts can feed
	// component F's downstream backpressure check (spec.md §4.F).
	writeBuffer downstreamBuffer
}

// Fileread implements sftp.FileReader.
func (h *sftpHandler) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	h.logCommand("read", r.Filepath)

	p := pathmodel.Split(r.Filepath)
	if !p.IsObjectLevel() {
		return nil, sftp.ErrSSHFxPermissionDenied
	}

	return newReaderAt(context.Background(), h.sess.FS, p, h.writeBuffer), nil
}

// Filewrite implements sftp.FileWriter.
func (h *sftpHandler) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	h.logCommand("write", r.Filepath)

	p := pathmodel.Split(r.Filepath)

	ctx := context.Background()

	up, err := h.sess.FS.OpenForWriting(ctx, p)
	if err != nil {
		return nil, mapError(err)
	}

	return newWriterAt(ctx, up), nil
}

// Filecmd implements sftp.FileCmder.
func (h *sftpHandler) Filecmd(r *sftp.Request) error {
	ctx := context.Background()
	p := pathmodel.Split(r.Filepath)

	switch r.Method {
	case "Remove":
		h.logCommand("remove", r.Filepath)

		// Idempotent under SFTP: a client retrying a delete it already
		// observed succeed must not see a failure on the second attempt.
		err := h.sess.FS.RemoveFile(ctx, p)
		if vfs.IsNotFound(err) {
			return nil
		}

		return mapError(err)

	case "Rename":
		h.logCommand("rename", r.Filepath)
		target := pathmodel.Split(r.Target)

		return mapError(h.sess.FS.Rename(ctx, p, target))

	case "Mkdir":
		h.logCommand("mkdir", r.Filepath)
		return mapError(h.sess.FS.MakeDirectory(ctx, p))

	case "Rmdir":
		h.logCommand("rmdir", r.Filepath)
		return mapError(h.sess.FS.RemoveDirectory(ctx, p))

	case "Setstat":
		// No per-object attribute storage in the backend; accepted as a
		// no-op so clients that set mtime/perms after upload don't fail.
		return nil

	case "Symlink":
		return sftp.ErrSSHFxOpUnsupported

	default:
		return sftp.ErrSSHFxOpUnsupported
	}
}

// Filelist implements sftp.FileLister.
func (h *sftpHandler) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	ctx := context.Background()
	p := pathmodel.Split(r.Filepath)

	switch r.Method {
	case "List":
		h.logCommand("list", r.Filepath)

		entries, err := h.sess.FS.List(ctx, p)
		if err != nil {
			return nil, mapError(err)
		}

		entries = vfs.WithDotEntries(entries, vfs.Stat{IsDir: true})

		infos := make(listerat, 0, len(entries))
		for _, e := range entries {
			infos = append(infos, infoFromEntry(e))
		}

		return infos, nil

	case "Stat":
		h.logCommand("stat", r.Filepath)

		stat, err := h.sess.FS.GetAttrs(ctx, p)
		if err != nil {
			return nil, mapError(err)
		}

		return listerat{infoFromStat(p.Base(), stat)}, nil

	case "Readlink":
		return nil, sftp.ErrSSHFxOpUnsupported

	default:
		return nil, sftp.ErrSSHFxOpUnsupported
	}
}

func (h *sftpHandler) logCommand(verb, path string) {
	if h.log != nil {
		h.log(verb, path)
	}
}
