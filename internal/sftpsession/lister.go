package sftpsession

import (
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

// entryInfo implements os.FileInfo over a vfs.Entry or vfs.Stat, the shape
// sftp.ListerAt requires for List/Stat responses. Owner/group are the fixed
// synthetic values vfs.SyntheticOwnerGroup describes; there is no per-object
// ownership in the backend.
type entryInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func infoFromEntry(e vfs.Entry) *entryInfo {
	return &entryInfo{name: e.Name, size: e.Stat.Size, isDir: e.IsDir, modTime: e.Stat.ModTime}
}

func infoFromStat(name string, s vfs.Stat) *entryInfo {
	return &entryInfo{name: name, size: s.Size, isDir: s.IsDir, modTime: s.ModTime}
}

func (e *entryInfo) Name() string { return e.name }
func (e *entryInfo) Size() int64  { return e.size }

func (e *entryInfo) Mode() os.FileMode {
	if e.isDir {
		return os.ModeDir | 0o700
	}

	return 0o600
}

func (e *entryInfo) ModTime() time.Time { return e.modTime }
func (e *entryInfo) IsDir() bool        { return e.isDir }

func (e *entryInfo) Sys() interface{} {
	owner := uint32(vfs.SyntheticOwnerGroup)

	return &sftp.FileStat{
		Size:  uint64(e.size),
		Mode:  uint32(e.Mode()),
		Mtime: uint32(e.modTime.Unix()),
		Atime: uint32(e.modTime.Unix()),
		UID:   owner,
		GID:   owner,
	}
}

// listerat implements sftp.ListerAt over an already-materialized slice of
// os.FileInfo, the same fixed-snapshot approach the surveyed pkg/sftp
// servers use (vfs.List has already fetched every listing page before the
// listerat is built, so there is no benefit to a lazy iterator here).
type listerat []os.FileInfo

func (l listerat) ListAt(dst []os.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}

	n := copy(dst, l[offset:])
	if offset+int64(n) >= int64(len(l)) {
		return n, io.EOF
	}

	return n, nil
}
