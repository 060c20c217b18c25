package sftpsession

import (
	"io"
	"os"
	"testing"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

func TestEntryInfoReflectsDirectoryMode(t *testing.T) {
	file := infoFromEntry(vfs.Entry{Name: "a.txt", IsDir: false, Stat: vfs.Stat{Size: 12}})
	assert.False(t, file.IsDir())
	assert.Equal(t, int64(12), file.Size())

	dir := infoFromEntry(vfs.Entry{Name: "sub", IsDir: true})
	assert.True(t, dir.IsDir())
	assert.True(t, dir.Mode().IsDir())
}

func TestEntryInfoSysCarriesSyntheticOwnership(t *testing.T) {
	info := infoFromStat("x", vfs.Stat{Size: 5})

	stat, ok := info.Sys().(*sftp.FileStat)
	require.True(t, ok)
	assert.Equal(t, uint32(vfs.SyntheticOwnerGroup), stat.UID)
	assert.Equal(t, uint32(vfs.SyntheticOwnerGroup), stat.GID)
	assert.Equal(t, uint64(5), stat.Size)
}

func TestListeratPaginatesAndSignalsEOF(t *testing.T) {
	entries := listerat{
		infoFromEntry(vfs.Entry{Name: "a"}),
		infoFromEntry(vfs.Entry{Name: "b"}),
		infoFromEntry(vfs.Entry{Name: "c"}),
	}

	buf := make([]os.FileInfo, 2)
	n, err := entries.ListAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "a", buf[0].Name())
	assert.Equal(t, "b", buf[1].Name())

	buf2 := make([]os.FileInfo, 2)
	n, err = entries.ListAt(buf2, 2)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "c", buf2[0].Name())

	buf3 := make([]os.FileInfo, 1)
	n, err = entries.ListAt(buf3, 3)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)
}
