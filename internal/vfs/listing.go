package vfs

import (
	"context"

	"github.com/swftpgo/swftpgo/internal/pathmodel"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
)

// Entry is one row of a directory listing: an object, container, or
// synthesized pseudo-directory stub.
type Entry struct {
	Name  string // last path segment, trailing '/' stripped
	IsDir bool
	Stat  Stat
}

// listPageSize bounds each backend listing page; paginated by marker until
// a page comes back empty, mirroring get_full_listing's
// "stop at the first empty page" termination.
const listPageSize = 10000

// listAccount accumulates the full account listing (every container),
// paginating on marker until a page comes back empty.
func (fs *Filesystem) listAccount(ctx context.Context) ([]Entry, error) {
	var out []Entry
	marker := ""

	for {
		page, err := fs.conn.GetAccount(ctx, swiftclient.ListOptions{Limit: listPageSize, Marker: marker})
		if err != nil {
			return nil, classifyBackendError("/", err)
		}

		if len(page) == 0 {
			return out, nil
		}

		for _, e := range page {
			out = append(out, Entry{
				Name:  e.Name,
				IsDir: true,
				Stat:  syntheticDirStat(),
			})
			marker = e.Name
		}
	}
}

// listContainer accumulates a delimited container listing under the given
// object prefix (empty prefix lists the container root), flattening
// subdir stubs into pseudo-directory entries.
func (fs *Filesystem) listContainer(ctx context.Context, container, prefix string) ([]Entry, error) {
	var out []Entry
	marker := ""

	queryPrefix := ""
	if prefix != "" {
		queryPrefix = prefix + "/"
	}

	for {
		page, err := fs.conn.GetContainer(ctx, container, swiftclient.ListOptions{
			Limit:     listPageSize,
			Marker:    marker,
			Prefix:    queryPrefix,
			Delimiter: "/",
		})
		if err != nil {
			return nil, classifyBackendError(pathmodel.Join(container, prefix).Join(), err)
		}

		if len(page) == 0 {
			return out, nil
		}

		for _, e := range page {
			name := e.EntryName()
			isDir := e.IsSubdirStub()

			formatted := pathmodel.Join(container, name).Base()

			entry := Entry{Name: formatted, IsDir: isDir}
			if isDir {
				entry.Stat = syntheticDirStat()
			} else {
				entry.Stat = Stat{Size: e.Bytes, ModTime: parseLastModified(e.LastModified)}
			}

			out = append(out, entry)
			marker = name
		}
	}
}

// WithDotEntries prepends "." and ".." placeholder rows, as SFTP clients
// require but FTP's LIST must omit; callers decide whether to apply this.
func WithDotEntries(entries []Entry, dirStat Stat) []Entry {
	out := make([]Entry, 0, len(entries)+2)
	out = append(out, Entry{Name: ".", IsDir: true, Stat: dirStat})
	out = append(out, Entry{Name: "..", IsDir: true, Stat: dirStat})

	return append(out, entries...)
}
