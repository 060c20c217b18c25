package vfs

import (
	"net/http"
	"strconv"
	"time"
)

// Fixed synthetic owner/group, per spec.md §3 ("owner/group: fixed
// nobody/nobody numeric 65535").
const SyntheticOwnerGroup = 65535

// directoryContentType marks an object as a pseudo-directory.
const directoryContentType = "application/directory"

// Stat is the synthetic attribute set derivable for any listed entity
// without an extra backend round trip.
type Stat struct {
	Size    int64
	IsDir   bool
	ModTime time.Time
}

// dateFormats mirrors original_source/swftp/utils.py's DATE_FORMATS list:
// several last_modified encodings are tried in order since the backend's
// format varies slightly between account/container/object responses.
var dateFormats = []string{
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	time.RFC3339Nano,
	"Mon, 02 Jan 2006 15:04:05 GMT",
}

// parseLastModified tries every known backend timestamp encoding in turn,
// falling back to the current time if none match — a stat is always
// derivable even when the backend's time format is unrecognized.
func parseLastModified(s string) time.Time {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}

	return time.Now().UTC()
}

// statFromHeaders builds a Stat from a HEAD response's normalized headers
// (already lower-cased, single-valued).
func statFromHeaders(h http.Header, isContainerOrAccount bool) Stat {
	size, _ := strconv.ParseInt(h.Get("content-length"), 10, 64)

	isDir := isContainerOrAccount || h.Get("content-type") == directoryContentType

	return Stat{
		Size:    size,
		IsDir:   isDir,
		ModTime: parseLastModified(h.Get("last-modified")),
	}
}

// syntheticDirStat builds the directory stat synthesized when an object
// path doesn't exist but is a non-empty prefix of other objects (the
// "STAT a path that exists only as a prefix" testable property).
func syntheticDirStat() Stat {
	return Stat{Size: 0, IsDir: true, ModTime: time.Now().UTC()}
}
