package ftpsession

import (
	"context"

	"github.com/swftpgo/swftpgo/internal/vfs"
)

// StatField names one column an external FTP library may request for a
// STAT/LIST reply, mirroring the key strings stat_format switches on.
type StatField string

const (
	FieldSize        StatField = "size"
	FieldDirectory   StatField = "directory"
	FieldPermissions StatField = "permissions"
	FieldHardlinks   StatField = "hardlinks"
	FieldModified    StatField = "modified"
	FieldOwner       StatField = "owner"
	FieldGroup       StatField = "group"
)

// dirPermissions and filePermissions mirror swift_stat's fixed mode bits:
// directories are 0700 with the directory bit set, files are 0600.
const (
	dirPermissions  = 0o40700
	filePermissions = 0o100600
)

// formatStat projects stat onto the requested fields, in order, the way
// stat_format(keys, props) builds its reply list. Owner and group are
// always "nobody" and hardlinks is always 0, since the backend tracks
// neither.
func formatStat(keys []StatField, stat vfs.Stat) []any {
	row := make([]any, 0, len(keys))

	for _, key := range keys {
		switch key {
		case FieldSize:
			row = append(row, stat.Size)
		case FieldDirectory:
			row = append(row, stat.IsDir)
		case FieldPermissions:
			if stat.IsDir {
				row = append(row, dirPermissions)
			} else {
				row = append(row, filePermissions)
			}
		case FieldHardlinks:
			row = append(row, 0)
		case FieldModified:
			row = append(row, stat.ModTime.Unix())
		case FieldOwner, FieldGroup:
			row = append(row, "nobody")
		default:
			row = append(row, "")
		}
	}

	return row
}

// ListEntry is one row of a directory listing: the entry's name paired
// with its formatted stat columns.
type ListEntry struct {
	Name string
	Row  []any
}

// Stat returns the formatted attribute row for a single path.
func (s *Shell) Stat(ctx context.Context, path []string, keys []StatField) ([]any, error) {
	s.logCommand("stat", pathJoin(path))

	stat, err := s.sess.FS.GetAttrs(ctx, fullPath(path))
	if err != nil {
		return nil, translate(err)
	}

	return formatStat(keys, stat), nil
}

// List returns the formatted attribute rows for every entry directly
// under path.
func (s *Shell) List(ctx context.Context, path []string, keys []StatField) ([]ListEntry, error) {
	s.logCommand("list", pathJoin(path))

	entries, err := s.sess.FS.List(ctx, fullPath(path))
	if err != nil {
		return nil, translate(err)
	}

	rows := make([]ListEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, ListEntry{Name: e.Name, Row: formatStat(keys, e.Stat)})
	}

	return rows, nil
}
