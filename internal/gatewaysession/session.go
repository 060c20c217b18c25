// Package gatewaysession bundles one authenticated backend connection with
// the filesystem projection built on top of it: the unit a protocol
// session surface (FTP or SFTP) holds for the lifetime of one logged-in
// client.
package gatewaysession

import (
	"log/slog"

	"github.com/swftpgo/swftpgo/internal/runtimeinfo"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
	"github.com/swftpgo/swftpgo/internal/transfer"
	"github.com/swftpgo/swftpgo/internal/vfs"
)

// Session is the per-client state a session surface carries from login to
// logout: the authenticated connection, its filesystem projection, and the
// username the session counter map and command log key off of.
type Session struct {
	Username string
	Conn     *swiftclient.Connection
	FS       *vfs.Filesystem

	// TrackerHandle is set by the daemon's session surface when a
	// runtimeinfo.Tracker is in use, so Close can unregister it. The zero
	// Handle means "not tracked".
	TrackerHandle runtimeinfo.Handle
}

// New builds a Session around an already-authenticated connection.
func New(conn *swiftclient.Connection, logger *slog.Logger, download transfer.DownloadConfig, upload transfer.UploadConfig) *Session {
	return &Session{
		Username: conn.Username(),
		Conn:     conn,
		FS:       vfs.NewFilesystem(conn, logger, download, upload),
	}
}

// Close releases the backend connection's pooled HTTP transport. Idempotent
// with the backend client's own Close semantics.
func (s *Session) Close() {
	s.Conn.Close()
}
