package ftpsession

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swftpgo/swftpgo/internal/gatewaysession"
	"github.com/swftpgo/swftpgo/internal/metrics"
	"github.com/swftpgo/swftpgo/internal/runtimeinfo"
	"github.com/swftpgo/swftpgo/internal/sessionlimit"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
	"github.com/swftpgo/swftpgo/internal/transfer"
)

// Factory builds one Shell per successful USER/PASS exchange. It is the
// seam an external FTP command-protocol library's realm/checker plugs
// into: that library owns parsing the control connection and the
// data-transfer-connection setup; everything on this side of the call is
// ours.
type Factory struct {
	Auth     *swiftclient.Authenticator
	Limiter  *sessionlimit.Limiter
	Tracker  *runtimeinfo.Tracker
	Download transfer.DownloadConfig
	Upload   transfer.UploadConfig
	Logger   *slog.Logger
	Metrics  *metrics.Registry
}

// NewShell authenticates username/password against the backend and
// returns a ready-to-use Shell, mirroring
// SwiftBasedAuthDB.requestAvatarId's login-then-build-avatar flow. The
// caller must call the returned Shell's Logout when the control
// connection closes.
func (f *Factory) NewShell(ctx context.Context, username, password string) (*Shell, error) {
	if f.Limiter != nil && !f.Limiter.TryAcquire(username) {
		return nil, fmt.Errorf("ftpsession: user %q already at session limit", username)
	}

	conn, err := f.Auth.Login(ctx, swiftclient.Credentials{Username: username, APIKey: password})
	if err != nil {
		if f.Limiter != nil {
			f.Limiter.Release(username)
		}

		return nil, err
	}

	gw := gatewaysession.New(conn, f.Logger, f.Download, f.Upload)

	if f.Tracker != nil {
		gw.TrackerHandle = f.Tracker.Register(username)
	}

	return NewShell(gw, f.Logger, f.Metrics), nil
}

// Release tears down bookkeeping for a Shell built by NewShell, once the
// control connection closes. The caller is still responsible for calling
// Shell.Logout itself.
func (f *Factory) Release(s *Shell) {
	if f.Tracker != nil {
		f.Tracker.Unregister(s.sess.TrackerHandle)
	}

	if f.Limiter != nil {
		f.Limiter.Release(s.sess.Username)
	}
}
