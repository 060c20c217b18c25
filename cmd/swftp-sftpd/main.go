// Command swftp-sftpd serves an SFTP gateway onto an OpenStack Swift
// backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/swftpgo/swftpgo/internal/config"
	"github.com/swftpgo/swftpgo/internal/metrics"
	"github.com/swftpgo/swftpgo/internal/runtimeinfo"
	"github.com/swftpgo/swftpgo/internal/sftpsession"
	"github.com/swftpgo/swftpgo/internal/swiftclient"
	"github.com/swftpgo/swftpgo/internal/transfer"
)

// version is set at build time via ldflags.
var version = "dev"

var flags struct {
	configFile string
	authURL    string
	host       string
	port       int
	privKey    string
	pubKey     string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "swftp-sftpd",
		Short:   "SFTP gateway onto an OpenStack Swift object store",
		Version: version,
		RunE:    runDaemon,
	}

	cmd.Flags().StringVarP(&flags.configFile, "config-file", "c", "", "location of the swftp config file")
	cmd.Flags().StringVarP(&flags.authURL, "auth-url", "a", "", "Swift auth URL (overrides config file)")
	cmd.Flags().StringVarP(&flags.host, "host", "H", "", "IP to bind to")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "port to bind to")
	cmd.Flags().StringVar(&flags.privKey, "priv-key", "", "SSH host private key location")
	cmd.Flags().StringVar(&flags.pubKey, "pub-key", "", "SSH host public key location (unused; the private key's public half is derived)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "make the server more talkative")

	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	overrides := &config.Settings{
		AuthURL: flags.authURL,
		Host:    flags.host,
		Port:    flags.port,
		PrivKey: flags.privKey,
		PubKey:  flags.pubKey,
		Verbose: flags.verbose,
	}

	cfg, err := config.Load(flags.configFile, "sftp", overrides)
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	hostKey, err := loadHostKey(cfg.PrivKey)
	if err != nil {
		return fmt.Errorf("swftp-sftpd: %w", err)
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	tracker := runtimeinfo.NewTracker()
	backendTransport := runtimeinfo.NewCountingTransport(nil)

	auth := &swiftclient.Authenticator{
		AuthURL:               cfg.AuthURL,
		ExtraHeaders:          headerPairs(config.ExtraHeaderPairs(cfg.ExtraHeaders)),
		UserAgent:             "swftpgo-sftpd/" + version,
		Rewrite:               rewriteFromConfig(cfg),
		Logger:                logger,
		PerSessionConcurrency: int64(cfg.NumConnectionsPerSession),
		GlobalConcurrency:     int64(cfg.NumPersistentConnections),
		ConnectionTimeout:     time.Duration(cfg.ConnectionTimeoutSeconds) * time.Second,
		Transport:             backendTransport,
		AuthSucceed:           func() { reg.Incr("auth.succeed") },
		AuthFail:              func() { reg.Incr("auth.fail") },
	}

	server := sftpsession.New(sftpsession.Config{
		Addr:            cfg.Host + ":" + strconv.Itoa(cfg.Port),
		HostKeys:        []ssh.Signer{hostKey},
		Auth:            auth,
		SessionsPerUser: cfg.SessionsPerUser,
		Ciphers:         splitCSV(cfg.Ciphers),
		MACs:            splitCSV(cfg.Macs),
		Download:        transfer.DownloadConfig{},
		Upload:          transfer.UploadConfig{},
		Logger:          logger,
		Metrics:         reg,
		Tracker:         tracker,
	})

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	diag := &runtimeinfo.Handlers{Tracker: tracker, Backend: backendTransport, Logger: logger}
	stopDiag := diag.Install(ctx)
	defer stopDiag()

	go reg.RunSampler(ctx, time.Second)

	var statsServer *http.Server
	if cfg.StatsPort != 0 {
		statsServer = metrics.NewStatsServer(cfg.StatsHost+":"+strconv.Itoa(cfg.StatsPort), reg)

		go func() {
			if err := statsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("stats server failed", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()

		if statsServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			_ = statsServer.Shutdown(shutdownCtx)
		}

		_ = server.Close()
	}()

	logger.Info("swftp-sftpd starting", "version", version, "addr", cfg.Host+":"+strconv.Itoa(cfg.Port))

	if err := server.ListenAndServe(); err != nil {
		return err
	}

	return nil
}

func loadHostKey(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host key %s: %w", path, err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing host key %s: %w", path, err)
	}

	return signer, nil
}

func splitCSV(raw string) []string {
	var out []string

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

func headerPairs(pairs [][2]string) []swiftclient.HeaderPair {
	out := make([]swiftclient.HeaderPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, swiftclient.HeaderPair{Key: p[0], Value: p[1]})
	}

	return out
}

func rewriteFromConfig(cfg *config.Settings) *swiftclient.URLRewrite {
	if cfg.RewriteStorageScheme == "" && cfg.RewriteStorageNetloc == "" {
		return nil
	}

	return &swiftclient.URLRewrite{Scheme: cfg.RewriteStorageScheme, Netloc: cfg.RewriteStorageNetloc}
}
