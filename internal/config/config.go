// Package config implements INI configuration loading, validation, and
// defaults-then-file-then-CLI-override layering for the FTP and SFTP
// gateway daemons.
package config

// Settings is the top-level configuration structure. Section carries
// "ftp" or "sftp" depending on which daemon loaded it; both sections
// share this shape since every key in spec's config table applies to
// both protocols except where a daemon simply never reads a field (FTP
// ignores PrivKey/PubKey/Ciphers/Macs/Compressions).
type Settings struct {
	AuthURL string `ini:"auth_url"`
	Host    string `ini:"host"`
	Port    int    `ini:"port"`

	PrivKey string `ini:"priv_key"`
	PubKey  string `ini:"pub_key"`

	NumPersistentConnections int `ini:"num_persistent_connections"`
	NumConnectionsPerSession int `ini:"num_connections_per_session"`
	ConnectionTimeoutSeconds int `ini:"connection_timeout"`
	SessionsPerUser          int `ini:"sessions_per_user"`

	ExtraHeaders string `ini:"extra_headers"`

	WelcomeMessage string `ini:"welcome_message"`

	RewriteStorageScheme string `ini:"rewrite_storage_scheme"`
	RewriteStorageNetloc string `ini:"rewrite_storage_netloc"`

	Ciphers       string `ini:"ciphers"`
	Macs          string `ini:"macs"`
	Compressions  string `ini:"compressions"`

	LogStatsdHost string `ini:"log_statsd_host"`
	LogStatsdPort int    `ini:"log_statsd_port"`

	StatsHost string `ini:"stats_host"`
	StatsPort int    `ini:"stats_port"`

	Verbose bool `ini:"verbose"`
}
