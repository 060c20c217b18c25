package config

// DefaultSettings returns the built-in defaults, the first layer applied
// before a config file and CLI flags override individual keys.
func DefaultSettings(section string) *Settings {
	s := &Settings{
		AuthURL:                  "http://127.0.0.1:8080/auth/v1.0",
		Host:                     "0.0.0.0",
		NumPersistentConnections: 20,
		NumConnectionsPerSession: 10,
		ConnectionTimeoutSeconds: 10,
		SessionsPerUser:          10,
		WelcomeMessage:           "Welcome to swftp",
		Ciphers:                  defaultCiphers,
		Macs:                     defaultMACs,
		Compressions:             defaultCompressions,
		StatsHost:                "127.0.0.1",
		StatsPort:                38000,
	}

	switch section {
	case "ftp":
		s.Port = 5021
	case "sftp":
		s.Port = 5022
		s.PrivKey = "id_rsa"
		s.PubKey = "id_rsa.pub"
	}

	return s
}

// defaultCiphers/defaultMACs/defaultCompressions mirror the algorithm
// allow-lists golang.org/x/crypto/ssh.Config negotiates by default; listed
// explicitly so an operator's config file can narrow, not widen, them.
const (
	defaultCiphers      = "aes128-gcm@openssh.com,aes256-gcm@openssh.com,chacha20-poly1305@openssh.com,aes128-ctr,aes192-ctr,aes256-ctr"
	defaultMACs         = "hmac-sha2-256-etm@openssh.com,hmac-sha2-512-etm@openssh.com,hmac-sha2-256,hmac-sha2-512"
	defaultCompressions = "none"
)
