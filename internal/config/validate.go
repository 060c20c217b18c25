package config

import (
	"fmt"
	"strings"
)

// supportedCiphers/supportedMACs/supportedCompressions are the algorithm
// names golang.org/x/crypto/ssh.Config negotiates; a config file's
// ciphers/macs/compressions lists may only narrow this set, never extend
// it with an unsupported name (which would otherwise fail silently at
// the first SSH handshake instead of at startup).
var (
	supportedCiphers = map[string]bool{
		"aes128-gcm@openssh.com":         true,
		"aes256-gcm@openssh.com":         true,
		"chacha20-poly1305@openssh.com":  true,
		"aes128-ctr":                     true,
		"aes192-ctr":                     true,
		"aes256-ctr":                     true,
		"aes128-cbc":                     true,
		"3des-cbc":                       true,
	}

	supportedMACs = map[string]bool{
		"hmac-sha2-256-etm@openssh.com": true,
		"hmac-sha2-512-etm@openssh.com": true,
		"hmac-sha2-256":                 true,
		"hmac-sha2-512":                 true,
		"hmac-sha1":                     true,
		"hmac-sha1-96":                  true,
	}

	supportedCompressions = map[string]bool{
		"none":            true,
		"zlib@openssh.com": true,
	}
)

// validate checks the fully-layered Settings for internally-inconsistent
// or unsupported values before a daemon starts listening.
func validate(s *Settings) error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", s.Port)
	}

	if s.NumPersistentConnections < 0 {
		return fmt.Errorf("config: num_persistent_connections must be >= 0")
	}

	if s.NumConnectionsPerSession < 0 {
		return fmt.Errorf("config: num_connections_per_session must be >= 0")
	}

	if err := checkAllowList("ciphers", s.Ciphers, supportedCiphers); err != nil {
		return err
	}

	if err := checkAllowList("macs", s.Macs, supportedMACs); err != nil {
		return err
	}

	if err := checkAllowList("compressions", s.Compressions, supportedCompressions); err != nil {
		return err
	}

	return nil
}

func checkAllowList(field, csv string, allowed map[string]bool) error {
	for _, raw := range strings.Split(csv, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		if !allowed[name] {
			return fmt.Errorf("config: %s: unsupported algorithm %q", field, name)
		}
	}

	return nil
}
