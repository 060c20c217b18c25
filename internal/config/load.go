package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// Load reads path's [section] block over the built-in defaults. Any CLI
// flag values supplied in overrides are applied last, taking precedence
// over both the default and the file, matching the layering spec.md §6
// describes ("single INI-style file ... overrides from CLI flags").
func Load(path, section string, overrides *Settings) (*Settings, error) {
	s := DefaultSettings(section)

	if path != "" {
		cfg, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}

		sec, err := cfg.GetSection(section)
		if err != nil {
			return nil, fmt.Errorf("config: section [%s] not found in %s: %w", section, path, err)
		}

		if err := sec.MapTo(s); err != nil {
			return nil, fmt.Errorf("config: parsing section [%s]: %w", section, err)
		}
	}

	applyOverrides(s, overrides)

	if err := validate(s); err != nil {
		return nil, err
	}

	return s, nil
}

// applyOverrides copies every non-zero-value field of overrides onto s.
// Only the string/int/bool primitive fields the CLI flags can set are
// considered; a Settings built for this purpose should leave untouched
// fields at their Go zero value.
func applyOverrides(s, overrides *Settings) {
	if overrides == nil {
		return
	}

	if overrides.AuthURL != "" {
		s.AuthURL = overrides.AuthURL
	}
	if overrides.Host != "" {
		s.Host = overrides.Host
	}
	if overrides.Port != 0 {
		s.Port = overrides.Port
	}
	if overrides.PrivKey != "" {
		s.PrivKey = overrides.PrivKey
	}
	if overrides.PubKey != "" {
		s.PubKey = overrides.PubKey
	}
	if overrides.NumPersistentConnections != 0 {
		s.NumPersistentConnections = overrides.NumPersistentConnections
	}
	if overrides.NumConnectionsPerSession != 0 {
		s.NumConnectionsPerSession = overrides.NumConnectionsPerSession
	}
	if overrides.ConnectionTimeoutSeconds != 0 {
		s.ConnectionTimeoutSeconds = overrides.ConnectionTimeoutSeconds
	}
	if overrides.SessionsPerUser != 0 {
		s.SessionsPerUser = overrides.SessionsPerUser
	}
	if overrides.ExtraHeaders != "" {
		s.ExtraHeaders = overrides.ExtraHeaders
	}
	if overrides.WelcomeMessage != "" {
		s.WelcomeMessage = overrides.WelcomeMessage
	}
	if overrides.RewriteStorageScheme != "" {
		s.RewriteStorageScheme = overrides.RewriteStorageScheme
	}
	if overrides.RewriteStorageNetloc != "" {
		s.RewriteStorageNetloc = overrides.RewriteStorageNetloc
	}
	if overrides.Ciphers != "" {
		s.Ciphers = overrides.Ciphers
	}
	if overrides.Macs != "" {
		s.Macs = overrides.Macs
	}
	if overrides.Compressions != "" {
		s.Compressions = overrides.Compressions
	}
	if overrides.StatsHost != "" {
		s.StatsHost = overrides.StatsHost
	}
	if overrides.StatsPort != 0 {
		s.StatsPort = overrides.StatsPort
	}
	if overrides.Verbose {
		s.Verbose = true
	}
}

// ExtraHeaderPairs parses the comma-separated "k:v, k:v" extra_headers
// value into key/value pairs, trimming surrounding whitespace.
func ExtraHeaderPairs(raw string) [][2]string {
	if raw == "" {
		return nil
	}

	var out [][2]string

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}

		out = append(out, [2]string{strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])})
	}

	return out
}
