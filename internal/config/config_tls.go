package config

import "fmt"

// ValidateTLSConfig checks the TLS mode and that each piece of key material
// comes from exactly one source.
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	switch t.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}

	switch t.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}

	sources := []struct {
		name, file, content string
		required            bool
	}{
		{"cert", t.CertFile, t.CertContent, true},
		{"key", t.KeyFile, t.KeyContent, true},
		{"ca", t.CAFile, t.CAContent, t.Mode == "mutual"},
	}
	for _, s := range sources {
		if s.file != "" && s.content != "" {
			return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", s.name, s.name)
		}
		if s.required && s.file == "" && s.content == "" {
			return fmt.Errorf("TLS %s is required for %s mode (provide either %sFile or %sContent)", s.name, t.Mode, s.name, s.name)
		}
	}

	if t.Mode == "mutual" {
		switch t.ClientAuthPolicy {
		case "", "require", "request", "verify":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
		}
	}
	return nil
}
