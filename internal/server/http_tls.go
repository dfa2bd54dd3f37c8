package server

import (
	"crypto/tls"
	"fmt"
	"net/http"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "server", "mutual":
	case "disabled", "":
		s.Logger.Info("TLS disabled, serving plain HTTP", "address", httpServer.Addr)
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certManager, err := NewCertificateManager(s.TLSConfig, s.observability, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	if err := certManager.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	s.CertificateManager = certManager

	tlsConfig, err := s.buildTLSConfig()
	if err != nil {
		_ = certManager.Stop()
		return err
	}
	httpServer.TLSConfig = tlsConfig

	s.Logger.Info("TLS enabled",
		"mode", s.TLSConfig.Mode,
		"address", httpServer.Addr,
		"auto_reload", s.TLSConfig.AutoReload.Enabled)
	return nil
}

// buildTLSConfig creates the TLS configuration. Certificates and client CAs
// are read from the certificate manager per handshake so reloads apply to
// new connections.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:     tlsMinVersion(s.TLSConfig.MinVersion),
		GetCertificate: s.CertificateManager.GetServerCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if len(s.TLSConfig.CipherSuites) > 0 {
		for _, suite := range s.TLSConfig.CipherSuites {
			id, ok := cipherSuiteID(suite)
			if !ok {
				return nil, fmt.Errorf("unknown cipher suite: %s", suite)
			}
			tlsConfig.CipherSuites = append(tlsConfig.CipherSuites, id)
		}
	}

	if s.TLSConfig.Mode == "mutual" {
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
		tlsConfig.ClientCAs = s.CertificateManager.ClientCAs()
		base := tlsConfig.Clone()
		tlsConfig.GetConfigForClient = func(*tls.ClientHelloInfo) (*tls.Config, error) {
			cfg := base.Clone()
			cfg.ClientCAs = s.CertificateManager.ClientCAs()
			return cfg, nil
		}
	}

	if s.TLSConfig.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
		s.Logger.Warn("TLS certificate verification is disabled (insecureSkipVerify=true)")
	}
	if s.TLSConfig.ServerName != "" {
		tlsConfig.ServerName = s.TLSConfig.ServerName
	}

	return tlsConfig, nil
}

func tlsMinVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuiteID looks a suite up by its IANA name among the suites Go
// supports, insecure ones excluded.
func cipherSuiteID(name string) (uint16, bool) {
	for _, suite := range tls.CipherSuites() {
		if suite.Name == name {
			return suite.ID, true
		}
	}
	return 0, false
}
