package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/observability"
	"resumatch/internal/watch"
)

// CertificateManager serves the current TLS certificate and client CA pool
// and swaps them when the files on disk change.
type CertificateManager struct {
	mu sync.RWMutex

	tlsConfig  config.TLSConfig
	serverCert *tls.Certificate
	caPool     *x509.CertPool
	notAfter   time.Time

	watcher *watch.FileWatcher
	om      *observability.ObservabilityManager
	logger  *errors.Logger

	reloadCount   int64
	reloadFailure int64
	lastReload    time.Time
	lastError     string
}

// NewCertificateManager loads the configured material. It fails when the
// initial certificate cannot be loaded.
func NewCertificateManager(tlsConfig config.TLSConfig, om *observability.ObservabilityManager, logger *errors.Logger) (*CertificateManager, error) {
	cm := &CertificateManager{
		tlsConfig: tlsConfig,
		om:        om,
		logger:    logger,
	}
	if err := cm.load(); err != nil {
		return nil, err
	}
	return cm, nil
}

// Start watches the certificate files when auto reload is on. Material
// given as content (from Vault) has no files and is never reloaded.
func (cm *CertificateManager) Start() error {
	if !cm.tlsConfig.AutoReload.Enabled || cm.tlsConfig.CertContent != "" {
		return nil
	}
	files := []string{cm.tlsConfig.CertFile, cm.tlsConfig.KeyFile}
	if cm.tlsConfig.Mode == "mutual" && cm.tlsConfig.CAContent == "" {
		files = append(files, cm.tlsConfig.CAFile)
	}

	cm.watcher = watch.New("tls", files, cm.tlsConfig.AutoReload.DebounceDelay, func() {
		_ = cm.Reload()
	}, cm.logger)
	return cm.watcher.Start()
}

// Stop stops watching.
func (cm *CertificateManager) Stop() error {
	if cm.watcher == nil {
		return nil
	}
	return cm.watcher.Stop()
}

// Reload re-reads the certificate material. On failure the previous
// material stays in use.
func (cm *CertificateManager) Reload() error {
	err := cm.load()

	cm.mu.Lock()
	cm.reloadCount++
	cm.lastReload = time.Now()
	if err != nil {
		cm.reloadFailure++
		cm.lastError = err.Error()
	} else {
		cm.lastError = ""
	}
	notAfter := cm.notAfter
	cm.mu.Unlock()

	cm.om.RecordCertReload(context.Background(), err == nil, notAfter)
	if err != nil {
		cm.logger.LogError(err, "Failed to reload TLS certificates")
		return err
	}
	cm.logger.Info("TLS certificates reloaded", "not_after", notAfter)
	return nil
}

// GetServerCertificate is the tls.Config GetCertificate hook.
func (cm *CertificateManager) GetServerCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.serverCert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cm.serverCert, nil
}

// ClientCAs returns the current pool for verifying client certificates.
func (cm *CertificateManager) ClientCAs() *x509.CertPool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.caPool
}

// CheckExpiry returns the time left until the served certificate expires.
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.notAfter.IsZero() {
		return 0, fmt.Errorf("certificate expiry is unknown")
	}
	return time.Until(cm.notAfter), nil
}

// Stats describes reload activity for the health endpoint.
func (cm *CertificateManager) Stats() map[string]any {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := map[string]any{
		"enabled":         cm.watcher != nil,
		"reload_count":    cm.reloadCount,
		"reload_failures": cm.reloadFailure,
		"not_after":       cm.notAfter,
	}
	if cm.watcher != nil {
		stats["watcher_running"] = cm.watcher.IsRunning()
		stats["watched_files"] = cm.watcher.Files()
	}
	if !cm.lastReload.IsZero() {
		stats["last_reload"] = cm.lastReload
	}
	if cm.lastError != "" {
		stats["last_error"] = cm.lastError
	}
	return stats
}

// load reads everything first and swaps only when all of it parsed.
func (cm *CertificateManager) load() error {
	cert, err := loadServerCertificate(cm.tlsConfig)
	if err != nil {
		return err
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	var pool *x509.CertPool
	if cm.tlsConfig.Mode == "mutual" {
		if pool, err = loadCACertificatePool(cm.tlsConfig); err != nil {
			return err
		}
	}

	cm.mu.Lock()
	cm.serverCert = &cert
	cm.caPool = pool
	cm.notAfter = leaf.NotAfter
	cm.mu.Unlock()
	return nil
}

// loadServerCertificate loads the key pair from content (preferred, set by
// Vault) or from files.
func loadServerCertificate(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertContent != "" && cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
		return cert, nil
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
}

func loadCACertificatePool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}
