package common

import (
	"crypto/tls"
	"fmt"

	"github.com/spf13/afero"
)

// HttpsFilesPresent reports whether both the key and certificate files exist.
// It is checked once at startup.
func HttpsFilesPresent(fs afero.Fs, cfg *ServerConfig) bool {
	if cfg == nil || cfg.HttpsKeyFile == "" || cfg.HttpsCertFile == "" {
		return false
	}
	if ok, err := afero.Exists(fs, cfg.HttpsKeyFile); err != nil || !ok {
		return false
	}
	if ok, err := afero.Exists(fs, cfg.HttpsCertFile); err != nil || !ok {
		return false
	}
	return true
}

// CreateServerTLSConfig creates a tls.Config for the HTTPS listener. When mTLS is
// enabled, client certificates are requested but never required nor verified.
func CreateServerTLSConfig(fs afero.Fs, cfg *ServerConfig, nextProtos []string) (*tls.Config, error) {
	certPEM, err := afero.ReadFile(fs, cfg.HttpsCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cert file: %w", err)
	}
	keyPEM, err := afero.ReadFile(fs, cfg.HttpsKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key pair: %w", err)
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   nextProtos,
	}
	if cfg.MtlsEnabled {
		config.ClientAuth = tls.RequestClientCert
	}

	return config, nil
}
