package common

import (
	"crypto/tls"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpsFilesPresent(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &ServerConfig{HttpsKeyFile: "key.pem", HttpsCertFile: "cert.pem"}

	assert.False(t, HttpsFilesPresent(fs, cfg))

	require.NoError(t, afero.WriteFile(fs, "key.pem", []byte("k"), 0o600))
	assert.False(t, HttpsFilesPresent(fs, cfg), "certificate still missing")

	require.NoError(t, afero.WriteFile(fs, "cert.pem", []byte("c"), 0o600))
	assert.True(t, HttpsFilesPresent(fs, cfg))

	assert.False(t, HttpsFilesPresent(fs, nil))
}

func TestCreateServerTLSConfig_InvalidPair(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "key.pem", []byte("not a key"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "cert.pem", []byte("not a cert"), 0o600))

	_, err := CreateServerTLSConfig(fs, &ServerConfig{HttpsKeyFile: "key.pem", HttpsCertFile: "cert.pem"}, nil)
	assert.Error(t, err)
}

func TestCreateServerTLSConfig_MissingFile(t *testing.T) {
	_, err := CreateServerTLSConfig(afero.NewMemMapFs(), &ServerConfig{HttpsKeyFile: "key.pem", HttpsCertFile: "cert.pem"}, nil)
	assert.ErrorContains(t, err, "failed to read cert file")
}

func TestCreateServerTLSConfig_ClientAuth(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "key.pem", testKeyPEM, 0o600))
	require.NoError(t, afero.WriteFile(fs, "cert.pem", testCertPEM, 0o600))

	cfg := &ServerConfig{HttpsKeyFile: "key.pem", HttpsCertFile: "cert.pem"}
	plain, err := CreateServerTLSConfig(fs, cfg, []string{"http/1.1"})
	require.NoError(t, err)
	assert.Equal(t, tls.NoClientCert, plain.ClientAuth)
	assert.Equal(t, []string{"http/1.1"}, plain.NextProtos)
	assert.Equal(t, uint16(tls.VersionTLS12), plain.MinVersion)

	cfg.MtlsEnabled = true
	mtls, err := CreateServerTLSConfig(fs, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, tls.RequestClientCert, mtls.ClientAuth)
}
