package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateCACert creates a self-signed CA certificate and key.
func generateCACert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func TestNewHTTPClient_Default(t *testing.T) {
	c, err := NewHTTPClient(TLSOptions{})
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Zero(t, c.Timeout)
}

func TestNewHTTPClient_WithCertificates(t *testing.T) {
	certPEM, keyPEM := generateCACert(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "client.crt")
	keyPath := filepath.Join(dir, "client.key")
	caPath := filepath.Join(dir, "ca.crt")
	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caPath, certPEM, 0o600))

	c, err := NewHTTPClient(TLSOptions{CAFile: caPath, CertFile: certPath, KeyFile: keyPath})
	require.NoError(t, err)

	tcfg := c.Transport.(*http.Transport).TLSClientConfig
	assert.Len(t, tcfg.Certificates, 1)

	found := false
	//nolint:staticcheck // Subjects is fine for a pool built from PEM.
	for _, subj := range tcfg.RootCAs.Subjects() {
		if bytes.Contains(subj, []byte("Test CA")) {
			found = true
			break
		}
	}
	assert.True(t, found, "CA certificate not found in RootCAs")
}

func TestNewHTTPClient_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewHTTPClient(TLSOptions{CAFile: filepath.Join(dir, "missing.pem")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("invalid pem"), 0o600))
	_, err = NewHTTPClient(TLSOptions{CAFile: bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse CA cert")

	_, err = NewHTTPClient(TLSOptions{CertFile: bad, KeyFile: bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load client cert/key")
}
