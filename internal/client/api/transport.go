package api

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
)

// TLSOptions selects the certificates used to reach the API. All fields are
// optional; an empty value keeps the system default.
type TLSOptions struct {
	// CAFile is a PEM bundle used instead of the system roots.
	CAFile string
	// CertFile and KeyFile form a client certificate for mutual TLS.
	CertFile string
	KeyFile  string
}

// NewHTTPClient builds the HTTP client for the API. No client-side timeout
// is configured; requests are bounded by their context only.
func NewHTTPClient(opts TLSOptions) (*http.Client, error) {
	if opts.CAFile == "" && opts.CertFile == "" && opts.KeyFile == "" {
		return &http.Client{}, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if opts.CAFile != "" {
		caCert, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caPool
	}

	if opts.CertFile != "" || opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport}, nil
}
