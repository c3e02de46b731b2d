// Package main generates a development CA plus server and customer
// certificates for running the client with mutual TLS. The files are
// written under -dir and match the client's -ca, -cert and -key flags.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/GophBank/internal/certgen"
)

type options struct {
	dir    string
	client string
	hosts  string
	caCert string
	caKey  string
}

func main() {
	var opts options
	flag.StringVar(&opts.dir, "dir", "certs", "output directory")
	flag.StringVar(&opts.client, "client", "customer", "common name of the client certificate")
	flag.StringVar(&opts.hosts, "hosts", "localhost,127.0.0.1", "comma separated server host names and IPs")
	flag.StringVar(&opts.caCert, "ca-cert", "", "existing CA certificate to sign with")
	flag.StringVar(&opts.caKey, "ca-key", "", "existing CA key to sign with")
	flag.Parse()

	if err := generate(opts); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}

	fmt.Printf("Certificates generated into %s\n", opts.dir)
	fmt.Printf("Run the client with -ca %s -cert %s -key %s\n",
		filepath.Join(opts.dir, "ca.crt"),
		filepath.Join(opts.dir, "client.crt"),
		filepath.Join(opts.dir, "client.key"))
}

// generate writes ca.crt/ca.key (unless an existing CA is given),
// server.crt/server.key and client.crt/client.key into opts.dir.
func generate(opts options) error {
	path := func(name string) string { return filepath.Join(opts.dir, name) }

	var (
		ca  *certgen.Pair
		err error
	)
	if opts.caCert != "" || opts.caKey != "" {
		ca, err = certgen.LoadCA(opts.caCert, opts.caKey)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(opts.dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", opts.dir, err)
		}
		if err := os.WriteFile(path("ca.crt"), ca.CertPEM, 0o644); err != nil {
			return fmt.Errorf("write ca cert: %w", err)
		}
	} else {
		ca, err = certgen.NewCA("GophBank CA", certgen.CAValidity)
		if err != nil {
			return err
		}
		if err := ca.WriteFiles(path("ca.crt"), path("ca.key")); err != nil {
			return err
		}
	}

	server, err := certgen.Issue(ca, "localhost", certgen.ServerAuth, certgen.CertValidity, splitHosts(opts.hosts)...)
	if err != nil {
		return fmt.Errorf("issue server cert: %w", err)
	}
	if err := server.WriteFiles(path("server.crt"), path("server.key")); err != nil {
		return err
	}

	client, err := certgen.Issue(ca, opts.client, certgen.ClientAuth, certgen.CertValidity)
	if err != nil {
		return fmt.Errorf("issue client cert: %w", err)
	}
	return client.WriteFiles(path("client.crt"), path("client.key"))
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
