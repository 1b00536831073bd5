// Package tlsconfig builds mTLS server and client credentials from a
// directory of PEM material (CERTS_DIR), the same three files
// original_source/registry_server.py loads before calling
// grpc.ssl_server_credentials(..., require_client_auth=True): server.crt,
// server.key, ca.crt. The mTLS handshake itself remains the out-of-scope
// transport collaborator; only assembling tls.Config /
// credentials.TransportCredentials from those files is this package's job.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/grpc/credentials"
)

// ServerCredentials loads server.crt/server.key/ca.crt from certsDir and
// returns gRPC transport credentials requiring client certificates signed
// by ca.crt.
func ServerCredentials(certsDir string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(filepath.Join(certsDir, "server.crt"), filepath.Join(certsDir, "server.key"))
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: load server keypair: %w", err)
	}

	pool, err := loadCAPool(filepath.Join(certsDir, "ca.crt"))
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}), nil
}

// ClientCredentials loads client.crt/client.key/ca.crt from certsDir and
// returns gRPC transport credentials presenting a client certificate
// verified against ca.crt, authenticating to serverName.
func ClientCredentials(certsDir, serverName string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(filepath.Join(certsDir, "client.crt"), filepath.Join(certsDir, "client.key"))
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: load client keypair: %w", err)
	}

	pool, err := loadCAPool(filepath.Join(certsDir, "ca.crt"))
	if err != nil {
		return nil, err
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}), nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tlsconfig: read ca bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tlsconfig: no valid certificates found in %s", path)
	}
	return pool, nil
}
