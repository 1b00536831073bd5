// Package devpki provides the local certificate authority and token issuer
// a single-process demo needs to stand in for the external PKI and OIDC
// identity provider original_source/client_example.py assumes are already
// running. Nothing here is meant for a real deployment: real operators
// provision CERTS_DIR from an actual CA and point Auth.Issuer at an actual
// OIDC provider, the way registry_server.py's TLS_CERT_DIR and auth.py's
// OIDC_ISSUER both imply.
package devpki

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// GenerateCertBundle writes ca.crt, server.crt/server.key, and
// client.crt/client.key into dir: a self-signed CA plus a server cert
// valid for localhost/127.0.0.1 and a client cert, both signed by that CA.
// This is the same three-file layout pkg/tlsconfig reads.
func GenerateCertBundle(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("devpki: create certs dir: %w", err)
	}

	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "capfabric-demo-ca"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caKey, err := writeCert(dir, "ca.crt", "ca.key", caTemplate, nil, nil)
	if err != nil {
		return err
	}

	serverTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	if _, err := writeCert(dir, "server.crt", "server.key", serverTemplate, caTemplate, caKey); err != nil {
		return err
	}

	clientTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "capfabric-demo-client"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	if _, err := writeCert(dir, "client.crt", "client.key", clientTemplate, caTemplate, caKey); err != nil {
		return err
	}

	return nil
}

func writeCert(dir, certName, keyName string, template, signer *x509.Certificate, signerKey *ecdsa.PrivateKey) (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("devpki: generate key: %w", err)
	}

	parent := template
	parentKey := key
	if signer != nil {
		parent = signer
		parentKey = signerKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, parentKey)
	if err != nil {
		return nil, fmt.Errorf("devpki: create certificate %s: %w", certName, err)
	}

	certOut := new(bytes.Buffer)
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, certName), certOut.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("devpki: write %s: %w", certName, err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("devpki: marshal key %s: %w", keyName, err)
	}
	keyOut := new(bytes.Buffer)
	if err := pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, keyName), keyOut.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("devpki: write %s: %w", keyName, err)
	}

	return key, nil
}
