package tlsutil

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeFingerprint lowercases a SHA256 fingerprint and strips colon separators.
func NormalizeFingerprint(fingerprint string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fingerprint), ":", ""))
}

// Fingerprint returns the hex SHA256 fingerprint of a DER encoded certificate.
func Fingerprint(rawCert []byte) string {
	sum := sha256.Sum256(rawCert)
	return hex.EncodeToString(sum[:])
}

// FingerprintVerifier creates a TLS config that pins the server leaf certificate
// to the given fingerprint instead of validating it against the system roots.
// Useful for self-hosted trackers behind an internal CA.
func FingerprintVerifier(fingerprint string) *tls.Config {
	expected := NormalizeFingerprint(fingerprint)

	return &tls.Config{
		InsecureSkipVerify: true, // verification happens in VerifyPeerCertificate
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("no certificates presented by server")
			}

			actual := Fingerprint(rawCerts[0])
			if actual != expected {
				return fmt.Errorf("certificate fingerprint mismatch: expected %s, got %s", expected, actual)
			}
			return nil
		},
	}
}
