package transport

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const pinPrefix = "sha256/"

// SPKIPin returns the "sha256/<base64>" pin of a certificate's public key.
func SPKIPin(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return pinPrefix + base64.StdEncoding.EncodeToString(sum[:])
}

// ParsePins validates pins of the form "sha256/<base64 of 32 bytes>".
func ParsePins(pins []string) ([][sha256.Size]byte, error) {
	out := make([][sha256.Size]byte, 0, len(pins))
	for _, p := range pins {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, pinPrefix) {
			return nil, fmt.Errorf("pin %q: missing %s prefix", p, pinPrefix)
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(p, pinPrefix))
		if err != nil {
			return nil, fmt.Errorf("pin %q: %w", p, err)
		}
		if len(raw) != sha256.Size {
			return nil, fmt.Errorf("pin %q: want %d bytes, got %d", p, sha256.Size, len(raw))
		}
		var d [sha256.Size]byte
		copy(d[:], raw)
		out = append(out, d)
	}
	return out, nil
}

// VerifyPins returns a VerifyPeerCertificate callback that accepts the
// handshake when any certificate in the presented chain matches a pin.
// Chain validation by crypto/tls still runs first.
func VerifyPins(pins [][sha256.Size]byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				continue
			}
			sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
			for _, p := range pins {
				if sum == p {
					return nil
				}
			}
		}
		return ErrPinMismatch
	}
}

// PinnedTransport clones base (or http.DefaultTransport) and enforces pins.
func PinnedTransport(base *http.Transport, pins []string) (*http.Transport, error) {
	parsed, err := ParsePins(pins)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.New("no certificate pins")
	}
	if base == nil {
		base = http.DefaultTransport.(*http.Transport)
	}
	t := base.Clone()
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	t.TLSClientConfig.MinVersion = tls.VersionTLS12
	t.TLSClientConfig.VerifyPeerCertificate = VerifyPins(parsed)
	return t, nil
}
