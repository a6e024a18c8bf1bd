package tokenstore

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrKeySize is returned when a raw key is not 32 bytes.
	ErrKeySize = errors.New("encryption key must be 32 bytes")
	// ErrTampered is returned when a sealed frame fails authentication.
	ErrTampered = errors.New("sealed entry failed authentication")
)

// KeyParams configures Argon2id key derivation.
type KeyParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKeyParams returns the derivation cost used when none is configured.
func DefaultKeyParams() KeyParams {
	return KeyParams{
		Time:    3,
		Memory:  64 * 1024,
		Threads: 2,
	}
}

// DeriveKey stretches passphrase and salt into a 32-byte entry key.
func DeriveKey(passphrase, salt []byte, p KeyParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("empty passphrase")
	}
	if len(salt) < 16 {
		return nil, errors.New("salt must be at least 16 bytes")
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		p = DefaultKeyParams()
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize), nil
}

// Cipher seals entry values with XChaCha20-Poly1305.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a [Cipher] over a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext for entry name and returns a framed value.
func (c *Cipher) Seal(name string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	ct := c.aead.Seal(nil, nonce, plaintext, []byte(name))
	return encodeFrame(nonce, ct), nil
}

// Open authenticates and decrypts a framed value stored under name.
func (c *Cipher) Open(name string, framed []byte) ([]byte, error) {
	nonce, ct, err := decodeFrame(framed)
	if err != nil {
		return nil, err
	}
	pt, err := c.aead.Open(nil, nonce, ct, []byte(name))
	if err != nil {
		return nil, ErrTampered
	}
	return pt, nil
}
