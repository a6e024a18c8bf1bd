package tokenstore

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	frameVersionCurrent = 1
)

// ErrMalformedFrame is returned when a stored value cannot be parsed.
var ErrMalformedFrame = errors.New("malformed sealed entry")

func encodeFrame(nonce, ciphertext []byte) []byte {
	out := make([]byte, 0, 1+len(nonce)+len(ciphertext))
	out = append(out, frameVersionCurrent)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out
}

func decodeFrame(b []byte) (nonce, ciphertext []byte, err error) {
	if len(b) < 1 {
		return nil, nil, ErrMalformedFrame
	}

	switch b[0] {
	case frameVersionCurrent:
		rest := b[1:]
		if len(rest) < chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
			return nil, nil, ErrMalformedFrame
		}
		return rest[:chacha20poly1305.NonceSizeX], rest[chacha20poly1305.NonceSizeX:], nil
	default:
		return nil, nil, errors.New("unsupported sealed entry version")
	}
}
