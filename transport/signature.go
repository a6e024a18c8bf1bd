package transport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	mathrand "math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Signer produces X-App-Signature values.
type Signer struct {
	key         []byte
	fingerprint string
}

// NewSigner keys the HMAC with secret, or with the fingerprint when no
// secret is configured.
func NewSigner(secret []byte, fingerprint string) *Signer {
	key := secret
	if len(key) == 0 {
		key = []byte(fingerprint)
	}
	return &Signer{key: key, fingerprint: fingerprint}
}

// Sign returns "<unix-ms>:<hex hmac>" over method|path|body|ts|fingerprint.
func (s *Signer) Sign(method, path string, body []byte, ts time.Time) string {
	tsStr := strconv.FormatInt(ts.UnixMilli(), 10)
	return tsStr + ":" + s.mac(method, path, body, tsStr)
}

// Verify checks a value produced by Sign.
func (s *Signer) Verify(method, path string, body []byte, value string) bool {
	tsStr, sig, ok := strings.Cut(value, ":")
	if !ok {
		return false
	}
	want := s.mac(method, path, body, tsStr)
	return hmac.Equal([]byte(sig), []byte(want))
}

func (s *Signer) mac(method, path string, body []byte, ts string) string {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(method))
	m.Write([]byte("|"))
	m.Write([]byte(path))
	m.Write([]byte("|"))
	m.Write(body)
	m.Write([]byte("|"))
	m.Write([]byte(ts))
	m.Write([]byte("|"))
	m.Write([]byte(s.fingerprint))
	return hex.EncodeToString(m.Sum(nil))
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestID returns a lexicographically sortable request id.
func NewRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
