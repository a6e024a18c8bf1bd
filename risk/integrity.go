package risk

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// IntegrityProbe verifies the running application has not been modified.
type IntegrityProbe interface {
	Verify(ctx context.Context) (bool, error)
}

// TrustedBinary always passes. It performs no verification.
type TrustedBinary struct{}

func (TrustedBinary) Verify(context.Context) (bool, error) { return true, nil }

// ChecksumIntegrityProbe compares the SHA-256 of a file, by default the
// running executable, to an expected hex digest.
type ChecksumIntegrityProbe struct {
	Path     string
	Expected string
}

func (p *ChecksumIntegrityProbe) Verify(ctx context.Context) (bool, error) {
	path := p.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return false, fmt.Errorf("locate executable: %w", err)
		}
		path = exe
	}
	want, err := hex.DecodeString(strings.TrimSpace(p.Expected))
	if err != nil || len(want) != sha256.Size {
		return false, fmt.Errorf("expected digest is not a sha256 hex string")
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		return false, fmt.Errorf("hash %s: %w", path, err)
	}
	return subtle.ConstantTimeCompare(h.Sum(nil), want) == 1, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// SessionProbe reports whether the stored session is currently usable.
type SessionProbe interface {
	SessionValid(ctx context.Context) bool
}

// SessionProbeFunc adapts a function to [SessionProbe].
type SessionProbeFunc func(ctx context.Context) bool

func (f SessionProbeFunc) SessionValid(ctx context.Context) bool { return f(ctx) }
