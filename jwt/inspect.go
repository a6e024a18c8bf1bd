package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid is returned for tokens that cannot be parsed or that
// carry no usable expiry.
var ErrTokenInvalid = errors.New("access token invalid")

// Claims is the subset of access-token claims the client uses.
type Claims struct {
	Subject   string
	Email     string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime returns the remaining validity relative to now. Zero or negative
// means expired.
func (c Claims) Lifetime(now time.Time) time.Duration {
	return c.ExpiresAt.Sub(now)
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Config configures an [Inspector].
type Config struct {
	// PublicKey enables signature verification. Raw 32-byte or PEM.
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

// Inspector parses access tokens.
type Inspector struct {
	config Config
	key    ed25519.PublicKey
}

// NewInspector validates cfg. An empty PublicKey yields an unverified inspector.
func NewInspector(cfg Config) (*Inspector, error) {
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	in := &Inspector{config: cfg}
	if len(cfg.PublicKey) > 0 {
		key, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		in.key = key
	}
	return in, nil
}

// Verifies reports whether signatures are checked.
func (in *Inspector) Verifies() bool { return in.key != nil }

// Inspect parses token. Expiry is required; an expired token is still
// returned so callers can compute a non-positive lifetime.
func (in *Inspector) Inspect(token string) (Claims, error) {
	var claims accessClaims
	if in.key == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	} else {
		options := []jwt.ParserOption{
			jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
			jwt.WithExpirationRequired(),
		}
		if in.config.Leeway > 0 {
			options = append(options, jwt.WithLeeway(in.config.Leeway))
		}
		if in.config.Issuer != "" {
			options = append(options, jwt.WithIssuer(in.config.Issuer))
		}
		_, err := jwt.NewParser(options...).ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
			return in.key, nil
		})
		if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		// Expiry errors are joined with any other claim failure.
		if in.config.Issuer != "" && claims.Issuer != in.config.Issuer {
			return Claims{}, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
		}
	}

	if claims.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrTokenInvalid)
	}
	out := Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Issuer:    claims.Issuer,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

var unverified = &Inspector{}

// Inspect parses token without signature verification.
func Inspect(token string) (Claims, error) {
	return unverified.Inspect(token)
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
