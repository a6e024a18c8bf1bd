package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 10
	MaxResponseBytes         = 10 << 20
)

var securityHeaders = []string{
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
}

// Config configures a [Client].
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	Pins              []string
	RequestsPerSecond float64
	Burst             int
	ClientVersion     string
	Device            DeviceInfo
	AppSecret         []byte
	// DevMode logs request metadata at debug level.
	DevMode bool

	// HTTPClient overrides the pinned client built from Pins.
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

// Client issues signed requests against the API.
type Client struct {
	base    *url.URL
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	signer  *Signer
	logger  *zap.Logger
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("transport: invalid base url %q", cfg.BaseURL)
	}
	if base.Scheme != "https" && base.Scheme != "http" {
		return nil, fmt.Errorf("transport: unsupported scheme %q", base.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "1.0.0"
	}
	if cfg.Device.DeviceID == "" {
		cfg.Device = NewDeviceInfo(cfg.Device.Platform, cfg.ClientVersion)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
		if len(cfg.Pins) > 0 {
			t, err := PinnedTransport(nil, cfg.Pins)
			if err != nil {
				return nil, fmt.Errorf("transport: %w", err)
			}
			httpClient.Transport = t
		}
	}

	return &Client{
		base:    base,
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		signer:  NewSigner(cfg.AppSecret, cfg.Device.Fingerprint()),
		logger:  cfg.Logger,
	}, nil
}

// Device returns the identity sent with every request.
func (c *Client) Device() DeviceInfo { return c.cfg.Device }

// Fingerprint returns the device fingerprint used for signing.
func (c *Client) Fingerprint() string { return c.cfg.Device.Fingerprint() }

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string { return c.base.String() }

// PinningEnabled reports whether certificate pins are configured.
func (c *Client) PinningEnabled() bool { return len(c.cfg.Pins) > 0 }

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

// Do sends body as JSON to path and decodes the envelope. When out is
// non-nil and the envelope carries data it is decoded into out.
func (c *Client) Do(ctx context.Context, method, path string, body any, token string, out any) (*Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyContext(ctx, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode body: %w", err)
		}
		payload = b
	}

	fullPath := c.base.Path + path
	target := *c.base
	target.Path = fullPath

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	requestID := NewRequestID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Client-Version", c.cfg.ClientVersion)
	req.Header.Set("X-Platform", c.cfg.Device.Platform)
	req.Header.Set("X-Device-ID", c.cfg.Device.DeviceID)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("X-App-Signature", c.signer.Sign(method, fullPath, payload, c.cfg.Now()))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.cfg.DevMode {
		c.logger.Debug("transport: request",
			zap.String("method", method),
			zap.String("path", fullPath),
			zap.String("request_id", requestID),
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyDoError(ctx, err)
	}
	defer resp.Body.Close()

	if err := c.validateResponse(resp, requestID); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrServerRateLimited
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, classifyDoError(ctx, err)
	}
	if len(raw) > MaxResponseBytes {
		return nil, ErrResponseTooLarge
	}

	var env Envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, &RejectedError{Status: resp.StatusCode, Message: "Request failed"}
			}
			return nil, fmt.Errorf("%w: decode response: %w", ErrMalformedResponse, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &env, &RejectedError{
			Status:  resp.StatusCode,
			Message: env.reason(),
			Code:    env.Code,
		}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("%w: decode data: %w", ErrMalformedResponse, err)
		}
	}
	return &env, nil
}

func (c *Client) validateResponse(resp *http.Response, requestID string) error {
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		c.logger.Warn("transport: unexpected content type",
			zap.String("content_type", ct),
			zap.String("request_id", requestID),
		)
	}
	var missing []string
	for _, h := range securityHeaders {
		if resp.Header.Get(h) == "" {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		c.logger.Warn("transport: missing security headers",
			zap.Strings("headers", missing),
			zap.String("request_id", requestID),
		)
	}
	if resp.ContentLength > MaxResponseBytes {
		return ErrResponseTooLarge
	}
	return nil
}

func classifyContext(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func classifyDoError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
