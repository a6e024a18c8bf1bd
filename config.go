package authguard

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skillswap/authguard/internal/rate"
	"github.com/skillswap/authguard/risk"
	"github.com/skillswap/authguard/session"
	"github.com/skillswap/authguard/tokenstore"
	"github.com/skillswap/authguard/transport"
)

// Environment selects a configuration preset.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config is the complete client configuration. The zero value is not
// usable; start from [DefaultConfig] or [ConfigForEnvironment].
type Config struct {
	Environment Environment    `yaml:"environment"`
	API         APIConfig      `yaml:"api"`
	Security    SecurityConfig `yaml:"security"`
	Session     SessionConfig  `yaml:"session"`
	Risk        RiskConfig     `yaml:"risk"`
	Storage     StorageConfig  `yaml:"storage"`
	Audit       AuditConfig    `yaml:"audit"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	ClientVersion     string        `yaml:"client_version"`
	Platform          string        `yaml:"platform"`
	// DeviceID is generated when empty.
	DeviceID string `yaml:"device_id"`
	// AppSecret keys the request signature. When empty the device
	// fingerprint is used.
	AppSecret string `yaml:"app_secret"`
	// Pins are SPKI pins of the form "sha256/<base64>".
	Pins []string `yaml:"pins"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	MaxLoginAttempts int `yaml:"max_login_attempts"`
	// AttemptWindow bounds how long failures are remembered. Zero keeps
	// them until a successful login or logout.
	AttemptWindow time.Duration `yaml:"attempt_window"`
	DevMode       bool          `yaml:"dev_mode"`
	// TokenPublicKey is an Ed25519 PEM key. When set, access tokens are
	// signature-verified before their claims are trusted.
	TokenPublicKey string        `yaml:"token_public_key"`
	TokenIssuer    string        `yaml:"token_issuer"`
	TokenLeeway    time.Duration `yaml:"token_leeway"`
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// Timeout is the idle budget since the last activity.
	Timeout          time.Duration `yaml:"timeout"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold"`
}

/*
====================================
RISK CONFIG
====================================
*/

type RiskConfig struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
	// BinaryPath and BinarySHA256 enable the checksum integrity probe.
	BinaryPath   string `yaml:"binary_path"`
	BinarySHA256 string `yaml:"binary_sha256"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Namespace  string `yaml:"namespace"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisAddr  string `yaml:"redis_addr"`
	// Passphrase and Salt derive the at-rest key. Persistent backends
	// require either these or an explicit key on the builder.
	Passphrase string `yaml:"passphrase"`
	Salt       string `yaml:"salt"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the production preset.
func DefaultConfig() Config {
	return Config{
		Environment: EnvProduction,
		API: APIConfig{
			BaseURL:           "https://api.skillswap.com/api/v1",
			Timeout:           15 * time.Second,
			RequestsPerSecond: transport.DefaultRequestsPerSecond,
			ClientVersion:     "1.0.0",
		},
		Security: SecurityConfig{
			MaxLoginAttempts: rate.DefaultMaxAttempts,
		},
		Session: SessionConfig{
			Timeout:          tokenstore.DefaultSessionTimeout,
			RefreshThreshold: session.DefaultRefreshThreshold,
		},
		Risk: RiskConfig{
			CacheTTL:        risk.DefaultCacheTTL,
			MonitorInterval: risk.DefaultMonitorInterval,
		},
		Storage: StorageConfig{
			Backend:   StorageMemory,
			Namespace: "skillswap",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// ConfigForEnvironment returns the preset for env. Unknown names fall back
// to production.
func ConfigForEnvironment(env Environment) Config {
	cfg := DefaultConfig()
	switch env {
	case EnvDevelopment:
		cfg.Environment = EnvDevelopment
		cfg.API.BaseURL = "http://localhost:8080/api/v1"
		cfg.API.Timeout = 10 * time.Second
		cfg.Security.DevMode = true
		cfg.Audit.DropIfFull = false
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.API.BaseURL = "https://api-staging.skillswap.com/api/v1"
		cfg.API.Timeout = 10 * time.Second
	}
	return cfg
}

// LoadConfigFile reads a YAML file over the preset named by its
// "environment" key (production when absent).
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig is [LoadConfigFile] over an in-memory document.
func ParseConfig(raw []byte) (Config, error) {
	var head struct {
		Environment Environment `yaml:"environment"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	cfg := ConfigForEnvironment(head.Environment)
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.API.Pins = append([]string(nil), cfg.API.Pins...)
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("API BaseURL %q is invalid", c.API.BaseURL)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return errors.New("API BaseURL must use http or https")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.RequestsPerSecond <= 0 {
		return errors.New("API RequestsPerSecond must be > 0")
	}
	if c.API.Burst < 0 {
		return errors.New("API Burst must be >= 0")
	}
	if _, err := transport.ParsePins(c.API.Pins); err != nil {
		return fmt.Errorf("API Pins: %w", err)
	}

	// Production hardening
	if c.Environment == EnvProduction {
		if u.Scheme != "https" {
			return errors.New("production requires an https API BaseURL")
		}
		if c.Security.DevMode {
			return errors.New("production must not enable DevMode")
		}
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security MaxLoginAttempts must be > 0")
	}
	if c.Security.AttemptWindow < 0 {
		return errors.New("Security AttemptWindow must be >= 0")
	}
	if c.Security.TokenLeeway < 0 || c.Security.TokenLeeway > 2*time.Minute {
		return errors.New("Security TokenLeeway must be within [0, 2m]")
	}

	// Session
	if c.Session.Timeout <= 0 {
		return errors.New("Session Timeout must be > 0")
	}
	if c.Session.RefreshThreshold <= 0 {
		return errors.New("Session RefreshThreshold must be > 0")
	}

	// Risk
	if c.Risk.CacheTTL < 0 {
		return errors.New("Risk CacheTTL must be >= 0")
	}
	if c.Risk.MonitorInterval < 0 {
		return errors.New("Risk MonitorInterval must be >= 0")
	}
	if (c.Risk.BinaryPath == "") != (c.Risk.BinarySHA256 == "") {
		return errors.New("Risk BinaryPath and BinarySHA256 must be set together")
	}

	// Storage
	switch strings.ToLower(c.Storage.Backend) {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("Storage Backend %q is not supported", c.Storage.Backend)
	}
	if c.Storage.Passphrase != "" && len(c.Storage.Salt) < 16 {
		return errors.New("Storage Salt must be at least 16 bytes when Passphrase is set")
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}
	return nil
}
