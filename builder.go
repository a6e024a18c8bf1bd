package authguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skillswap/authguard/internal/audit"
	"github.com/skillswap/authguard/internal/metrics"
	"github.com/skillswap/authguard/internal/rate"
	"github.com/skillswap/authguard/jwt"
	"github.com/skillswap/authguard/risk"
	"github.com/skillswap/authguard/session"
	"github.com/skillswap/authguard/tokenstore"
	"github.com/skillswap/authguard/transport"
)

// Builder assembles a [Client]. A Builder is single-use.
type Builder struct {
	config Config

	kv         tokenstore.KV
	redis      redis.UniversalClient
	db         *sql.DB
	key        []byte
	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink
	now        func() time.Time

	deviceProbe    risk.DeviceIntegrityProbe
	networkProbe   risk.NetworkProbe
	integrityProbe risk.IntegrityProbe

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithKV overrides the storage backend selected by Config.Storage.
func (b *Builder) WithKV(kv tokenstore.KV) *Builder {
	b.kv = kv
	return b
}

// WithRedis supplies the client used by the redis storage backend and by
// the failed-attempt limiter. The caller keeps ownership.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSQL supplies the database used by the sqlite storage backend. The
// caller keeps ownership and must have registered a driver.
func (b *Builder) WithSQL(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithEncryptionKey sets the 32-byte at-rest key directly.
func (b *Builder) WithEncryptionKey(key []byte) *Builder {
	b.key = append([]byte(nil), key...)
	return b
}

func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithDeviceProbe(p risk.DeviceIntegrityProbe) *Builder {
	b.deviceProbe = p
	return b
}

func (b *Builder) WithNetworkProbe(p risk.NetworkProbe) *Builder {
	b.networkProbe = p
	return b
}

func (b *Builder) WithIntegrityProbe(p risk.IntegrityProbe) *Builder {
	b.integrityProbe = p
	return b
}

// WithClock replaces time.Now for every component.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	c := &Client{
		config: cfg,
		logger: logger,
		now:    now,
	}

	// -------- STORAGE --------
	kv, err := b.resolveKV(c)
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	key, err := b.resolveKey(cfg)
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	cipher, err := tokenstore.NewCipher(key)
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.activity = session.NewActivity(now)
	c.store, err = tokenstore.New(kv, cipher, tokenstore.Options{
		SessionTimeout: cfg.Session.Timeout,
		Now:            now,
		Activity:       c.activity,
		Logger:         logger.Named("tokenstore"),
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}

	// -------- RATE LIMITER --------
	var counters rate.Store
	if c.rdb != nil {
		counters = rate.NewRedisStore(c.rdb, cfg.Storage.Namespace, cfg.Security.AttemptWindow)
	} else {
		counters = rate.NewMemoryStore(cfg.Security.AttemptWindow, now)
	}
	c.limiter = rate.New(counters, rate.Config{MaxAttempts: cfg.Security.MaxLoginAttempts})

	// -------- TRANSPORT --------
	platform := cfg.API.Platform
	if platform == "" {
		platform = runtime.GOOS
	}
	device := transport.NewDeviceInfo(platform, cfg.API.ClientVersion)
	if cfg.API.DeviceID != "" {
		device.DeviceID = cfg.API.DeviceID
	}
	c.api, err = transport.New(transport.Config{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		Pins:              cfg.API.Pins,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		ClientVersion:     cfg.API.ClientVersion,
		Device:            device,
		AppSecret:         []byte(cfg.API.AppSecret),
		DevMode:           cfg.Security.DevMode,
		HTTPClient:        b.httpClient,
		Logger:            logger.Named("transport"),
		Now:               now,
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}

	// -------- TOKEN INSPECTION --------
	var publicKey []byte
	if cfg.Security.TokenPublicKey != "" {
		publicKey = []byte(cfg.Security.TokenPublicKey)
	}
	c.inspector, err = jwt.NewInspector(jwt.Config{
		PublicKey: publicKey,
		Issuer:    cfg.Security.TokenIssuer,
		Leeway:    cfg.Security.TokenLeeway,
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}

	// -------- RISK --------
	probes := risk.Probes{
		Device:    b.deviceProbe,
		Network:   b.networkProbe,
		Integrity: b.integrityProbe,
		Session: risk.SessionProbeFunc(func(ctx context.Context) bool {
			_, ok := c.store.Current(ctx)
			return ok
		}),
	}
	if probes.Device == nil {
		pp := risk.NewPathProbe(cfg.Security.DevMode)
		pp.Platform = platform
		probes.Device = pp
	}
	if probes.Network == nil {
		probes.Network = &risk.URLNetworkProbe{
			BaseURL: cfg.API.BaseURL,
			Pins:    cfg.API.Pins,
			DevMode: cfg.Security.DevMode,
		}
	}
	if probes.Integrity == nil && cfg.Risk.BinaryPath != "" {
		probes.Integrity = &risk.ChecksumIntegrityProbe{
			Path:     cfg.Risk.BinaryPath,
			Expected: cfg.Risk.BinarySHA256,
		}
	}
	c.scorer = risk.NewScorer(probes, risk.Options{
		CacheTTL: cfg.Risk.CacheTTL,
		Now:      now,
		Logger:   logger.Named("risk"),
	})

	// -------- SESSION --------
	c.validator = session.NewValidator(c.store, session.RefresherFunc(c.refreshPair), c.activity, session.Options{
		RefreshThreshold: cfg.Session.RefreshThreshold,
		Now:              now,
		Logger:           logger.Named("session"),
	})

	// -------- AUDIT + METRICS --------
	sink := b.auditSink
	if sink == nil {
		sink = audit.NewZapSink(logger)
	}
	c.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		DeviceID:   c.api.Device().DeviceID,
		Now:        now,
	}, sink)
	c.metrics = metrics.New(metrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	c.flows = newFlowService(c)

	b.built = true
	return c, nil
}

func (b *Builder) resolveKV(c *Client) (tokenstore.KV, error) {
	c.rdb = b.redis
	if c.rdb == nil && b.config.Storage.RedisAddr != "" {
		owned := redis.NewClient(&redis.Options{Addr: b.config.Storage.RedisAddr})
		c.rdb = owned
		c.closers = append(c.closers, owned.Close)
	}

	if b.kv != nil {
		c.storage = "custom"
		return b.kv, nil
	}

	cfg := c.config.Storage
	c.storage = cfg.Backend
	switch cfg.Backend {
	case StorageRedis:
		if c.rdb == nil {
			return nil, errors.New("redis storage requires a redis client or Storage RedisAddr")
		}
		return tokenstore.NewRedisKV(c.rdb, cfg.Namespace), nil
	case StorageSQLite:
		db := b.db
		if db == nil {
			if cfg.SQLitePath == "" {
				return nil, errors.New("sqlite storage requires a database or Storage SQLitePath")
			}
			opened, err := sql.Open("sqlite3", cfg.SQLitePath)
			if err != nil {
				return nil, fmt.Errorf("%w: open sqlite: %v", ErrStorage, err)
			}
			db = opened
			c.closers = append(c.closers, opened.Close)
		}
		kv := tokenstore.NewSQLKV(db)
		if err := kv.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return kv, nil
	default:
		return tokenstore.NewMemoryKV(), nil
	}
}

func (b *Builder) resolveKey(cfg Config) ([]byte, error) {
	switch {
	case len(b.key) > 0:
		return b.key, nil
	case cfg.Storage.Passphrase != "":
		return tokenstore.DeriveKey([]byte(cfg.Storage.Passphrase), []byte(cfg.Storage.Salt), tokenstore.DefaultKeyParams())
	case b.kv == nil && cfg.Storage.Backend == StorageMemory:
		// Process-local storage dies with the process, so an ephemeral key is enough.
		return tokenstore.GenerateKey()
	default:
		return nil, errors.New("persistent storage requires an encryption key or Storage Passphrase")
	}
}
