// Command authctl drives an authguard client from the shell: log in and
// out, inspect the stored session and the device risk posture, request a
// password reset, or run the security monitor with a metrics endpoint.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skillswap/authguard"
	promexport "github.com/skillswap/authguard/metrics/export/prometheus"
)

const usage = `usage: authctl [flags] <command> [args]

commands:
  login <email>      authenticate; password from -password or AUTHCTL_PASSWORD
  logout             notify the server and clear the stored session
  status             validate the stored session and print security status
  risk               print the configured security posture
  forgot <email>     request a password reset email
  monitor            run the security monitor and serve /metrics on -metrics-addr

flags:
`

type options struct {
	configPath  string
	env         string
	baseURL     string
	backend     string
	sqlitePath  string
	redisAddr   string
	passphrase  string
	salt        string
	password    string
	remember    bool
	metricsAddr string
	verbose     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file")
	flag.StringVar(&opts.env, "env", "", "environment preset when no config file is given (development, staging, production)")
	flag.StringVar(&opts.baseURL, "base-url", "", "override API base URL")
	flag.StringVar(&opts.backend, "storage", "", "token storage backend: memory, sqlite, redis")
	flag.StringVar(&opts.sqlitePath, "sqlite", "authctl.db", "sqlite database path")
	flag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env is used")
	flag.StringVar(&opts.passphrase, "passphrase", "", "storage passphrase; if empty, AUTHCTL_PASSPHRASE env is used")
	flag.StringVar(&opts.salt, "salt", "", "storage key salt (at least 16 bytes)")
	flag.StringVar(&opts.password, "password", "", "login password")
	flag.BoolVar(&opts.remember, "remember", false, "ask the server for a long-lived session")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "127.0.0.1:9464", "listen address for the monitor metrics endpoint")
	flag.BoolVar(&opts.verbose, "v", false, "log to stderr")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, flag.Arg(0), flag.Args()[1:]); err != nil {
		res := authguard.ResultOf(err)
		fmt.Fprintf(os.Stderr, "%s: %s\n", res.Kind, res.Message)
		if opts.verbose {
			fmt.Fprintf(os.Stderr, "cause: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, cmd string, args []string) error {
	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	client, cleanup, err := buildClient(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch cmd {
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("%w: login needs an email", authguard.ErrValidation)
		}
		password := opts.password
		if password == "" {
			password = os.Getenv("AUTHCTL_PASSWORD")
		}
		user, err := client.Login(ctx, args[0], password, opts.remember)
		if err != nil {
			return err
		}
		return printJSON(user)

	case "logout":
		if err := client.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "status":
		valid := client.ValidateSession(ctx)
		out := struct {
			Authenticated bool                         `json:"authenticated"`
			User          *authguard.AuthenticatedUser `json:"user,omitempty"`
			Security      authguard.SecurityStatus     `json:"security"`
		}{Authenticated: valid}
		if u, ok := client.CurrentUser(ctx); ok {
			out.User = u
		}
		out.Security = client.SecurityStatus(ctx)
		return printJSON(out)

	case "risk":
		return printJSON(client.SecurityReport())

	case "forgot":
		if len(args) != 1 {
			return fmt.Errorf("%w: forgot needs an email", authguard.ErrValidation)
		}
		ok, err := client.ForgotPassword(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("server declined the reset request")
		}
		fmt.Println("reset email requested")
		return nil

	case "monitor":
		return monitor(ctx, client, opts.metricsAddr, logger)

	default:
		return fmt.Errorf("%w: unknown command %q", authguard.ErrValidation, cmd)
	}
}

func buildClient(ctx context.Context, opts options, logger *zap.Logger) (*authguard.Client, func(), error) {
	cfg := authguard.ConfigForEnvironment(authguard.Environment(opts.env))
	if opts.configPath != "" {
		loaded, err := authguard.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if opts.baseURL != "" {
		cfg.API.BaseURL = opts.baseURL
	}
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if cfg.Storage.Backend == authguard.StorageMemory {
		// A CLI session must outlive the process.
		cfg.Storage.Backend = authguard.StorageSQLite
	}
	if opts.passphrase == "" {
		opts.passphrase = os.Getenv("AUTHCTL_PASSPHRASE")
	}
	if opts.passphrase != "" {
		cfg.Storage.Passphrase = opts.passphrase
	}
	if opts.salt != "" {
		cfg.Storage.Salt = opts.salt
	}

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	b := authguard.New().WithConfig(cfg).WithLogger(logger)
	switch cfg.Storage.Backend {
	case authguard.StorageSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = opts.sqlitePath
		}
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		b.WithSQL(db)
	case authguard.StorageRedis:
		addr := opts.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		if addr == "" {
			addr = cfg.Storage.RedisAddr
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		closers = append(closers, rdb.Close)
		b.WithRedis(rdb)
	}

	client, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, client.Close)
	return client, cleanup, nil
}

func monitor(ctx context.Context, client *authguard.Client, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promexport.NewExporter(client).Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	if err := client.StartMonitoring(ctx, func(_ context.Context, st authguard.SecurityStatus) {
		logger.Warn("security violation, session cleared",
			zap.String("level", st.Level.String()),
			zap.Strings("threats", st.Threats),
		)
		fmt.Fprintf(os.Stderr, "security violation (%s): session cleared\n", st.Level)
	}); err != nil {
		return err
	}
	defer client.StopMonitoring()
	fmt.Printf("monitoring; metrics on http://%s/metrics\n", addr)

	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
