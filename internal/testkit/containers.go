// Package testkit starts the Postgres and Redis instances used by the integration suite.
// Each backend is either a testcontainer or, when an address is supplied through the
// environment, an already running instance.
package testkit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Options are read from RATESVC_TEST_* variables.
type Options struct {
	PostgresImage  string
	RedisImage     string
	PostgresDSN    string // external Postgres; no container when set
	RedisAddr      string // external Redis; no container when set
	StartupTimeout time.Duration
	KeepContainers bool
}

// OptionsFromEnv reads the suite options.
func OptionsFromEnv() Options {
	opts := Options{
		PostgresImage:  getenv("RATESVC_TEST_PG_IMAGE", "postgres:18.1-alpine"),
		RedisImage:     getenv("RATESVC_TEST_REDIS_IMAGE", "redis:8.4.0-alpine"),
		PostgresDSN:    os.Getenv("RATESVC_TEST_PG_DSN"),
		RedisAddr:      os.Getenv("RATESVC_TEST_REDIS_ADDR"),
		StartupTimeout: 90 * time.Second,
	}
	if v := os.Getenv("RATESVC_TEST_STARTUP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			opts.StartupTimeout = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			opts.StartupTimeout = time.Duration(secs) * time.Second
		} else {
			fmt.Fprintf(os.Stderr, "testkit: ignoring RATESVC_TEST_STARTUP_TIMEOUT=%q\n", v)
		}
	}
	if v := os.Getenv("RATESVC_TEST_KEEP_CONTAINERS"); v != "" {
		opts.KeepContainers, _ = strconv.ParseBool(v)
	}
	return opts
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// instance is a running backend: its address and, for containers, a way to stop it.
type instance struct {
	addr string
	ctr  testcontainers.Container
}

func (i *instance) terminate(ctx context.Context) error {
	if i == nil || i.ctr == nil {
		return nil
	}
	return i.ctr.Terminate(ctx)
}

func startPostgres(ctx context.Context, opts Options) (*instance, error) {
	if opts.PostgresDSN != "" {
		return &instance{addr: opts.PostgresDSN}, nil
	}

	ctr, err := postgres.Run(ctx,
		opts.PostgresImage,
		postgres.WithDatabase("rates_"+randomSuffix()),
		postgres.WithUsername("rates"),
		postgres.WithPassword("rates"),
		testcontainers.WithWaitStrategyAndDeadline(opts.StartupTimeout,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}
	return &instance{addr: dsn, ctr: ctr}, nil
}

// startRedis returns the instance as host:port, the form go-redis and asynq expect.
func startRedis(ctx context.Context, opts Options) (*instance, error) {
	if opts.RedisAddr != "" {
		return &instance{addr: opts.RedisAddr}, nil
	}

	ctr, err := tcredis.Run(ctx, opts.RedisImage)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("redis connection string: %w", err)
	}
	u, err := url.Parse(connStr)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("parse redis url %q: %w", connStr, err)
	}
	return &instance{addr: u.Host, ctr: ctr}, nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(b)
}
