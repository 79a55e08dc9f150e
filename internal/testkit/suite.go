package testkit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
)

// Suite owns the backends for one test binary.
type Suite struct {
	opts Options

	mu       sync.Mutex
	postgres *instance
	redis    *instance
}

// NewSuite creates a Suite; nothing is started until Run.
func NewSuite(opts Options) *Suite {
	return &Suite{opts: opts}
}

func (s *Suite) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.postgres != nil || s.redis != nil {
		return errors.New("testkit: suite already started")
	}

	pg, err := startPostgres(ctx, s.opts)
	if err != nil {
		return err
	}
	rdb, err := startRedis(ctx, s.opts)
	if err != nil {
		if !s.opts.KeepContainers {
			_ = pg.terminate(ctx)
		}
		return err
	}
	s.postgres, s.redis = pg, rdb
	return nil
}

func (s *Suite) stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.KeepContainers {
		if s.postgres != nil {
			fmt.Println("testkit: keeping postgres at", s.postgres.addr)
		}
		if s.redis != nil {
			fmt.Println("testkit: keeping redis at", s.redis.addr)
		}
	} else {
		if err := s.redis.terminate(ctx); err != nil {
			fmt.Println("testkit: terminate redis:", err)
		}
		if err := s.postgres.terminate(ctx); err != nil {
			fmt.Println("testkit: terminate postgres:", err)
		}
	}
	s.postgres, s.redis = nil, nil
}

// PostgresDSN returns the DSN of the running Postgres, or "" before Run.
func (s *Suite) PostgresDSN() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postgres == nil {
		return ""
	}
	return s.postgres.addr
}

// RedisAddr returns host:port of the running Redis, or "" before Run.
func (s *Suite) RedisAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.redis == nil {
		return ""
	}
	return s.redis.addr
}

// Run starts the backends, runs each setup hook (migrations, client construction), runs the
// tests and exits with their status. Meant to be called from TestMain.
func (s *Suite) Run(m *testing.M, setup ...func(*Suite) error) {
	ctx := context.Background()

	if err := s.start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}

	for _, fn := range setup {
		if err := fn(s); err != nil {
			fmt.Fprintf(os.Stderr, "integration setup hook failed: %v\n", err)
			s.stop(ctx)
			os.Exit(1)
		}
	}

	code := m.Run()
	s.stop(ctx)
	os.Exit(code)
}
