//go:build integration

package integration

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rateservice/internal/repository"
	"rateservice/internal/testkit"
)

func TestMain(m *testing.M) {
	testkit.NewSuite(testkit.OptionsFromEnv()).Run(m, func(s *testkit.Suite) error {
		var err error
		testDB, err = sql.Open("pgx", s.PostgresDSN())
		if err != nil {
			return err
		}
		if err := testDB.Ping(); err != nil {
			return err
		}
		if err := repository.RunMigrations(testDB, zap.NewNop().Sugar()); err != nil {
			return err
		}

		redisAddr = s.RedisAddr()
		testRDB = redis.NewClient(&redis.Options{Addr: redisAddr})
		return testRDB.Ping(context.Background()).Err()
	})
}
