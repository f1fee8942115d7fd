// Package testutil provides a migrated Postgres pool for integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/tixhub/internal/postgres"
	"github.com/kirinyoku/tixhub/migrations"
)

const EnvDatabaseURL = "TEST_DATABASE_URL"

// Pool connects to TEST_DATABASE_URL, applies the migrations and empties
// every table. The test is skipped when the variable is unset or the
// database is unreachable.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s not set", EnvDatabaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 8, AppName: "tixhub-test"})
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.Apply(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE tickets, schedules, events, venues, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return pool
}
