// Package testutil connects integration tests to a disposable Postgres database.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/GlebRadaev/rewards/internal/pg"
)

const DatabaseEnv = "TEST_DATABASE_URL"

// NewPool returns a migrated, empty database or skips the test when none is reachable.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(DatabaseEnv)
	if dsn == "" {
		t.Skipf("%s is not set", DatabaseEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("can't connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("test database is unreachable: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pg.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE ledger_transactions, orders, catalog_items`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return pool
}
