package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{Path: filepath.Join(t.TempDir(), "poslite.db")}
}

func TestDSNSetsLockingPragmas(t *testing.T) {
	dsn := Config{Path: "/tmp/shop.db"}.DSN()

	for _, want := range []string{"_txlock=immediate", "busy_timeout%285000%29", "foreign_keys%281%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in DSN %q", want, dsn)
		}
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"customers", "categories", "products", "customer_ledger"} {
		var count int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	var fk int
	if err := db.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma query failed: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		db, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open() #%d failed: %v", i+1, err)
		}
		db.Close()
	}
}

func TestRunMigrationsDown(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	db, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if err := RunMigrationsDown(db); err != nil {
		t.Fatalf("RunMigrationsDown() failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'customers'`,
	).Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected customers table to be dropped")
	}
}
