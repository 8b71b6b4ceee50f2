package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

// testDB holds the shared database infrastructure for integration tests.
type testDB struct {
	Pool          *pgxpool.Pool
	ConnStr       string
	MigrationsDir string
}

// globalDB is the package-level test database, initialized once in TestMain.
var globalDB *testDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr, cleanup, err := startPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup postgres container: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}

	migrationsDir := findMigrationsDir()
	migrator := db.NewMigrator(pool, migrationsDir)
	if _, err := migrator.Up(ctx); err != nil {
		pool.Close()
		cleanup()
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	globalDB = &testDB{Pool: pool, ConnStr: connStr, MigrationsDir: migrationsDir}
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// findMigrationsDir locates the migrations directory relative to this test file.
func findMigrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	// test/integration -> repo root
	return filepath.Join(dir, "..", "..", "migrations")
}

// truncateAll resets the scheduling tables between tests. prescription and
// prescription_item go along via the appointment cascade.
func truncateAll(t *testing.T, ctx context.Context) {
	t.Helper()
	_, err := globalDB.Pool.Exec(ctx,
		`TRUNCATE appointment_request, appointment RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func ptrInt64(v int64) *int64 { return &v }
func ptrStr(v string) *string { return &v }
