package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/coworkr/internal/profile"
	"github.com/hrygo/coworkr/store"
	"github.com/hrygo/coworkr/store/db"
)

// NewTestingStore opens a migrated store for tests. It uses a temporary
// SQLite file unless DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "coworkr_test.db"),
	}
	if os.Getenv("DRIVER") == "postgres" {
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			t.Skip("POSTGRES_TEST_DSN not set")
		}
		p.Driver = "postgres"
		p.DSN = dsn
	}

	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	s := store.New(driver, "default")
	if err := s.Migrate(ctx, p.Mode); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if p.Driver == "postgres" {
			_, _ = driver.GetDB().ExecContext(context.Background(), "DELETE FROM record; DELETE FROM team_member;")
		}
		_ = s.Close()
	})
	return s
}
