package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/dbpool"
	"github.com/sheetvault/sheetvault/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupVersionStore creates a VersionStore plus a fresh workbook id whose
// rows are removed after the test.
func setupVersionStore(t *testing.T) (*store.VersionStore, string) {
	t.Helper()

	env := getTestEnv(t)
	workbookID := "test-wb-" + uuid.New().String()

	t.Cleanup(func() {
		cleanCtx := context.Background()
		// Delete in dependency order: changes, then versions.
		env.pool.Exec(cleanCtx, `DELETE FROM version_changes WHERE version_id IN
			(SELECT id FROM versions WHERE workbook_id = $1)`, workbookID) //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM versions WHERE workbook_id = $1", workbookID) //nolint:errcheck // best-effort cleanup
	})

	return store.NewVersionStore(store.Base{Pool: env.pool, Log: env.log}), workbookID
}
