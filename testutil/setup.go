package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/theseus-bot/theseus/cache"
	"github.com/theseus-bot/theseus/config"
	dbadapter "github.com/theseus-bot/theseus/db"
	dbmongo "github.com/theseus-bot/theseus/db/mongo"
	"github.com/theseus-bot/theseus/model"
	"github.com/theseus-bot/theseus/store/mongostore"
	"github.com/theseus-bot/theseus/store/sqlstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MongoURIEnv names the variable that enables the MongoDB-backed tests.
const MongoURIEnv = "THESEUS_TEST_MONGO_URI"

// Logger returns a development logger for tests.
func Logger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

// SetupTestDB creates a SQLite DB in a temp dir and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.StorageConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "theseus.db"),
	})
	require.NoError(t, err, "SetupTestDB: Open")
	sqlDB, err := db.DB()
	require.NoError(t, err, "SetupTestDB: DB")
	// One connection: writers interleave between statements without SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	require.NoError(t, model.AutoMigrateAudit(db), "SetupTestDB: AutoMigrateAudit")
	return db
}

// SetupTestStore returns a SQL-backed tag store over SetupTestDB.
func SetupTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	return sqlstore.New(SetupTestDB(t), Logger())
}

// SetupMongoStore returns a tag store on a throwaway MongoDB database, or
// skips the test when THESEUS_TEST_MONGO_URI is unset.
func SetupMongoStore(t *testing.T) *mongostore.Store {
	t.Helper()
	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set", MongoURIEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := dbmongo.Open(ctx, uri, 10*time.Second)
	require.NoError(t, err, "SetupMongoStore: Open")

	dbName := fmt.Sprintf("theseus_test_%s", uuid.NewString()[:8])
	s := mongostore.New(client, dbName, Logger())
	require.NoError(t, s.EnsureIndexes(ctx), "SetupMongoStore: EnsureIndexes")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return s
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(cache.CacheConfig{LocalGCInterval: time.Minute})
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	return c
}
