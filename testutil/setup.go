// Package testutil provides shared test fixtures: an in-memory database
// with the full schema, a local cache, and a silent logger.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/pongarena/server/cache"
	dbsqlite "github.com/pongarena/server/db/sqlite"
	"github.com/pongarena/server/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SetupTestDB opens a private in-memory database and runs the schema
// migration. Each call gets its own database, so parallel tests never
// see each other's rows.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=private", dbSeq.Add(1))
	gdb, err := dbsqlite.Open(dsn)
	require.NoError(t, err, "SetupTestDB: open")
	require.NoError(t, model.AutoMigrate(gdb), "SetupTestDB: migrate")
	return gdb
}

// SetupTestCache returns a local cache and pub/sub, no Redis required.
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{}
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: cache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: pubsub")
	return c, ps
}

// Logger returns a no-op logger for wiring services under test.
func Logger() *zap.Logger {
	return zap.NewNop()
}
