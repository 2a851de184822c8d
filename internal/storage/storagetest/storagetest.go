// Package storagetest opens throwaway databases for tests of packages built on storage.
package storagetest

import (
	"context"
	"path/filepath"
	"supportdesk/backend/internal/storage"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated storage service on a SQLite file in t's temp dir.
// The pool holds a single connection, so concurrent callers queue on it.
func Open(t testing.TB) *storage.Service {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "supportdesk.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := storage.NewStorageService(db, 10*time.Second)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
