// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"testing"

	"brainshare/internal/db"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated and seeded in-memory store. The pool is capped at
// one connection: the in-memory database lives on that connection, and it
// serializes transactions the way row locks do on PostgreSQL.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Seed(gdb, db.AdminSeed{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return gdb
}
