// Package testutil provides a self-contained database handle for pgstore
// tests: open a throwaway database, hand back a *gorm.DB, backed by an
// in-memory glebarez/sqlite database so pgstore's tests need no external
// service.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// OpenTestDB returns an in-memory database handle, one per call, so tests
// never see another test's rows. Uses glebarez/sqlite (pure Go, no cgo)
// rather than Postgres-specific SQL, which is why pgstore avoids any
// Postgres-only column types or clauses in its own queries.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("testutil: open sqlite: %v", err)
	}
	return db
}
