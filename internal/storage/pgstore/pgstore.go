// Package pgstore adapts Postgres (via GORM) to the storage.Store contract
// using a single-row table holding the scheduler's serialized snapshot.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/whotracksme/job-scheduler/internal/pkg/dbctx"
	"github.com/whotracksme/job-scheduler/internal/platform/ctxutil"
)

// snapshotRow is the single-row table the snapshot blob lives in: a
// primary key plus an opaque payload column.
type snapshotRow struct {
	ID      int    `gorm:"primaryKey"`
	Payload []byte `gorm:"column:payload"`
}

func (snapshotRow) TableName() string { return "scheduler_snapshots" }

// singletonRowID is the fixed primary key every snapshot is written under;
// the table only ever holds one row.
const singletonRowID = 1

// Store is a storage.Store backed by a single Postgres row, for
// deployments that already run Postgres for everything else and would
// rather not add Redis as an operational dependency.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres via the given DSN and ensures the snapshot
// table exists: dial, AutoMigrate its own table, return a store.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("pgstore: open: %w", err)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("pgstore: automigrate: %w", err)
	}
	return New(db), nil
}

// New wraps an already-connected *gorm.DB, used by tests to inject an
// in-memory sqlite handle instead of a real Postgres connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the blob from the singleton row, if one has been written.
func (s *Store) Get(ctx context.Context) ([]byte, bool, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).First(&row, singletonRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pgstore: get: %w", err)
	}
	return row.Payload, true, nil
}

// Set upserts the singleton row's payload.
func (s *Store) Set(ctx context.Context, data []byte) error {
	row := snapshotRow{ID: singletonRowID, Payload: data}
	err := s.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("pgstore: set: %w", err)
	}
	return nil
}

// Remove deletes the singleton row, if present.
func (s *Store) Remove(ctx context.Context) error {
	err := s.db.WithContext(ctx).Delete(&snapshotRow{}, singletonRowID).Error
	if err != nil {
		return fmt.Errorf("pgstore: remove: %w", err)
	}
	return nil
}

// SetTx upserts the snapshot payload within an already-open transaction,
// for callers that need the write to participate in a larger unit of work
// rather than committing on its own.
func (s *Store) SetTx(dc dbctx.Context, data []byte) error {
	ctx := ctxutil.Default(dc.Ctx)
	db := s.db
	if dc.Tx != nil {
		db = dc.Tx
	}
	row := snapshotRow{ID: singletonRowID, Payload: data}
	if err := db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("pgstore: settx: %w", err)
	}
	return nil
}
