// Package sqlite provides a SQLite-backed implementation of storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"storefront-proxy/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens the database at dbPath, creating parent directories and running migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Concurrent writers on one file otherwise surface SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetBundle retrieves the fallback record for a cart item key.
func (s *Store) GetBundle(ctx context.Context, key string) (*storage.BundleRecord, error) {
	query := `
		SELECT item_key, bundle_items, box_price, pricing_mode, fixed_price, bundle_total, updated_at
		FROM bundle_fallbacks
		WHERE item_key = ?
	`

	var (
		rec       storage.BundleRecord
		items     string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&rec.Key,
		&items,
		&rec.BoxPrice,
		&rec.PricingMode,
		&rec.FixedPrice,
		&rec.BundleTotal,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bundle record: %w", err)
	}

	if items != "" {
		rec.Items = json.RawMessage(items)
	}
	rec.UpdatedAt = time.UnixMilli(updatedAt)
	return &rec, nil
}

// PutBundle upserts a fallback record.
func (s *Store) PutBundle(ctx context.Context, rec *storage.BundleRecord) error {
	if rec == nil || rec.Key == "" {
		return storage.ErrEmptyKey
	}

	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}

	query := `
		INSERT INTO bundle_fallbacks (item_key, bundle_items, box_price, pricing_mode, fixed_price, bundle_total, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET
			bundle_items = excluded.bundle_items,
			box_price = excluded.box_price,
			pricing_mode = excluded.pricing_mode,
			fixed_price = excluded.fixed_price,
			bundle_total = excluded.bundle_total,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.Key,
		string(rec.Items),
		rec.BoxPrice,
		rec.PricingMode,
		rec.FixedPrice,
		rec.BundleTotal,
		updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to put bundle record: %w", err)
	}
	return nil
}

// DeleteBundle removes the record for key.
func (s *Store) DeleteBundle(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM bundle_fallbacks WHERE item_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete bundle record: %w", err)
	}
	return nil
}

// PurgeBundlesBefore deletes records last written before cutoff.
func (s *Store) PurgeBundlesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM bundle_fallbacks WHERE updated_at < ?",
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge bundle records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged records: %w", err)
	}
	return int(n), nil
}
