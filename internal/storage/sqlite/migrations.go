package sqlite

import "database/sql"

// schema runs on every open; statements must stay idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS bundle_fallbacks (
    item_key TEXT PRIMARY KEY,
    bundle_items TEXT NOT NULL DEFAULT '',
    box_price TEXT NOT NULL DEFAULT '',
    pricing_mode TEXT NOT NULL DEFAULT '',
    fixed_price TEXT NOT NULL DEFAULT '',
    bundle_total TEXT NOT NULL DEFAULT '',
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundle_fallbacks_updated_at ON bundle_fallbacks(updated_at);
`

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
