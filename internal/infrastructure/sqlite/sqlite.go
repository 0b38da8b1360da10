// Package sqlite persists configuration, payment outcomes, cart payment
// refs, plans, the local order mirror and the audit log in a single
// sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the sqlite database at path. WAL plus a
// busy timeout lets the audit sink write on its own connection while a
// dispatch transaction is open.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return sql.Open("sqlite", path+"?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL")
}

// Bootstrap creates the schema. Idempotent; runs at startup.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	ddl := `
CREATE TABLE IF NOT EXISTS payflow_config(
  name TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  ref TEXT NOT NULL DEFAULT '',
  customer_id TEXT NOT NULL DEFAULT '',
  cart_id TEXT NOT NULL DEFAULT '',
  link_token TEXT NOT NULL DEFAULT '',
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT '',
  item_count INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  created_unix INTEGER NOT NULL,
  updated_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_link_token ON orders(link_token);
CREATE TABLE IF NOT EXISTS cart_payment_refs(
  cart_id TEXT PRIMARY KEY,
  credit_card_id TEXT NOT NULL DEFAULT '',
  plan_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS planified_payments(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  frequency TEXT NOT NULL DEFAULT '',
  frequency_interval INTEGER NOT NULL DEFAULT 0,
  total_cycles INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS payment_outcomes(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL,
  customer_id TEXT NOT NULL DEFAULT '',
  method TEXT NOT NULL,
  state TEXT NOT NULL,
  reference TEXT NOT NULL DEFAULT '',
  approval_link TEXT NOT NULL DEFAULT '',
  nonce TEXT NOT NULL DEFAULT '',
  created_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_outcomes_order ON payment_outcomes(order_id);
CREATE TABLE IF NOT EXISTS audit_log(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL DEFAULT '',
  customer_id TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL,
  severity TEXT NOT NULL,
  logged_unix INTEGER NOT NULL
);
`
	_, err := db.ExecContext(ctx, ddl)
	return err
}
