package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		balance NUMERIC(18,2) NOT NULL DEFAULT 0,
		banned BOOLEAN NOT NULL DEFAULT FALSE,
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_txns (
		id UUID PRIMARY KEY,
		uid TEXT NOT NULL REFERENCES users(uid),
		delta NUMERIC(18,2) NOT NULL,
		reason TEXT NOT NULL CHECK (reason IN ('order_charge','order_refund','admin_topup','admin_deduct')),
		order_id UUID,
		meta JSONB,
		balance_after NUMERIC(18,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS wallet_txns_uid_idx ON wallet_txns (uid, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS wallet_txns_refund_once ON wallet_txns (order_id) WHERE reason = 'order_refund'`,
	`CREATE TABLE IF NOT EXISTS code_entries (
		id UUID PRIMARY KEY,
		pool_key TEXT NOT NULL,
		sealed BYTEA NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL CHECK (status IN ('available','reserved','consumed')),
		reserved_for UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS code_entries_pool_idx ON code_entries (pool_key, status)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		uid TEXT NOT NULL REFERENCES users(uid),
		kind TEXT NOT NULL,
		service_ref TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(18,2) NOT NULL,
		status TEXT NOT NULL,
		provider_order_id TEXT,
		code_id UUID REFERENCES code_entries(id),
		dispatch_lease_until TIMESTAMPTZ,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_uid_idx ON orders (uid, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS order_repricings (
		id BIGSERIAL PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		old_price NUMERIC(18,2) NOT NULL,
		new_price NUMERIC(18,2) NOT NULL,
		old_quantity INTEGER NOT NULL,
		new_quantity INTEGER NOT NULL,
		actor TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pricing_overrides (
		key TEXT PRIMARY KEY,
		scope TEXT NOT NULL,
		mode TEXT NOT NULL,
		price_per_unit NUMERIC(18,4),
		flat_price NUMERIC(18,2),
		min_qty INTEGER NOT NULL,
		max_qty INTEGER NOT NULL,
		version BIGINT NOT NULL,
		updated_by TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS pricing_versions (
		scope TEXT PRIMARY KEY,
		version BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS notices (
		id UUID PRIMARY KEY,
		audience TEXT NOT NULL CHECK (audience IN ('user','owner')),
		target_uid TEXT REFERENCES users(uid),
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		order_id UUID,
		code TEXT,
		correlation_id TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS notices_feed_idx ON notices (audience, target_uid, created_at)`,
}

// Migrate creates the tables the engine needs. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i, err)
		}
	}
	log.Println("Database schema up to date")
	return nil
}
