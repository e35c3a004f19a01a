package database

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// schema is written in the subset of SQL shared by PostgreSQL and SQLite.
// Each string is a single statement.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS credit_balances (
		owner_id   TEXT PRIMARY KEY,
		balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id                  TEXT PRIMARY KEY,
		owner_id            TEXT NOT NULL,
		amount_delta        INTEGER NOT NULL,
		tx_type             TEXT NOT NULL,
		related_entity_type TEXT,
		related_entity_id   TEXT,
		description         TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_transactions_owner ON credit_transactions (owner_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_credit_transactions_refund
		ON credit_transactions (related_entity_type, related_entity_id)
		WHERE tx_type = 'refund'`,
	`CREATE TABLE IF NOT EXISTS search_areas (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		center_lat       DOUBLE PRECISION NOT NULL,
		center_lng       DOUBLE PRECISION NOT NULL,
		radius_km        DOUBLE PRECISION NOT NULL CHECK (radius_km >= 0.5),
		week_id          INTEGER NOT NULL,
		generation_index INTEGER NOT NULL CHECK (generation_index >= 0),
		created_at       TIMESTAMP NOT NULL,
		UNIQUE (owner_id, week_id, generation_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_areas_owner ON search_areas (owner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS clues (
		id         TEXT PRIMARY KEY,
		tier       TEXT NOT NULL,
		body       TEXT NOT NULL,
		week_id    INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clue_unlocks (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		clue_id     TEXT NOT NULL REFERENCES clues (id),
		cost_paid   INTEGER NOT NULL CHECK (cost_paid >= 0),
		unlocked_at TIMESTAMP NOT NULL,
		UNIQUE (owner_id, clue_id)
	)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}
