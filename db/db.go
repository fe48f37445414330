// Package db bootstraps the persistent schema: users, their ledger rows, and
// the immutable transaction records.
package db

import (
	"database/sql"
	"fmt"
)

func Initialize(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			loginname TEXT UNIQUE NOT NULL,
			hashed_password TEXT NOT NULL,
			password_changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ledgers (
			id BIGSERIAL PRIMARY KEY,
			owner_id BIGINT UNIQUE NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			sender_id BIGINT NOT NULL REFERENCES users(id),
			receiver_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			sendtime TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender_id)`,
		`CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver_id)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("could not initialize schema: %w", err)
		}
	}
	return nil
}
