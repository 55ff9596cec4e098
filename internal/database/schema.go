package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Timestamps are unix milliseconds; decimal amounts are stored as exact text.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    referral_earned BIGINT NOT NULL DEFAULT 0 CHECK (referral_earned >= 0),
    invited_by BIGINT REFERENCES users(id),
    created_at BIGINT NOT NULL,
    CHECK (invited_by IS NULL OR invited_by <> id)
);

CREATE TABLE IF NOT EXISTS orders (
    order_id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    quantity BIGINT NOT NULL CHECK (quantity > 0),
    unit_price TEXT NOT NULL,
    price TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'confirmed', 'rejected')),
    created_at BIGINT NOT NULL,
    decided_at BIGINT,
    decided_by BIGINT,
    proof_at BIGINT,
    reminded_at BIGINT
);

CREATE TABLE IF NOT EXISTS history (
    id TEXT PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    kind TEXT NOT NULL,
    order_id TEXT,
    quantity BIGINT NOT NULL DEFAULT 0,
    price TEXT NOT NULL DEFAULT '0',
    status TEXT NOT NULL DEFAULT '',
    amount BIGINT NOT NULL DEFAULT 0,
    text TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS referral_credits (
    order_id TEXT PRIMARY KEY REFERENCES orders(order_id),
    inviter_id BIGINT NOT NULL REFERENCES users(id),
    invitee_id BIGINT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL CHECK (amount > 0),
    pair_key TEXT UNIQUE,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_referral_credits_inviter ON referral_credits(inviter_id);
`

func InitSchema(db *sqlx.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
