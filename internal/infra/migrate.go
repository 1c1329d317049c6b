package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates tables and indexes idempotently at startup.
func RunMigrations(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            UUID        PRIMARY KEY,
			phone         TEXT        NOT NULL UNIQUE,
			role          TEXT        NOT NULL DEFAULT 'user',
			pin_hash      BYTEA       NOT NULL,
			device_id     TEXT        NOT NULL DEFAULT '',
			token_version INTEGER     NOT NULL DEFAULT 0,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_balances (
			user_id UUID   PRIMARY KEY REFERENCES users(id),
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_adjustments (
			id              UUID        PRIMARY KEY,
			user_id         UUID        NOT NULL REFERENCES users(id),
			idempotency_key TEXT        NOT NULL,
			delta           BIGINT      NOT NULL,
			reason          TEXT        NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, idempotency_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_adjustments_user_created
			ON wallet_adjustments (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS hotspots (
			id           UUID             PRIMARY KEY,
			host_id      UUID             NOT NULL REFERENCES users(id),
			name         TEXT             NOT NULL,
			latitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude    DOUBLE PRECISION NOT NULL DEFAULT 0,
			online       BOOLEAN          NOT NULL DEFAULT true,
			sales_paused BOOLEAN          NOT NULL DEFAULT false,
			created_at   TIMESTAMPTZ      NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id               UUID        PRIMARY KEY,
			hotspot_id       UUID        NOT NULL REFERENCES hotspots(id),
			name             TEXT        NOT NULL,
			price            BIGINT      NOT NULL CHECK (price >= 0),
			duration_seconds BIGINT      NOT NULL CHECK (duration_seconds > 0),
			data_cap_mb      BIGINT      NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id              UUID        PRIMARY KEY,
			user_id         UUID        NOT NULL REFERENCES users(id),
			hotspot_id      UUID        NOT NULL REFERENCES hotspots(id),
			plan_id         UUID        NOT NULL REFERENCES plans(id),
			amount          BIGINT      NOT NULL,
			provider        TEXT        NOT NULL,
			provider_ref    TEXT        NOT NULL DEFAULT '',
			status          TEXT        NOT NULL,
			failure_reason  TEXT        NOT NULL DEFAULT '',
			voucher_id      UUID,
			idempotency_key TEXT        NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, idempotency_key)
		)`,
		`CREATE TABLE IF NOT EXISTS vouchers (
			id          UUID        PRIMARY KEY,
			code        TEXT        NOT NULL UNIQUE,
			user_id     UUID        NOT NULL REFERENCES users(id),
			hotspot_id  UUID        NOT NULL REFERENCES hotspots(id),
			plan_id     UUID        NOT NULL REFERENCES plans(id),
			purchase_id UUID        NOT NULL REFERENCES purchases(id),
			expires_at  TIMESTAMPTZ NOT NULL,
			used_at     TIMESTAMPTZ,
			device_mac  TEXT        NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vouchers_user_created
			ON vouchers (user_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS cash_in_requests (
			id          UUID        PRIMARY KEY,
			host_id     UUID        NOT NULL REFERENCES users(id),
			user_id     UUID        REFERENCES users(id),
			user_phone  TEXT        NOT NULL,
			amount      BIGINT      NOT NULL CHECK (amount > 0),
			status      TEXT        NOT NULL,
			expires_at  TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			resolved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_in_requests_phone_status
			ON cash_in_requests (user_phone, status)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_in_requests_host_created
			ON cash_in_requests (host_id, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
