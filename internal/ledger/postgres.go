package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresLedger persists wallet balances in PostgreSQL. Debits are guarded by
// a conditional update on the balance row, so concurrent adjustments against
// the same wallet serialize in the storage engine rather than in application
// code.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet guarantees a zero-balance row exists for the user.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(ctx, `INSERT INTO wallet_balances (user_id, balance) VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING`, uid)
	return err
}

// Balance returns the current balance for the user's wallet.
func (l *PostgresLedger) Balance(ctx context.Context, userID string) (int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, err
	}
	var balance int64
	err = l.db.QueryRow(ctx, `SELECT balance FROM wallet_balances WHERE user_id = $1`, uid).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Adjust applies a delta to the user's balance inside its own transaction.
func (l *PostgresLedger) Adjust(ctx context.Context, userID string, delta int64, reason, idempotencyKey string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := l.AdjustInTx(ctx, tx, userID, delta, reason, idempotencyKey)
	if err != nil {
		return balance, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// AdjustInTx applies a delta within a caller-owned transaction, so the balance
// change commits or aborts together with the record that justified it
// (purchase confirmation, cash-in confirmation).
func (l *PostgresLedger) AdjustInTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason, idempotencyKey string) (int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO wallet_adjustments (id, user_id, idempotency_key, delta, reason, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, uuid.New(), uid, idempotencyKey, delta, reason, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrDuplicateOperation
		}
		return 0, err
	}

	var balance int64
	err = tx.QueryRow(ctx, `UPDATE wallet_balances SET balance = balance + $2
        WHERE user_id = $1 AND balance + $2 >= 0
        RETURNING balance`, uid, delta).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// The guard rejected the write: either the wallet is missing or the
		// debit would go negative.
		var exists bool
		if qerr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallet_balances WHERE user_id = $1)`, uid).Scan(&exists); qerr != nil {
			return 0, qerr
		}
		if !exists {
			return 0, ErrWalletNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// History lists the most recent adjustments for the user, newest first.
func (l *PostgresLedger) History(ctx context.Context, userID string, limit int) ([]Adjustment, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `SELECT id, user_id, idempotency_key, delta, reason, created_at
        FROM wallet_adjustments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Adjustment
	for rows.Next() {
		var (
			a         Adjustment
			id, user  uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&id, &user, &a.IdempotencyKey, &a.Delta, &a.Reason, &createdAt); err != nil {
			return nil, err
		}
		a.ID = id.String()
		a.UserID = user.String()
		a.CreatedAt = createdAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
