package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

const uniqueViolation = "23505"

// PostgresStore persists purchases in PostgreSQL, composing the ledger debit
// and voucher issuance into one transaction.
type PostgresStore struct {
	db       *pgxpool.Pool
	ledger   *ledger.PostgresLedger
	vouchers *voucher.PostgresStore
}

// NewPostgresStore constructs a Postgres-backed purchase store.
func NewPostgresStore(db *pgxpool.Pool, led *ledger.PostgresLedger, vouchers *voucher.PostgresStore) *PostgresStore {
	return &PostgresStore{db: db, ledger: led, vouchers: vouchers}
}

// Confirm records the purchase, debits the wallet (for wallet purchases),
// issues the voucher and flips the purchase to confirmed in a single
// transaction. Either everything commits or nothing does.
func (s *PostgresStore) Confirm(ctx context.Context, p Purchase, planDuration time.Duration) (Purchase, voucher.Voucher, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Purchase{}, voucher.Voucher{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// The purchase row goes in first so the voucher's purchase_id reference
	// resolves inside the transaction; the unique index on
	// (user_id, idempotency_key) also claims the key before any money moves.
	p.Status = StatusPending
	p.VoucherID = ""
	if err := insertPurchase(ctx, tx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Purchase{}, voucher.Voucher{}, ErrDuplicatePurchase
		}
		return Purchase{}, voucher.Voucher{}, err
	}

	if p.Provider == ProviderWallet {
		if _, err := s.ledger.AdjustInTx(ctx, tx, p.UserID, -p.Amount, "purchase:"+p.ID, p.IdempotencyKey); err != nil {
			if errors.Is(err, ledger.ErrDuplicateOperation) {
				return Purchase{}, voucher.Voucher{}, ErrDuplicatePurchase
			}
			return Purchase{}, voucher.Voucher{}, err
		}
	}

	v, err := s.vouchers.IssueInTx(ctx, tx, voucher.IssueInput{
		PurchaseID: p.ID,
		UserID:     p.UserID,
		HotspotID:  p.HotspotID,
		PlanID:     p.PlanID,
		Duration:   planDuration,
	})
	if err != nil {
		return Purchase{}, voucher.Voucher{}, err
	}

	p.Status = StatusConfirmed
	p.VoucherID = v.ID
	if err := markConfirmed(ctx, tx, p.ID, v.ID); err != nil {
		return Purchase{}, voucher.Voucher{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, voucher.Voucher{}, err
	}
	return p, v, nil
}

// RecordFailure persists a failed purchase so retries with the same key
// replay the identical outcome.
func (s *PostgresStore) RecordFailure(ctx context.Context, p Purchase) (Purchase, error) {
	p.Status = StatusFailed
	p.VoucherID = ""
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Purchase{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := insertPurchase(ctx, tx, p); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return s.FindByIdempotencyKey(ctx, p.UserID, p.IdempotencyKey)
		}
		return Purchase{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// FindByIdempotencyKey returns the purchase recorded under the caller's key.
func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, userID, key string) (Purchase, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Purchase{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, selectPurchase+` WHERE user_id = $1 AND idempotency_key = $2`, uid, key)
	return scanPurchase(row)
}

// Get fetches a purchase by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Purchase, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Purchase{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, selectPurchase+` WHERE id = $1`, pid)
	return scanPurchase(row)
}

// ListByUser returns the user's purchases, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Purchase, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, selectPurchase+` WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectPurchase = `SELECT id, user_id, hotspot_id, plan_id, amount, provider, provider_ref, status, failure_reason, voucher_id, idempotency_key, created_at FROM purchases`

func insertPurchase(ctx context.Context, tx pgx.Tx, p Purchase) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	uid, err := uuid.Parse(p.UserID)
	if err != nil {
		return err
	}
	hid, err := uuid.Parse(p.HotspotID)
	if err != nil {
		return err
	}
	pid, err := uuid.Parse(p.PlanID)
	if err != nil {
		return err
	}
	var voucherID *uuid.UUID
	if p.VoucherID != "" {
		v, err := uuid.Parse(p.VoucherID)
		if err != nil {
			return err
		}
		voucherID = &v
	}
	_, err = tx.Exec(ctx, `INSERT INTO purchases (id, user_id, hotspot_id, plan_id, amount, provider, provider_ref, status, failure_reason, voucher_id, idempotency_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, uid, hid, pid, p.Amount, p.Provider, nullable(p.ProviderRef), p.Status, nullable(p.FailureReason), voucherID, p.IdempotencyKey, p.CreatedAt.UTC())
	return err
}

func markConfirmed(ctx context.Context, tx pgx.Tx, purchaseID, voucherID string) error {
	pid, err := uuid.Parse(purchaseID)
	if err != nil {
		return err
	}
	vid, err := uuid.Parse(voucherID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE purchases SET status = $2, voucher_id = $3 WHERE id = $1`,
		pid, StatusConfirmed, vid)
	return err
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p                 Purchase
		id, uid, hid, pid uuid.UUID
		providerRef       *string
		failureReason     *string
		voucherID         *uuid.UUID
		createdAt         time.Time
	)
	if err := row.Scan(&id, &uid, &hid, &pid, &p.Amount, &p.Provider, &providerRef, &p.Status, &failureReason, &voucherID, &p.IdempotencyKey, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	p.ID = id.String()
	p.UserID = uid.String()
	p.HotspotID = hid.String()
	p.PlanID = pid.String()
	if providerRef != nil {
		p.ProviderRef = *providerRef
	}
	if failureReason != nil {
		p.FailureReason = *failureReason
	}
	if voucherID != nil {
		p.VoucherID = voucherID.String()
	}
	p.CreatedAt = createdAt.UTC()
	return p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
