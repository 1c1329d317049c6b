package cashin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
)

// PostgresStore persists cash-in requests in PostgreSQL.
type PostgresStore struct {
	db     *pgxpool.Pool
	ledger *ledger.PostgresLedger
}

// NewPostgresStore constructs a Postgres-backed cash-in store.
func NewPostgresStore(db *pgxpool.Pool, led *ledger.PostgresLedger) *PostgresStore {
	return &PostgresStore{db: db, ledger: led}
}

// Create inserts a pending request.
func (s *PostgresStore) Create(ctx context.Context, r Request) error {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return err
	}
	hostID, err := uuid.Parse(r.HostID)
	if err != nil {
		return err
	}
	var userID *uuid.UUID
	if r.UserID != "" {
		u, err := uuid.Parse(r.UserID)
		if err != nil {
			return err
		}
		userID = &u
	}
	_, err = s.db.Exec(ctx, `INSERT INTO cash_in_requests (id, host_id, user_id, user_phone, amount, status, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, hostID, userID, r.UserPhone, r.Amount, r.Status, r.ExpiresAt.UTC(), r.CreatedAt.UTC())
	return err
}

// Confirm atomically transitions pending -> confirmed and credits the
// recipient's wallet in the same transaction, keyed by the request id so the
// credit can never apply twice.
func (s *PostgresStore) Confirm(ctx context.Context, id, actingUserID string) (Request, int64, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Request{}, 0, ErrNotFound
	}
	uid, err := uuid.Parse(actingUserID)
	if err != nil {
		return Request{}, 0, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, 0, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lazyExpire(ctx, tx, rid); err != nil {
		return Request{}, 0, err
	}

	row := tx.QueryRow(ctx, `UPDATE cash_in_requests
        SET status = $3, resolved_at = now(), user_id = COALESCE(user_id, $2)
        WHERE id = $1 AND status = $4 AND expires_at > now()
        RETURNING `+requestColumns, rid, uid, StatusConfirmed, StatusPending)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.resolveConflict(ctx, tx, rid)
		}
		return Request{}, 0, err
	}

	balance, err := s.ledger.AdjustInTx(ctx, tx, actingUserID, r.Amount, "cashin:"+r.ID, r.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateOperation) {
			// The request id was already applied; never credit twice.
			return Request{}, 0, ErrAlreadyResolved
		}
		return Request{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, 0, err
	}
	return r, balance, nil
}

// Deny atomically transitions pending -> denied. The ledger is untouched.
func (s *PostgresStore) Deny(ctx context.Context, id, actingUserID string) (Request, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	uid, err := uuid.Parse(actingUserID)
	if err != nil {
		return Request{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := lazyExpire(ctx, tx, rid); err != nil {
		return Request{}, err
	}

	row := tx.QueryRow(ctx, `UPDATE cash_in_requests
        SET status = $3, resolved_at = now(), user_id = COALESCE(user_id, $2)
        WHERE id = $1 AND status = $4 AND expires_at > now()
        RETURNING `+requestColumns, rid, uid, StatusDenied, StatusPending)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res, _, cerr := s.resolveConflict(ctx, tx, rid)
			return res, cerr
		}
		return Request{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return r, nil
}

// ExpireOverdue sweeps pending requests past their deadline into the expired
// state. Purely a status write; the ledger is never touched.
func (s *PostgresStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := s.db.Exec(ctx, `UPDATE cash_in_requests SET status = $1, resolved_at = now()
        WHERE status = $2 AND expires_at <= $3`, StatusExpired, StatusPending, now.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Get fetches a request by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Request, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return Request{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM cash_in_requests WHERE id = $1`, rid)
	return scanRequest(row)
}

// ListPendingForPhone returns live pending requests addressed to the phone.
func (s *PostgresStore) ListPendingForPhone(ctx context.Context, phone string) ([]Request, error) {
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM cash_in_requests
        WHERE user_phone = $1 AND status = $2 AND expires_at > now() ORDER BY created_at DESC`, phone, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListByHost returns the host's requests, newest first. Terminal requests are
// retained as an audit trail.
func (s *PostgresStore) ListByHost(ctx context.Context, hostID string) ([]Request, error) {
	hid, err := uuid.Parse(hostID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM cash_in_requests
        WHERE host_id = $1 ORDER BY created_at DESC`, hid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// resolveConflict reports why the conditional transition matched no row.
func (s *PostgresStore) resolveConflict(ctx context.Context, tx pgx.Tx, rid uuid.UUID) (Request, int64, error) {
	row := tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM cash_in_requests WHERE id = $1`, rid)
	r, err := scanRequest(row)
	if err != nil {
		return Request{}, 0, err
	}
	// Commit so the lazy expiry transition persists.
	if err := tx.Commit(ctx); err != nil {
		return Request{}, 0, err
	}
	if r.Status == StatusExpired {
		return r, 0, ErrExpired
	}
	return r, 0, ErrAlreadyResolved
}

func lazyExpire(ctx context.Context, tx pgx.Tx, rid uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE cash_in_requests SET status = $2, resolved_at = now()
        WHERE id = $1 AND status = $3 AND expires_at <= now()`, rid, StatusExpired, StatusPending)
	return err
}

const requestColumns = `id, host_id, user_id, user_phone, amount, status, expires_at, created_at, resolved_at`

func scanRequest(row pgx.Row) (Request, error) {
	var (
		r                    Request
		id, hostID           uuid.UUID
		userID               *uuid.UUID
		expiresAt, createdAt time.Time
		resolvedAt           *time.Time
	)
	if err := row.Scan(&id, &hostID, &userID, &r.UserPhone, &r.Amount, &r.Status, &expiresAt, &createdAt, &resolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	r.ID = id.String()
	r.HostID = hostID.String()
	if userID != nil {
		r.UserID = userID.String()
	}
	r.ExpiresAt = expiresAt.UTC()
	r.CreatedAt = createdAt.UTC()
	if resolvedAt != nil {
		t := resolvedAt.UTC()
		r.ResolvedAt = &t
	}
	return r, nil
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	var out []Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
