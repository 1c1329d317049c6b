package voucher

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

// PostgresStore persists vouchers in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed voucher store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Issue creates a voucher in its own transaction.
func (s *PostgresStore) Issue(ctx context.Context, input IssueInput) (Voucher, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Voucher{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	v, err := s.IssueInTx(ctx, tx, input)
	if err != nil {
		return Voucher{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

// IssueInTx creates a voucher within a caller-owned transaction, so issuance
// commits or aborts together with the purchase that paid for it. Code
// collisions against the unique index are retried with a fresh value inside a
// savepoint, bounded by maxCodeAttempts.
func (s *PostgresStore) IssueInTx(ctx context.Context, tx pgx.Tx, input IssueInput) (Voucher, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return Voucher{}, err
	}
	hotspotID, err := uuid.Parse(input.HotspotID)
	if err != nil {
		return Voucher{}, err
	}
	planID, err := uuid.Parse(input.PlanID)
	if err != nil {
		return Voucher{}, err
	}
	purchaseID, err := uuid.Parse(input.PurchaseID)
	if err != nil {
		return Voucher{}, err
	}

	now := time.Now().UTC()
	v := Voucher{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		HotspotID:  input.HotspotID,
		PlanID:     input.PlanID,
		PurchaseID: input.PurchaseID,
		ExpiresAt:  now.Add(input.Duration),
		CreatedAt:  now,
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return Voucher{}, err
		}

		// Savepoint so a unique-violation on the code does not poison the
		// caller's transaction.
		inner, err := tx.Begin(ctx)
		if err != nil {
			return Voucher{}, err
		}
		_, err = inner.Exec(ctx, `INSERT INTO vouchers (id, code, user_id, hotspot_id, plan_id, purchase_id, expires_at, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.MustParse(v.ID), code, userID, hotspotID, planID, purchaseID, v.ExpiresAt, v.CreatedAt)
		if err != nil {
			_ = inner.Rollback(ctx)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "vouchers_code_key" {
				continue
			}
			return Voucher{}, err
		}
		if err := inner.Commit(ctx); err != nil {
			return Voucher{}, err
		}
		v.Code = code
		return v, nil
	}

	return Voucher{}, ErrCodeSpaceExhausted
}

// Redeem marks the voucher used in one conditional update. Concurrent calls
// on the same code let the storage engine pick the single winner.
func (s *PostgresStore) Redeem(ctx context.Context, code, deviceMAC string) (Voucher, error) {
	row := s.db.QueryRow(ctx, `UPDATE vouchers SET used_at = now(), device_mac = $2
        WHERE code = $1 AND used_at IS NULL AND expires_at > now()
        RETURNING id, code, user_id, hotspot_id, plan_id, purchase_id, expires_at, used_at, device_mac, created_at`,
		code, deviceMAC)
	v, err := scanVoucher(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Voucher{}, err
	}

	// The guard rejected the write; inspect the row to report why.
	existing, err := s.findByCode(ctx, code)
	if err != nil {
		return Voucher{}, err
	}
	if existing.UsedAt != nil {
		return existing, ErrAlreadyUsed
	}
	return existing, ErrExpired
}

// Get fetches a voucher by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (Voucher, error) {
	vid, err := uuid.Parse(id)
	if err != nil {
		return Voucher{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, code, user_id, hotspot_id, plan_id, purchase_id, expires_at, used_at, device_mac, created_at
        FROM vouchers WHERE id = $1`, vid)
	return scanVoucher(row)
}

// ListByUser returns the user's vouchers, newest first. Vouchers are never
// deleted; history stays queryable for reconciliation.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Voucher, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, code, user_id, hotspot_id, plan_id, purchase_id, expires_at, used_at, device_mac, created_at
        FROM vouchers WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) findByCode(ctx context.Context, code string) (Voucher, error) {
	row := s.db.QueryRow(ctx, `SELECT id, code, user_id, hotspot_id, plan_id, purchase_id, expires_at, used_at, device_mac, created_at
        FROM vouchers WHERE code = $1`, code)
	return scanVoucher(row)
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v                                  Voucher
		id, userID, hotspotID, planID, pid uuid.UUID
		expiresAt, createdAt               time.Time
		usedAt                             *time.Time
		deviceMAC                          *string
	)
	if err := row.Scan(&id, &v.Code, &userID, &hotspotID, &planID, &pid, &expiresAt, &usedAt, &deviceMAC, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, ErrNotFound
		}
		return Voucher{}, err
	}
	v.ID = id.String()
	v.UserID = userID.String()
	v.HotspotID = hotspotID.String()
	v.PlanID = planID.String()
	v.PurchaseID = pid.String()
	v.ExpiresAt = expiresAt.UTC()
	if usedAt != nil {
		t := usedAt.UTC()
		v.UsedAt = &t
	}
	if deviceMAC != nil {
		v.DeviceMAC = *deviceMAC
	}
	v.CreatedAt = createdAt.UTC()
	return v, nil
}
