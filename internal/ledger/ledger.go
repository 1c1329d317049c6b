package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a debit would take the wallet balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateOperation indicates the provided idempotency key was already
	// applied for this wallet, so the adjustment must not run a second time.
	ErrDuplicateOperation = errors.New("duplicate operation")

	// ErrWalletNotFound indicates no balance row exists for the user.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Adjustment is the audit record justifying a single balance change.
type Adjustment struct {
	ID             string
	UserID         string
	Delta          int64
	Reason         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Ledger is the authoritative per-user wallet balance store. Balances are
// integers in the smallest currency unit and never go negative. Every mutation
// carries a reason and an idempotency key; replays fail with
// ErrDuplicateOperation so retried network calls have at most one effect.
type Ledger interface {
	EnsureWallet(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int64, error)
	Adjust(ctx context.Context, userID string, delta int64, reason, idempotencyKey string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]Adjustment, error)
}
