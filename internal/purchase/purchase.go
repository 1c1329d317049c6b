package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

var (
	// ErrNotFound indicates no purchase exists for the identifier or key.
	ErrNotFound = errors.New("purchase not found")
	// ErrHotspotUnavailable indicates the hotspot is offline or sales are paused.
	ErrHotspotUnavailable = errors.New("hotspot unavailable")
	// ErrProviderDeclined indicates the external payment provider refused the charge.
	ErrProviderDeclined = errors.New("provider declined")
	// ErrDuplicatePurchase signals a concurrent request already claimed the
	// idempotency key; callers should return the original purchase instead.
	ErrDuplicatePurchase = errors.New("duplicate purchase")
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

const (
	// ProviderWallet pays from the user's wallet balance.
	ProviderWallet = "wallet"

	ReasonInsufficientFunds = "insufficient_funds"
	ReasonProviderDeclined  = "provider_declined"
)

// Purchase records one buy attempt. A purchase is confirmed if and only if
// exactly one voucher was created and linked to it; failed purchases never
// debit the wallet.
type Purchase struct {
	ID             string
	UserID         string
	HotspotID      string
	PlanID         string
	Amount         int64
	Provider       string
	ProviderRef    string
	Status         string
	FailureReason  string
	VoucherID      string
	IdempotencyKey string
	CreatedAt      time.Time
}

// Store persists purchases. Confirm commits the wallet debit (for wallet
// purchases), the voucher issuance, and the purchase record in one atomic
// step; a unique (user_id, idempotency_key) index makes retried calls
// observable as ErrDuplicatePurchase.
type Store interface {
	FindByIdempotencyKey(ctx context.Context, userID, key string) (Purchase, error)
	Get(ctx context.Context, id string) (Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]Purchase, error)
	Confirm(ctx context.Context, p Purchase, planDuration time.Duration) (Purchase, voucher.Voucher, error)
	RecordFailure(ctx context.Context, p Purchase) (Purchase, error)
}
