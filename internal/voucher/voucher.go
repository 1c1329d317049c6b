package voucher

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no voucher exists for the code or identifier.
	ErrNotFound = errors.New("voucher not found")
	// ErrAlreadyUsed indicates the voucher was redeemed before.
	ErrAlreadyUsed = errors.New("voucher already used")
	// ErrExpired indicates the voucher's validity window has passed.
	ErrExpired = errors.New("voucher expired")
	// ErrCodeSpaceExhausted indicates code generation kept colliding with the
	// unique index. This is an operational problem, not a per-request one.
	ErrCodeSpaceExhausted = errors.New("voucher code space exhausted")
)

// Status describes the lifecycle position of a voucher.
type Status string

const (
	StatusActive  Status = "active"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

// Voucher is a single-use, time-bound Wi-Fi access token bound to exactly one
// purchase. Redemption is the only mutation it ever receives.
type Voucher struct {
	ID         string
	Code       string
	UserID     string
	HotspotID  string
	PlanID     string
	PurchaseID string
	ExpiresAt  time.Time
	UsedAt     *time.Time
	DeviceMAC  string
	CreatedAt  time.Time
}

// StatusOf derives the voucher status from used_at/expires_at. The status is
// never stored, so it cannot drift from the underlying fields.
func StatusOf(v Voucher, now time.Time) Status {
	if v.UsedAt != nil {
		return StatusUsed
	}
	if !v.ExpiresAt.After(now) {
		return StatusExpired
	}
	return StatusActive
}

// IssueInput captures the data needed to issue a voucher for a purchase.
type IssueInput struct {
	PurchaseID string
	UserID     string
	HotspotID  string
	PlanID     string
	Duration   time.Duration
}

// Store persists vouchers. Issue creates exactly one voucher with a fresh
// unguessable code; Redeem marks it used in a single conditional write so
// concurrent attempts race safely and only one wins.
type Store interface {
	Issue(ctx context.Context, input IssueInput) (Voucher, error)
	Redeem(ctx context.Context, code, deviceMAC string) (Voucher, error)
	Get(ctx context.Context, id string) (Voucher, error)
	ListByUser(ctx context.Context, userID string) ([]Voucher, error)
}
