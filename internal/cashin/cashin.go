package cashin

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no cash-in request exists for the identifier.
	ErrNotFound = errors.New("cash-in request not found")
	// ErrAlreadyResolved indicates the request already reached a terminal state.
	ErrAlreadyResolved = errors.New("cash-in request already resolved")
	// ErrExpired indicates the request's confirmation deadline has passed.
	ErrExpired = errors.New("cash-in request expired")
	// ErrInvalidAmount rejects non-positive top-up amounts before they reach the ledger.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidPhone rejects malformed recipient phone numbers.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrNotRecipient indicates the acting user is not the request's recipient.
	ErrNotRecipient = errors.New("not the recipient of this request")
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDenied    = "denied"
	StatusExpired   = "expired"
)

// Request is a host-initiated proposal to credit a user's wallet after an
// in-person cash handoff. Terminal states are final; the ledger is credited
// if and only if the request transitions pending -> confirmed, exactly once.
type Request struct {
	ID         string
	HostID     string
	UserID     string // empty until matched by phone
	UserPhone  string
	Amount     int64
	Status     string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Store persists cash-in requests. Confirm and Deny transition the request
// with a conditional write on the pending status, so a confirm racing the
// expiry sweep commits exactly one of the two transitions; Confirm credits
// the ledger in the same transaction as the state change.
type Store interface {
	Create(ctx context.Context, r Request) error
	Get(ctx context.Context, id string) (Request, error)
	ListPendingForPhone(ctx context.Context, phone string) ([]Request, error)
	ListByHost(ctx context.Context, hostID string) ([]Request, error)
	Confirm(ctx context.Context, id, actingUserID string) (Request, int64, error)
	Deny(ctx context.Context, id, actingUserID string) (Request, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
