package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
	applied  map[string]int64 // userID|idempotencyKey -> balance after apply
	history  map[string][]Adjustment
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and dev mode. It enforces the same guards as the Postgres backend:
// balances never go negative and idempotency keys apply at most once.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]int64),
		applied:  make(map[string]int64),
		history:  make(map[string][]Adjustment),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[userID]; !exists {
		l.balances[userID] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[userID]
	if !exists {
		return 0, ErrWalletNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Adjust(_ context.Context, userID string, delta int64, reason, idempotencyKey string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adjustLocked(userID, delta, reason, idempotencyKey)
}

func (l *inMemoryLedger) adjustLocked(userID string, delta int64, reason, idempotencyKey string) (int64, error) {
	if _, seen := l.applied[userID+"|"+idempotencyKey]; seen {
		return 0, ErrDuplicateOperation
	}

	balance, exists := l.balances[userID]
	if !exists {
		return 0, ErrWalletNotFound
	}
	if balance+delta < 0 {
		return 0, ErrInsufficientFunds
	}

	balance += delta
	l.balances[userID] = balance
	l.applied[userID+"|"+idempotencyKey] = balance
	l.history[userID] = append([]Adjustment{{
		ID:             uuid.NewString(),
		UserID:         userID,
		Delta:          delta,
		Reason:         reason,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}}, l.history[userID]...)
	return balance, nil
}

func (l *inMemoryLedger) History(_ context.Context, userID string, limit int) ([]Adjustment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	entries := l.history[userID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]Adjustment, len(entries))
	copy(out, entries)
	return out, nil
}
