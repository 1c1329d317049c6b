package purchase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

type memoryStore struct {
	mu       sync.Mutex
	ledger   ledger.Ledger
	vouchers voucher.Store
	byID     map[string]Purchase
	byKey    map[string]string // userID|key -> id
}

// NewMemoryStore constructs an in-memory purchase store for tests and dev
// mode, backed by the in-memory ledger and voucher stores.
func NewMemoryStore(led ledger.Ledger, vouchers voucher.Store) Store {
	return &memoryStore{
		ledger:   led,
		vouchers: vouchers,
		byID:     make(map[string]Purchase),
		byKey:    make(map[string]string),
	}
}

func (s *memoryStore) Confirm(ctx context.Context, p Purchase, planDuration time.Duration) (Purchase, voucher.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[p.UserID+"|"+p.IdempotencyKey]; exists {
		return Purchase{}, voucher.Voucher{}, ErrDuplicatePurchase
	}

	if p.Provider == ProviderWallet {
		if _, err := s.ledger.Adjust(ctx, p.UserID, -p.Amount, "purchase:"+p.ID, p.IdempotencyKey); err != nil {
			if err == ledger.ErrDuplicateOperation {
				return Purchase{}, voucher.Voucher{}, ErrDuplicatePurchase
			}
			return Purchase{}, voucher.Voucher{}, err
		}
	}

	v, err := s.vouchers.Issue(ctx, voucher.IssueInput{
		PurchaseID: p.ID,
		UserID:     p.UserID,
		HotspotID:  p.HotspotID,
		PlanID:     p.PlanID,
		Duration:   planDuration,
	})
	if err != nil {
		// Undo the debit so the no-voucher-without-funds invariant holds in
		// the memory backend too.
		if p.Provider == ProviderWallet {
			_, _ = s.ledger.Adjust(ctx, p.UserID, p.Amount, "purchase_reversal:"+p.ID, p.IdempotencyKey+":reversal")
		}
		return Purchase{}, voucher.Voucher{}, err
	}

	p.Status = StatusConfirmed
	p.VoucherID = v.ID
	s.byID[p.ID] = p
	s.byKey[p.UserID+"|"+p.IdempotencyKey] = p.ID
	return p, v, nil
}

func (s *memoryStore) RecordFailure(_ context.Context, p Purchase) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.byKey[p.UserID+"|"+p.IdempotencyKey]; exists {
		return s.byID[id], nil
	}
	p.Status = StatusFailed
	p.VoucherID = ""
	s.byID[p.ID] = p
	s.byKey[p.UserID+"|"+p.IdempotencyKey] = p.ID
	return p, nil
}

func (s *memoryStore) FindByIdempotencyKey(_ context.Context, userID, key string) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byKey[userID+"|"+key]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID string) ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Purchase
	for _, p := range s.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
