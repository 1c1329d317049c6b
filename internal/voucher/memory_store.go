package voucher

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu      sync.Mutex
	byID    map[string]Voucher
	byCode  map[string]string // code -> id
	genFunc func() (string, error)
}

// NewMemoryStore constructs an in-memory voucher store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:    make(map[string]Voucher),
		byCode:  make(map[string]string),
		genFunc: NewCode,
	}
}

func (s *memoryStore) Issue(_ context.Context, input IssueInput) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(input)
}

func (s *memoryStore) issueLocked(input IssueInput) (Voucher, error) {
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
		code, err := s.genFunc()
		if err != nil {
			return Voucher{}, err
		}
		if _, taken := s.byCode[code]; taken {
			continue
		}
		v.Code = code
		s.byID[v.ID] = v
		s.byCode[code] = v.ID
		return v, nil
	}
	return Voucher{}, ErrCodeSpaceExhausted
}

func (s *memoryStore) Redeem(_ context.Context, code, deviceMAC string) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return Voucher{}, ErrNotFound
	}
	v := s.byID[id]
	if v.UsedAt != nil {
		return v, ErrAlreadyUsed
	}
	now := time.Now().UTC()
	if !v.ExpiresAt.After(now) {
		return v, ErrExpired
	}
	v.UsedAt = &now
	v.DeviceMAC = deviceMAC
	s.byID[id] = v
	return v, nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return Voucher{}, ErrNotFound
	}
	return v, nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID string) ([]Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Voucher
	for _, v := range s.byID {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
