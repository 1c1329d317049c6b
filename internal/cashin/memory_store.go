package cashin

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
)

type memoryStore struct {
	mu       sync.Mutex
	ledger   ledger.Ledger
	requests map[string]Request
}

// NewMemoryStore constructs an in-memory cash-in store for tests and dev
// mode. It applies the same conditional-transition semantics as the Postgres
// backend, under one lock.
func NewMemoryStore(led ledger.Ledger) Store {
	return &memoryStore{ledger: led, requests: make(map[string]Request)}
}

func (s *memoryStore) Create(_ context.Context, r Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) Confirm(ctx context.Context, id, actingUserID string) (Request, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return Request{}, 0, ErrNotFound
	}
	now := time.Now().UTC()
	if r.Status == StatusPending && !r.ExpiresAt.After(now) {
		r = s.transitionLocked(r, StatusExpired, now, "")
		return r, 0, ErrExpired
	}
	if r.Status != StatusPending {
		if r.Status == StatusExpired {
			return r, 0, ErrExpired
		}
		return r, 0, ErrAlreadyResolved
	}

	balance, err := s.ledger.Adjust(ctx, actingUserID, r.Amount, "cashin:"+r.ID, r.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateOperation) {
			return r, 0, ErrAlreadyResolved
		}
		return Request{}, 0, err
	}

	r = s.transitionLocked(r, StatusConfirmed, now, actingUserID)
	return r, balance, nil
}

func (s *memoryStore) Deny(_ context.Context, id, actingUserID string) (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	now := time.Now().UTC()
	if r.Status == StatusPending && !r.ExpiresAt.After(now) {
		r = s.transitionLocked(r, StatusExpired, now, "")
		return r, ErrExpired
	}
	if r.Status != StatusPending {
		if r.Status == StatusExpired {
			return r, ErrExpired
		}
		return r, ErrAlreadyResolved
	}

	r = s.transitionLocked(r, StatusDenied, now, actingUserID)
	return r, nil
}

func (s *memoryStore) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.requests {
		if r.Status == StatusPending && !r.ExpiresAt.After(now) {
			s.requests[id] = s.transitionLocked(r, StatusExpired, now.UTC(), "")
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) ListPendingForPhone(_ context.Context, phone string) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var out []Request
	for _, r := range s.requests {
		if r.UserPhone == phone && r.Status == StatusPending && r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) ListByHost(_ context.Context, hostID string) ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.HostID == hostID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) transitionLocked(r Request, status string, at time.Time, userID string) Request {
	r.Status = status
	r.ResolvedAt = &at
	if r.UserID == "" && userID != "" {
		r.UserID = userID
	}
	s.requests[r.ID] = r
	return r
}
