package cashin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/notification"
)

// Service drives the cash-in request state machine:
// pending -(confirm)-> confirmed, pending -(deny)-> denied,
// pending -(deadline)-> expired. All other transitions are illegal.
type Service struct {
	store      Store
	users      identity.Repository
	notifier   notification.Notifier
	defaultTTL time.Duration
}

// NewService constructs a cash-in service.
func NewService(store Store, users identity.Repository, notifier notification.Notifier, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &Service{store: store, users: users, notifier: notifier, defaultTTL: defaultTTL}
}

// Create registers a pending top-up proposal from a host toward a user phone.
func (s *Service) Create(ctx context.Context, hostID, userPhone string, amount int64, ttl time.Duration) (Request, error) {
	if amount <= 0 {
		return Request{}, ErrInvalidAmount
	}
	phone, err := normalizePhone(userPhone)
	if err != nil {
		return Request{}, err
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := time.Now().UTC()
	r := Request{
		ID:        uuid.NewString(),
		HostID:    hostID,
		UserPhone: phone,
		Amount:    amount,
		Status:    StatusPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	// Bind the recipient now when the phone is already registered; otherwise
	// the binding happens at confirmation.
	if user, err := s.users.FindByPhone(ctx, phone); err == nil {
		r.UserID = user.ID
	}

	if err := s.store.Create(ctx, r); err != nil {
		return Request{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCashInRequested,
			Destination: phone,
			Body:        fmt.Sprintf("Confirm cash-in of %d before %s", amount, r.ExpiresAt.Format(time.RFC3339)),
		})
	}
	return r, nil
}

// Confirm resolves the request in the user's favor and credits their wallet.
// Retrying a confirm on an already-confirmed request returns the resolved
// record together with ErrAlreadyResolved; the credit never applies twice.
func (s *Service) Confirm(ctx context.Context, requestID, actingUserID string) (Request, int64, error) {
	if err := s.checkRecipient(ctx, requestID, actingUserID); err != nil {
		return Request{}, 0, err
	}

	r, balance, err := s.store.Confirm(ctx, requestID, actingUserID)
	if err != nil {
		return r, 0, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCashInConfirmed,
			Destination: r.HostID,
			Body:        fmt.Sprintf("Cash-in %s confirmed for %d", r.ID, r.Amount),
		})
	}
	return r, balance, nil
}

// Deny resolves the request against the host. No ledger effect.
func (s *Service) Deny(ctx context.Context, requestID, actingUserID string) (Request, error) {
	if err := s.checkRecipient(ctx, requestID, actingUserID); err != nil {
		return Request{}, err
	}
	return s.store.Deny(ctx, requestID, actingUserID)
}

// PendingForUser lists live requests addressed to the user, sweeping overdue
// ones first so the working set only contains actionable requests.
func (s *Service) PendingForUser(ctx context.Context, userID string) ([]Request, error) {
	if _, err := s.store.ExpireOverdue(ctx, time.Now().UTC()); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListPendingForPhone(ctx, user.Phone)
}

// ListByHost returns the host's request history.
func (s *Service) ListByHost(ctx context.Context, hostID string) ([]Request, error) {
	return s.store.ListByHost(ctx, hostID)
}

// ExpireOverdue sweeps all overdue pending requests; invoked periodically.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.store.ExpireOverdue(ctx, time.Now().UTC())
}

func (s *Service) checkRecipient(ctx context.Context, requestID, actingUserID string) error {
	r, err := s.store.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if r.UserID != "" {
		if r.UserID != actingUserID {
			return ErrNotRecipient
		}
		return nil
	}
	user, err := s.users.FindByID(ctx, actingUserID)
	if err != nil {
		return err
	}
	if user.Phone != r.UserPhone {
		return ErrNotRecipient
	}
	return nil
}

func normalizePhone(raw string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	digits := phone
	if strings.HasPrefix(phone, "+") {
		digits = phone[1:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return phone, nil
}
