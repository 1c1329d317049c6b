package cashin

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Malick44/ZemwifiApp-sub000/internal/identity"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
)

type cashinFixture struct {
	svc    *Service
	store  Store
	ledger ledger.Ledger
	users  identity.Repository
	hostID string
}

func newCashinFixture(t *testing.T) *cashinFixture {
	t.Helper()
	led := ledger.NewInMemory()
	users := identity.NewMemoryRepository()
	store := NewMemoryStore(led)
	return &cashinFixture{
		svc:    NewService(store, users, nil, 15*time.Minute),
		store:  store,
		ledger: led,
		users:  users,
		hostID: uuid.NewString(),
	}
}

func (f *cashinFixture) addUser(t *testing.T, phone string) identity.User {
	t.Helper()
	user := identity.User{ID: uuid.NewString(), Phone: phone, Role: identity.RoleUser, CreatedAt: time.Now().UTC()}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := f.ledger.EnsureWallet(context.Background(), user.ID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	return user
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.hostID, "+221770000100", 0, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.hostID, "+221770000100", -500, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.hostID, "not-a-phone", 500, 0); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestConfirmCreditsExactlyOnce(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000101")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 2000, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.UserID != user.ID {
		t.Fatalf("expected recipient bound at create, got %q", r.UserID)
	}

	confirmed, balance, err := f.svc.Confirm(ctx, r.ID, user.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}
	if balance != 2000 {
		t.Fatalf("expected balance 2000, got %d", balance)
	}

	// A replayed confirm is a no-op that reports the resolved record.
	again, _, err := f.svc.Confirm(ctx, r.ID, user.ID)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if again.Status != StatusConfirmed {
		t.Fatalf("expected resolved record, got status %s", again.Status)
	}

	final, err := f.ledger.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if final != 2000 {
		t.Fatalf("expected balance unchanged at 2000, got %d", final)
	}
}

func TestConfirmRequiresRecipient(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000102")
	other := f.addUser(t, "+221770000103")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 1000, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := f.svc.Confirm(ctx, r.ID, other.ID); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("expected ErrNotRecipient, got %v", err)
	}
	balance, _ := f.ledger.Balance(ctx, other.ID)
	if balance != 0 {
		t.Fatalf("expected no credit, got %d", balance)
	}
}

func TestConfirmBindsUnregisteredPhoneAtConfirm(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()

	// The phone registers only after the host created the request.
	r, err := f.svc.Create(ctx, f.hostID, "+221770000104", 700, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.UserID != "" {
		t.Fatalf("expected unbound recipient, got %q", r.UserID)
	}

	user := f.addUser(t, "+221770000104")
	confirmed, balance, err := f.svc.Confirm(ctx, r.ID, user.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.UserID != user.ID {
		t.Fatalf("expected recipient bound at confirm, got %q", confirmed.UserID)
	}
	if balance != 700 {
		t.Fatalf("expected balance 700, got %d", balance)
	}
}

func TestDenyLeavesLedgerUntouched(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000105")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 900, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	denied, err := f.svc.Deny(ctx, r.ID, user.ID)
	if err != nil {
		t.Fatalf("deny: %v", err)
	}
	if denied.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", denied.Status)
	}

	balance, _ := f.ledger.Balance(ctx, user.ID)
	if balance != 0 {
		t.Fatalf("expected balance 0 after deny, got %d", balance)
	}

	// A denied request can never be confirmed.
	if _, _, err := f.svc.Confirm(ctx, r.ID, user.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestConfirmAfterDeadlineExpires(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000106")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 1200, time.Millisecond)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, _, err := f.svc.Confirm(ctx, r.ID, user.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	stored, err := f.store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusExpired {
		t.Fatalf("expected persisted expired status, got %s", stored.Status)
	}

	balance, _ := f.ledger.Balance(ctx, user.ID)
	if balance != 0 {
		t.Fatalf("expected no credit for expired request, got %d", balance)
	}
}

func TestExpireOverdueSweep(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000107")

	if _, err := f.svc.Create(ctx, f.hostID, user.Phone, 100, time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.hostID, user.Phone, 200, time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	live, err := f.svc.Create(ctx, f.hostID, user.Phone, 300, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	n, err := f.svc.ExpireOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 expired, got %d", n)
	}

	pending, err := f.svc.PendingForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != live.ID {
		t.Fatalf("expected only the live request pending, got %d", len(pending))
	}
}

func TestConcurrentConfirmCreditsOnce(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000109")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 1500, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const attempts = 10
	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.Confirm(ctx, r.ID, user.ID)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyResolved):
			default:
				t.Errorf("unexpected confirm error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winning confirm, got %d", wins.Load())
	}
	balance, _ := f.ledger.Balance(ctx, user.ID)
	if balance != 1500 {
		t.Fatalf("expected exactly one credit of 1500, got %d", balance)
	}
}

func TestConcurrentConfirmDenyExclusive(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000110")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 800, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var confirmErr, denyErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, confirmErr = f.svc.Confirm(ctx, r.ID, user.ID)
	}()
	go func() {
		defer wg.Done()
		_, denyErr = f.svc.Deny(ctx, r.ID, user.ID)
	}()
	wg.Wait()

	if (confirmErr == nil) == (denyErr == nil) {
		t.Fatalf("exactly one transition must win, confirm=%v deny=%v", confirmErr, denyErr)
	}

	stored, err := f.store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	balance, _ := f.ledger.Balance(ctx, user.ID)
	switch stored.Status {
	case StatusConfirmed:
		if confirmErr != nil || !errors.Is(denyErr, ErrAlreadyResolved) {
			t.Fatalf("confirmed state must come from the winning confirm, confirm=%v deny=%v", confirmErr, denyErr)
		}
		if balance != 800 {
			t.Fatalf("expected one credit of 800, got %d", balance)
		}
	case StatusDenied:
		if denyErr != nil || !errors.Is(confirmErr, ErrAlreadyResolved) {
			t.Fatalf("denied state must come from the winning deny, confirm=%v deny=%v", confirmErr, denyErr)
		}
		if balance != 0 {
			t.Fatalf("denied request must not credit, got %d", balance)
		}
	default:
		t.Fatalf("request left in non-terminal state %s", stored.Status)
	}
}

func TestConcurrentConfirmVersusSweep(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000111")

	r, err := f.svc.Create(ctx, f.hostID, user.Phone, 400, time.Millisecond)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var confirmErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, confirmErr = f.svc.Confirm(ctx, r.ID, user.ID)
	}()
	go func() {
		defer wg.Done()
		if _, err := f.svc.ExpireOverdue(ctx); err != nil {
			t.Errorf("sweep: %v", err)
		}
	}()
	wg.Wait()

	// Whichever side runs first, the overdue request ends expired and the
	// ledger is never credited.
	if !errors.Is(confirmErr, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", confirmErr)
	}
	stored, err := f.store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", stored.Status)
	}
	balance, _ := f.ledger.Balance(ctx, user.ID)
	if balance != 0 {
		t.Fatalf("expired request must not credit, got %d", balance)
	}
}

func TestListByHostKeepsAuditTrail(t *testing.T) {
	f := newCashinFixture(t)
	ctx := context.Background()
	user := f.addUser(t, "+221770000108")

	r1, err := f.svc.Create(ctx, f.hostID, user.Phone, 500, 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := f.svc.Confirm(ctx, r1.ID, user.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.hostID, user.Phone, 600, 0); err != nil {
		t.Fatalf("create: %v", err)
	}

	history, err := f.svc.ListByHost(ctx, f.hostID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 requests in host history, got %d", len(history))
	}
}
