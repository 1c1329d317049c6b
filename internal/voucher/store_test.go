package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testIssueInput() IssueInput {
	return IssueInput{
		PurchaseID: uuid.NewString(),
		UserID:     uuid.NewString(),
		HotspotID:  uuid.NewString(),
		PlanID:     uuid.NewString(),
		Duration:   time.Hour,
	}
}

func TestIssueAndRedeem(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	v, err := store.Issue(ctx, testIssueInput())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if v.Code == "" {
		t.Fatal("expected a generated code")
	}
	if got := StatusOf(v, time.Now().UTC()); got != StatusActive {
		t.Fatalf("expected active, got %s", got)
	}

	redeemed, err := store.Redeem(ctx, v.Code, "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.UsedAt == nil {
		t.Fatal("expected used_at to be set")
	}
	if redeemed.DeviceMAC != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("expected device bound at redemption, got %q", redeemed.DeviceMAC)
	}
}

func TestRedeemTwiceFails(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	v, _ := store.Issue(ctx, testIssueInput())
	if _, err := store.Redeem(ctx, v.Code, "mac-1"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := store.Redeem(ctx, v.Code, "mac-2"); !errors.Is(err, ErrAlreadyUsed) {
		t.Fatalf("expected already used, got %v", err)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Redeem(context.Background(), "NOSUCHCODE", "mac"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRedeemExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	expired := Voucher{
		ID:        uuid.NewString(),
		Code:      "EXPIREDCODE00001",
		UserID:    uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}
	SeedVoucher(store, expired)

	if _, err := store.Redeem(ctx, expired.Code, "mac"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if got := StatusOf(expired, time.Now().UTC()); got != StatusExpired {
		t.Fatalf("expected status expired even when never redeemed, got %s", got)
	}
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	v, _ := store.Issue(ctx, testIssueInput())

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Redeem(ctx, v.Code, "mac")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyUsed):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", attempts-1, wins, conflicts)
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, _ := store.Issue(ctx, testIssueInput())

	calls := 0
	SetCodeGenerator(store, func() (string, error) {
		calls++
		if calls == 1 {
			return first.Code, nil // collide once
		}
		return NewCode()
	})

	v, err := store.Issue(ctx, testIssueInput())
	if err != nil {
		t.Fatalf("issue with one collision: %v", err)
	}
	if v.Code == first.Code {
		t.Fatal("expected a fresh code after collision")
	}
}

func TestIssueGivesUpAfterBoundedRetries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, _ := store.Issue(ctx, testIssueInput())
	SetCodeGenerator(store, func() (string, error) { return first.Code, nil })

	if _, err := store.Issue(ctx, testIssueInput()); !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected code space exhausted, got %v", err)
	}
}

func TestExpiresAtFollowsPlanDuration(t *testing.T) {
	store := NewMemoryStore()
	input := testIssueInput()
	input.Duration = 30 * time.Minute

	before := time.Now().UTC()
	v, err := store.Issue(context.Background(), input)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	want := before.Add(30 * time.Minute)
	if v.ExpiresAt.Before(want) || v.ExpiresAt.After(want.Add(time.Second)) {
		t.Fatalf("expected expiry near %v, got %v", want, v.ExpiresAt)
	}
}
