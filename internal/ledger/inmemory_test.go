package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestAdjustCreditAndDebit(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	userID := uuid.NewString()

	if err := led.EnsureWallet(ctx, userID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}

	balance, err := led.Adjust(ctx, userID, 2_000, "cashin:abc", "abc")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance != 2_000 {
		t.Fatalf("expected balance 2000, got %d", balance)
	}

	balance, err = led.Adjust(ctx, userID, -500, "purchase:p1", "k1")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 1_500 {
		t.Fatalf("expected balance 1500, got %d", balance)
	}
}

func TestAdjustInsufficientFunds(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	userID := uuid.NewString()
	_ = led.EnsureWallet(ctx, userID)
	SeedBalance(led, userID, 1_000)

	if _, err := led.Adjust(ctx, userID, -1_500, "purchase:p1", "k1"); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, err := led.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 1_000 {
		t.Fatalf("rejected debit must not change balance, got %d", balance)
	}
}

func TestAdjustDuplicateKey(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	userID := uuid.NewString()
	_ = led.EnsureWallet(ctx, userID)

	if _, err := led.Adjust(ctx, userID, 1_000, "cashin:r1", "r1"); err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	if _, err := led.Adjust(ctx, userID, 1_000, "cashin:r1", "r1"); !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected duplicate operation, got %v", err)
	}

	balance, _ := led.Balance(ctx, userID)
	if balance != 1_000 {
		t.Fatalf("replay must not credit twice, got %d", balance)
	}
}

func TestAdjustUnknownWallet(t *testing.T) {
	led := NewInMemory()
	if _, err := led.Adjust(context.Background(), uuid.NewString(), 100, "cashin:x", "x"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestBalanceNeverNegativeUnderConcurrency(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	userID := uuid.NewString()
	_ = led.EnsureWallet(ctx, userID)
	SeedBalance(led, userID, 500)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = led.Adjust(ctx, userID, -100, "purchase:race", uuid.NewString())
		}(i)
	}
	wg.Wait()

	balance, err := led.Balance(ctx, userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance < 0 {
		t.Fatalf("balance went negative: %d", balance)
	}
	if balance != 0 {
		t.Fatalf("expected exactly five debits to win, final balance %d", balance)
	}
}

func TestHistoryRecordsAdjustments(t *testing.T) {
	led := NewInMemory()
	ctx := context.Background()
	userID := uuid.NewString()
	_ = led.EnsureWallet(ctx, userID)

	_, _ = led.Adjust(ctx, userID, 2_000, "cashin:r1", "r1")
	_, _ = led.Adjust(ctx, userID, -700, "purchase:p1", "k1")

	entries, err := led.History(ctx, userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Delta != -700 || entries[0].Reason != "purchase:p1" {
		t.Fatalf("expected newest entry first, got %+v", entries[0])
	}
}
