package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Malick44/ZemwifiApp-sub000/internal/catalog"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

type decliningGateway struct{ reason string }

func (g decliningGateway) Charge(_ context.Context, _ ChargeRequest) (ChargeResult, error) {
	return ChargeResult{Approved: false, Reason: g.reason}, nil
}

// recoveringGateway declines a fixed number of charges, then approves.
type recoveringGateway struct {
	declines int
	calls    int
}

func (g *recoveringGateway) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	g.calls++
	if g.calls <= g.declines {
		return ChargeResult{Approved: false, Reason: "insufficient_float"}, nil
	}
	return ChargeResult{Approved: true, Reference: "ref-" + req.Reference}, nil
}

type fixture struct {
	svc     *Service
	ledger  ledger.Ledger
	catalog *catalog.Service
	userID  string
	hotspot catalog.Hotspot
	plan    catalog.Plan
	hostID  string
}

func newFixture(t *testing.T, gateway Gateway, price int64) *fixture {
	t.Helper()
	ctx := context.Background()

	led := ledger.NewInMemory()
	vouchers := voucher.NewMemoryStore()
	catalogSvc := catalog.NewService(catalog.NewMemoryRepository(), nil)
	store := NewMemoryStore(led, vouchers)

	hostID := uuid.NewString()
	hotspot, err := catalogSvc.CreateHotspot(ctx, hostID, catalog.HotspotInput{Name: "Corner Cafe"})
	if err != nil {
		t.Fatalf("create hotspot: %v", err)
	}
	plan, err := catalogSvc.CreatePlan(ctx, hostID, hotspot.ID, catalog.PlanInput{
		Name:     "1 hour",
		Price:    price,
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}

	userID := uuid.NewString()
	if err := led.EnsureWallet(ctx, userID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}

	return &fixture{
		svc:     NewService(store, vouchers, catalogSvc, gateway, nil),
		ledger:  led,
		catalog: catalogSvc,
		userID:  userID,
		hotspot: hotspot,
		plan:    plan,
		hostID:  hostID,
	}
}

func TestProcessWalletPurchase(t *testing.T) {
	f := newFixture(t, nil, 500)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, f.userID, 1_000)

	res, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       ProviderWallet,
		IdempotencyKey: "buy-1",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Purchase.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", res.Purchase.Status)
	}
	if res.Voucher.ID == "" || res.Purchase.VoucherID != res.Voucher.ID {
		t.Fatalf("expected exactly one linked voucher, got %+v", res)
	}
	if res.Voucher.PurchaseID != res.Purchase.ID {
		t.Fatalf("voucher must reference its purchase, got %q", res.Voucher.PurchaseID)
	}
	if got := voucher.StatusOf(res.Voucher, time.Now().UTC()); got != voucher.StatusActive {
		t.Fatalf("expected active voucher, got %s", got)
	}

	balance, _ := f.ledger.Balance(ctx, f.userID)
	if balance != 500 {
		t.Fatalf("expected balance 500 after debit, got %d", balance)
	}
}

func TestProcessInsufficientFunds(t *testing.T) {
	f := newFixture(t, nil, 1_500)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, f.userID, 1_000)

	res, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       ProviderWallet,
		IdempotencyKey: "buy-broke",
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if res.Purchase.Status != StatusFailed {
		t.Fatalf("expected failed purchase, got %s", res.Purchase.Status)
	}
	if res.Purchase.FailureReason != ReasonInsufficientFunds {
		t.Fatalf("unexpected failure reason %q", res.Purchase.FailureReason)
	}
	if res.Purchase.VoucherID != "" {
		t.Fatal("failed purchase must not link a voucher")
	}

	balance, _ := f.ledger.Balance(ctx, f.userID)
	if balance != 1_000 {
		t.Fatalf("failed purchase must not move funds, balance %d", balance)
	}

	// A same-key retry replays the recorded failure, error included.
	replayed, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       ProviderWallet,
		IdempotencyKey: "buy-broke",
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("replay must re-surface insufficient funds, got %v", err)
	}
	if replayed.Purchase.ID != res.Purchase.ID {
		t.Fatalf("replay returned a different purchase: %s vs %s", replayed.Purchase.ID, res.Purchase.ID)
	}
}

func TestProcessIdempotentRetry(t *testing.T) {
	f := newFixture(t, nil, 500)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, f.userID, 2_000)

	input := ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       ProviderWallet,
		IdempotencyKey: "buy-retry",
	}

	first, err := f.svc.Process(ctx, input)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	second, err := f.svc.Process(ctx, input)
	if err != nil {
		t.Fatalf("retry must replay, got %v", err)
	}

	if first.Purchase.ID != second.Purchase.ID {
		t.Fatalf("retry returned a different purchase: %s vs %s", first.Purchase.ID, second.Purchase.ID)
	}
	if first.Voucher.ID != second.Voucher.ID {
		t.Fatalf("retry returned a different voucher: %s vs %s", first.Voucher.ID, second.Voucher.ID)
	}

	balance, _ := f.ledger.Balance(ctx, f.userID)
	if balance != 1_500 {
		t.Fatalf("expected exactly one debit, balance %d", balance)
	}
}

func TestProcessHotspotUnavailable(t *testing.T) {
	f := newFixture(t, nil, 500)
	ctx := context.Background()
	ledger.SeedBalance(f.ledger, f.userID, 1_000)

	if _, err := f.catalog.SetAvailability(ctx, f.hostID, f.hotspot.ID, true, true); err != nil {
		t.Fatalf("pause sales: %v", err)
	}

	_, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       ProviderWallet,
		IdempotencyKey: "buy-paused",
	})
	if !errors.Is(err, ErrHotspotUnavailable) {
		t.Fatalf("expected hotspot unavailable, got %v", err)
	}

	balance, _ := f.ledger.Balance(ctx, f.userID)
	if balance != 1_000 {
		t.Fatalf("unavailable hotspot must not move funds, balance %d", balance)
	}
}

func TestProcessProviderDeclined(t *testing.T) {
	f := newFixture(t, decliningGateway{reason: "card_expired"}, 500)
	ctx := context.Background()

	res, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       "mtn_momo",
		IdempotencyKey: "buy-declined",
	})
	if !errors.Is(err, ErrProviderDeclined) {
		t.Fatalf("expected provider declined, got %v", err)
	}
	if res.Purchase.Status != StatusFailed {
		t.Fatalf("expected failed purchase, got %s", res.Purchase.Status)
	}
	if res.Purchase.FailureReason != "provider_declined:card_expired" {
		t.Fatalf("unexpected failure reason %q", res.Purchase.FailureReason)
	}

	// Declined charges have no financial effect and are not recorded, so the
	// key stays free for a retry.
	history, err := f.svc.ListByUser(ctx, f.userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("declined charge must not be recorded, got %d purchases", len(history))
	}
}

func TestProcessProviderDeclinedRetriesSameKey(t *testing.T) {
	gateway := &recoveringGateway{declines: 1}
	f := newFixture(t, gateway, 500)
	ctx := context.Background()

	input := ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       "mtn_momo",
		IdempotencyKey: "buy-flaky",
	}

	if _, err := f.svc.Process(ctx, input); !errors.Is(err, ErrProviderDeclined) {
		t.Fatalf("expected provider declined, got %v", err)
	}

	// The retry with the same key consults the gateway again and succeeds.
	res, err := f.svc.Process(ctx, input)
	if err != nil {
		t.Fatalf("retry after decline: %v", err)
	}
	if res.Purchase.Status != StatusConfirmed || res.Voucher.ID == "" {
		t.Fatalf("expected confirmed purchase with voucher, got %+v", res.Purchase)
	}
	if gateway.calls != 2 {
		t.Fatalf("expected gateway consulted twice, got %d", gateway.calls)
	}
}

func TestProcessExternalProviderSuccess(t *testing.T) {
	f := newFixture(t, StaticGateway{}, 500)
	ctx := context.Background()

	res, err := f.svc.Process(ctx, ProcessInput{
		UserID:         f.userID,
		HotspotID:      f.hotspot.ID,
		PlanID:         f.plan.ID,
		Provider:       "airtel_money",
		IdempotencyKey: "buy-momo",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Purchase.Status != StatusConfirmed || res.Voucher.ID == "" {
		t.Fatalf("expected confirmed purchase with voucher, got %+v", res.Purchase)
	}

	// The wallet is untouched by external-provider purchases.
	balance, _ := f.ledger.Balance(ctx, f.userID)
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}
