package purchase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Malick44/ZemwifiApp-sub000/internal/catalog"
	"github.com/Malick44/ZemwifiApp-sub000/internal/ledger"
	"github.com/Malick44/ZemwifiApp-sub000/internal/notification"
	"github.com/Malick44/ZemwifiApp-sub000/internal/voucher"
)

// Service orchestrates purchases: it validates the catalog state, secures the
// funds (wallet debit or external provider charge), and has the store commit
// the purchase record and voucher issuance atomically. The service never
// retries on its own; at-most-one financial effect per idempotency key is
// what makes caller-side retries safe.
type Service struct {
	store    Store
	vouchers voucher.Store
	catalog  *catalog.Service
	gateway  Gateway
	notifier notification.Notifier
}

// NewService constructs a purchase orchestrator.
func NewService(store Store, vouchers voucher.Store, cat *catalog.Service, gateway Gateway, notifier notification.Notifier) *Service {
	if gateway == nil {
		gateway = StaticGateway{}
	}
	return &Service{store: store, vouchers: vouchers, catalog: cat, gateway: gateway, notifier: notifier}
}

// ProcessInput captures a buy request.
type ProcessInput struct {
	UserID         string
	HotspotID      string
	PlanID         string
	Provider       string
	IdempotencyKey string
}

// Result bundles the purchase with its voucher when one was issued.
type Result struct {
	Purchase Purchase
	Voucher  voucher.Voucher
}

// Process executes one purchase attempt. Retried calls with the same
// idempotency key return the original purchase without charging or issuing
// again.
func (s *Service) Process(ctx context.Context, input ProcessInput) (Result, error) {
	if input.Provider == "" {
		input.Provider = ProviderWallet
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	}

	if existing, err := s.store.FindByIdempotencyKey(ctx, input.UserID, input.IdempotencyKey); err == nil {
		return s.replay(ctx, existing)
	} else if !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	hotspot, err := s.catalog.GetHotspot(ctx, input.HotspotID)
	if err != nil {
		if errors.Is(err, catalog.ErrHotspotNotFound) {
			return Result{}, ErrHotspotUnavailable
		}
		return Result{}, err
	}
	plan, err := s.catalog.GetPlan(ctx, input.PlanID)
	if err != nil {
		return Result{}, err
	}
	if plan.HotspotID != hotspot.ID {
		return Result{}, fmt.Errorf("plan %s is not sold at hotspot %s: %w", plan.ID, hotspot.ID, catalog.ErrPlanNotFound)
	}
	if !hotspot.Available() {
		return Result{}, ErrHotspotUnavailable
	}

	p := Purchase{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		HotspotID:      input.HotspotID,
		PlanID:         input.PlanID,
		Amount:         plan.Price,
		Provider:       input.Provider,
		Status:         StatusPending,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}

	if input.Provider != ProviderWallet {
		decision, err := s.gateway.Charge(ctx, ChargeRequest{
			Provider:  input.Provider,
			UserID:    input.UserID,
			Amount:    plan.Price,
			Reference: input.IdempotencyKey,
		})
		if err != nil {
			return Result{}, err
		}
		if !decision.Approved {
			// A declined charge had no financial effect, so nothing is
			// recorded under the key and the caller may retry it once the
			// payment method works again.
			p.Status = StatusFailed
			p.FailureReason = failureReason(ReasonProviderDeclined, decision.Reason)
			return Result{Purchase: p}, ErrProviderDeclined
		}
		p.ProviderRef = decision.Reference
	}

	confirmed, v, err := s.store.Confirm(ctx, p, plan.Duration)
	switch {
	case err == nil:
		s.notify(ctx, confirmed)
		return Result{Purchase: confirmed, Voucher: v}, nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		p.FailureReason = ReasonInsufficientFunds
		failed, ferr := s.store.RecordFailure(ctx, p)
		if ferr != nil {
			return Result{}, ferr
		}
		return Result{Purchase: failed}, ledger.ErrInsufficientFunds
	case errors.Is(err, ErrDuplicatePurchase):
		// A concurrent retry won the key; surface its outcome.
		original, ferr := s.store.FindByIdempotencyKey(ctx, input.UserID, input.IdempotencyKey)
		if ferr != nil {
			return Result{}, ferr
		}
		return s.replay(ctx, original)
	default:
		return Result{}, err
	}
}

// Get fetches a purchase for the owning user.
func (s *Service) Get(ctx context.Context, userID, purchaseID string) (Result, error) {
	p, err := s.store.Get(ctx, purchaseID)
	if err != nil {
		return Result{}, err
	}
	if p.UserID != userID {
		return Result{}, ErrNotFound
	}
	return s.resultFor(ctx, p), nil
}

// ListByUser returns the user's purchase history.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Purchase, error) {
	return s.store.ListByUser(ctx, userID)
}

// replay reproduces the outcome recorded under an idempotency key: a
// confirmed purchase returns its voucher, a recorded failure re-surfaces the
// original error so retries observe the same response shape.
func (s *Service) replay(ctx context.Context, p Purchase) (Result, error) {
	res := s.resultFor(ctx, p)
	if p.Status == StatusFailed && p.FailureReason == ReasonInsufficientFunds {
		return res, ledger.ErrInsufficientFunds
	}
	return res, nil
}

func (s *Service) resultFor(ctx context.Context, p Purchase) Result {
	res := Result{Purchase: p}
	if p.Status == StatusConfirmed && p.VoucherID != "" {
		if v, err := s.vouchers.Get(ctx, p.VoucherID); err == nil {
			res.Voucher = v
		}
	}
	return res
}

func (s *Service) notify(ctx context.Context, p Purchase) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindPurchaseConfirmed,
		Destination: p.UserID,
		Body:        fmt.Sprintf("Purchase %s confirmed for %d", p.ID, p.Amount),
	})
}

func failureReason(kind, detail string) string {
	if detail == "" {
		return kind
	}
	return kind + ":" + detail
}
