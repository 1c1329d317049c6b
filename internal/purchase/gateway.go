package purchase

import (
	"context"

	"github.com/google/uuid"
)

// Gateway represents a connector to an external mobile-money processor. The
// charge reference carries the purchase idempotency key so providers can
// deduplicate retried charges on their side.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ChargeRequest encapsulates details for an external charge authorization.
type ChargeRequest struct {
	Provider  string
	UserID    string
	Amount    int64
	Reference string
}

// ChargeResult captures the provider's decision.
type ChargeResult struct {
	Reference string
	Approved  bool
	Reason    string
}

// StaticGateway simulates a successful provider integration.
type StaticGateway struct{}

// Charge approves the request with a synthetic reference.
func (StaticGateway) Charge(_ context.Context, _ ChargeRequest) (ChargeResult, error) {
	return ChargeResult{Reference: uuid.NewString(), Approved: true}, nil
}
