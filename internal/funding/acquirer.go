package funding

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ramp represents a fiat on/off-ramp that settles the dollar side of a trade.
// Implementations must treat a repeated IdempotencyKey as the same charge or
// payout and return the original decision.
type Ramp interface {
	AuthorizeBuy(ctx context.Context, input BuyAuthorization) (AuthorizationDecision, error)
	AuthorizePayout(ctx context.Context, input PayoutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the simulated response from the ramp.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// BuyAuthorization charges the user's card for a purchase.
type BuyAuthorization struct {
	IdempotencyKey string
	CardNumber     string
	Coin           string
	FiatAmount     decimal.Decimal
}

// PayoutAuthorization pays sale proceeds out to the user.
type PayoutAuthorization struct {
	IdempotencyKey string
	Coin           string
	FiatAmount     decimal.Decimal
}

// StaticRamp approves every request with a synthetic reference, remembering
// the reference issued per idempotency key.
type StaticRamp struct {
	mu        sync.Mutex
	decisions map[string]AuthorizationDecision
}

// NewStaticRamp returns an always-approving ramp.
func NewStaticRamp() *StaticRamp {
	return &StaticRamp{decisions: make(map[string]AuthorizationDecision)}
}

func (r *StaticRamp) AuthorizeBuy(_ context.Context, in BuyAuthorization) (AuthorizationDecision, error) {
	return r.approve("buy:" + in.IdempotencyKey), nil
}

func (r *StaticRamp) AuthorizePayout(_ context.Context, in PayoutAuthorization) (AuthorizationDecision, error) {
	return r.approve("payout:" + in.IdempotencyKey), nil
}

func (r *StaticRamp) approve(key string) AuthorizationDecision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.decisions[key]; ok {
		return d
	}
	d := AuthorizationDecision{Reference: uuid.NewString(), Status: "approved"}
	r.decisions[key] = d
	return d
}
