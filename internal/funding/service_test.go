package funding

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/market"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

type fixedPrices map[string]string

func (p fixedPrices) Quote(_ context.Context, symbol string) (market.Quote, error) {
	price, ok := p[symbol]
	if !ok {
		return market.Quote{Symbol: symbol, Price: decimal.Zero, Mock: true}, nil
	}
	return market.Quote{Symbol: symbol, Price: decimal.RequireFromString(price)}, nil
}

func newTestService(t *testing.T) (*Service, *wallet.Service, *history.Service) {
	t.Helper()
	sealer, err := wallet.NewSealer("test", 1<<10)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	led := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led, sealer, nil, logging.Discard())
	hist := history.NewService(history.NewMemoryRepository(), nil, logging.Discard())
	svc, err := NewService(led, wallets, fixedPrices{"BTC": "60000", "ETH": "2500"}, NewStaticRamp(), hist, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, wallets, hist
}

func TestServiceBuyByUSD(t *testing.T) {
	ctx := context.Background()
	svc, wallets, hist := newTestService(t)
	w, err := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	res, err := svc.Buy(ctx, TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "btc", USDAmount: "300", CardNumber: "4111 1111 1111 1111", ClientTxID: "dup"})
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !res.Amount.Equal(decimal.RequireFromString("0.005")) {
		t.Fatalf("expected 0.005 BTC, got %s", res.Amount)
	}
	if !res.WalletBalance.Equal(decimal.RequireFromString("0.055")) || res.RampReference == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	// Replaying the same client id is idempotent.
	again, err := svc.Buy(ctx, TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "BTC", USDAmount: "300", ClientTxID: "dup"})
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !again.WalletBalance.Equal(res.WalletBalance) {
		t.Fatalf("duplicate changed balance: %s", again.WalletBalance)
	}

	recs, _ := hist.List(ctx, history.ListInput{WalletID: w.ID, Filter: history.Filter{Type: history.TypeBuy}})
	if len(recs) != 1 || !recs[0].FiatAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("unexpected history %+v", recs)
	}
}

func TestServiceSellByCoinAmount(t *testing.T) {
	ctx := context.Background()
	svc, wallets, _ := newTestService(t)
	w, _ := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})

	res, err := svc.Sell(ctx, TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", Amount: "0.2"})
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !res.USDAmount.Equal(decimal.NewFromInt(500)) || !res.WalletBalance.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := svc.Sell(ctx, TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", Amount: "10"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestServiceRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc, wallets, _ := newTestService(t)
	w, _ := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	base := TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "BTC"}

	cases := []struct {
		name string
		mod  func(*TradeInput)
		want error
	}{
		{"no amount", func(in *TradeInput) {}, ErrAmountRequired},
		{"both amounts", func(in *TradeInput) { in.Amount, in.USDAmount = "1", "1" }, ErrAmbiguousAmount},
		{"negative", func(in *TradeInput) { in.USDAmount = "-5" }, ErrInvalidAmount},
		{"no price", func(in *TradeInput) { in.Coin, in.Amount = "LINK", "1" }, ErrPriceUnavailable},
	}
	for _, tc := range cases {
		in := base
		tc.mod(&in)
		if _, err := svc.Buy(ctx, in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	if _, err := svc.Buy(ctx, TradeInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "BTC", USDAmount: "10", CardNumber: "12ab"}); err == nil {
		t.Fatalf("expected card validation error")
	}
}

// chargeLog counts distinct charges, treating a repeated key as one charge.
type chargeLog struct {
	*StaticRamp
	charges map[string]int
}

func (c *chargeLog) AuthorizeBuy(ctx context.Context, in BuyAuthorization) (AuthorizationDecision, error) {
	c.charges[in.IdempotencyKey]++
	return c.StaticRamp.AuthorizeBuy(ctx, in)
}

func TestServiceBuyRetryReusesRampCharge(t *testing.T) {
	ctx := context.Background()
	sealer, err := wallet.NewSealer("test", 1<<10)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	led := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led, sealer, nil, logging.Discard())
	ramp := &chargeLog{StaticRamp: NewStaticRamp(), charges: map[string]int{}}
	svc, err := NewService(led, wallets, fixedPrices{"BTC": "60000"}, ramp, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	alice, _ := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})
	bob, _ := wallets.Create(ctx, wallet.CreateInput{OwnerID: uuid.NewString()})

	in := TradeInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "BTC", USDAmount: "60", ClientTxID: "order-1"}
	first, err := svc.Buy(ctx, in)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	again, err := svc.Buy(ctx, in)
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if again.RampReference != first.RampReference {
		t.Fatalf("retry produced a new ramp charge %q != %q", again.RampReference, first.RampReference)
	}
	if len(ramp.charges) != 1 {
		t.Fatalf("expected one distinct charge, got %v", ramp.charges)
	}

	// Another wallet may reuse the same client id.
	if _, err := svc.Buy(ctx, TradeInput{OwnerID: bob.OwnerID, WalletID: bob.ID, Coin: "BTC", USDAmount: "60", ClientTxID: "order-1"}); err != nil {
		t.Fatalf("bob buy with the same client id: %v", err)
	}
	if len(ramp.charges) != 2 {
		t.Fatalf("expected bob's charge to be distinct, got %v", ramp.charges)
	}
}
