package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

type fixedRates map[string]decimal.Decimal

func (r fixedRates) ExchangeRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	return r[to].Div(r[from]), nil
}

type fixedGas struct{}

func (fixedGas) GasPrice(context.Context) chain.GasPrice {
	return chain.GasPrice{Medium: decimal.NewFromInt(30)}
}

type env struct {
	svc     *Service
	wallets *wallet.Service
	ledger  ledger.Ledger
	history *history.Service
	inbox   notification.Inbox
}

func newEnv(t *testing.T) env {
	t.Helper()
	sealer, err := wallet.NewSealer("test", 1<<10)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	led := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(), led, sealer, nil, logging.Discard())
	hist := history.NewService(history.NewMemoryRepository(), nil, logging.Discard())
	inbox := notification.NewMemoryInbox()
	rates := fixedRates{
		"ETH":  decimal.NewFromInt(2000),
		"USDT": decimal.NewFromInt(1),
		"BTC":  decimal.NewFromInt(60000),
	}
	svc := NewService(led, wallets, rates, fixedGas{}, hist, inbox, logging.Discard())
	return env{svc: svc, wallets: wallets, ledger: led, history: hist, inbox: inbox}
}

func (e env) newWallet(t *testing.T) wallet.Wallet {
	t.Helper()
	w, err := e.wallets.Create(context.Background(), wallet.CreateInput{OwnerID: uuid.NewString()})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

const external = "0x000000000000000000000000000000000000dEaD"

func TestSendRejectsEmptyAmountOrAddressBeforeLedger(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	before := ledger.Snapshot(e.ledger)

	_, err := e.svc.Send(context.Background(), SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: external, Amount: " "})
	if !errors.Is(err, ErrEmptyAmount) {
		t.Fatalf("expected ErrEmptyAmount, got %v", err)
	}
	_, err = e.svc.Send(context.Background(), SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: "", Amount: "0.1"})
	if !errors.Is(err, wallet.ErrEmptyAddress) {
		t.Fatalf("expected ErrEmptyAddress, got %v", err)
	}
	// Empty inputs win even when everything else is wrong too.
	_, err = e.svc.Send(context.Background(), SendInput{Coin: "NOPE", To: "x", Amount: ""})
	if !errors.Is(err, ErrEmptyAmount) {
		t.Fatalf("expected ErrEmptyAmount, got %v", err)
	}

	after := ledger.Snapshot(e.ledger)
	if len(before) != len(after) {
		t.Fatalf("ledger changed")
	}
	for code, bal := range before {
		if after[code] != bal {
			t.Fatalf("balance of %s changed", code)
		}
	}
}

func TestSendValidatesAmountAndAddress(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	ctx := context.Background()

	for _, amt := range []string{"abc", "0", "-1", "0.000000001"} {
		if _, err := e.svc.Send(ctx, SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: external, Amount: amt}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %q: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
	if _, err := e.svc.Send(ctx, SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: "0x123", Amount: "1"}); !errors.Is(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := e.svc.Send(ctx, SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "SOL", To: external, Amount: "1"}); !errors.Is(err, wallet.ErrInvalidAddress) {
		t.Fatalf("expected solana address rejection, got %v", err)
	}
	if _, err := e.svc.Send(ctx, SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: external, Amount: "5"}); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := e.svc.Send(ctx, SendInput{OwnerID: uuid.NewString(), WalletID: w.ID, Coin: "ETH", To: external, Amount: "0.1"}); !errors.Is(err, wallet.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestSendExternalRecordsHistory(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	ctx := context.Background()

	res, err := e.svc.Send(ctx, SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "eth", To: external, Amount: "0.2"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Internal || !res.Balance.Equal(decimal.RequireFromString("1")) {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Record.Type != history.TypeSend || res.Record.Status != history.StatusCompleted || len(res.Record.Hash) != 66 {
		t.Fatalf("unexpected record %+v", res.Record)
	}
	if res.Record.Details != "Sent 0.2 ETH to 0x0000...dEaD" {
		t.Fatalf("unexpected details %q", res.Record.Details)
	}

	msgs, _ := e.inbox.Drain(ctx, w.OwnerID)
	if len(msgs) != 1 || msgs[0].Kind != notification.KindTransferSent {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestSendBetweenLocalWallets(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.newWallet(t), e.newWallet(t)
	ctx := context.Background()

	res, err := e.svc.Send(ctx, SendInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "USDT", To: bob.EVMAddress, Amount: "40"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Internal || !res.Balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected result %+v", res)
	}
	bal, err := e.wallets.Balance(ctx, bob.ID, "USDT")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Amount.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("expected bob to hold 140 USDT, got %s", bal.Amount)
	}

	recs, _ := e.history.List(ctx, history.ListInput{WalletID: bob.ID})
	if len(recs) != 1 || recs[0].Type != history.TypeReceive || recs[0].Hash != res.Record.Hash {
		t.Fatalf("unexpected bob history %+v", recs)
	}
	msgs, _ := e.inbox.Drain(ctx, bob.OwnerID)
	if len(msgs) != 1 || msgs[0].Kind != notification.KindTransferReceived {
		t.Fatalf("unexpected bob notifications %+v", msgs)
	}
}

func TestSendDuplicateClientTxID(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	ctx := context.Background()
	in := SendInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "ETH", To: external, Amount: "0.1", ClientTxID: "tx-1"}
	if _, err := e.svc.Send(ctx, in); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := e.svc.Send(ctx, in); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestSendClientTxIDIsScopedToWallet(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.newWallet(t), e.newWallet(t)
	ctx := context.Background()

	if _, err := e.svc.Send(ctx, SendInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "ETH", To: external, Amount: "0.1", ClientTxID: "order-1"}); err != nil {
		t.Fatalf("alice send: %v", err)
	}
	res, err := e.svc.Send(ctx, SendInput{OwnerID: bob.OwnerID, WalletID: bob.ID, Coin: "ETH", To: external, Amount: "0.1", ClientTxID: "order-1"})
	if err != nil {
		t.Fatalf("bob send with the same client id: %v", err)
	}
	if !res.Balance.Equal(decimal.RequireFromString("1.1")) {
		t.Fatalf("unexpected bob balance %s", res.Balance)
	}
	if _, err := e.svc.SimulateDeposit(ctx, DepositInput{OwnerID: bob.OwnerID, WalletID: bob.ID, Coin: "ETH", Amount: "1", ClientTxID: "order-1"}); err != nil {
		t.Fatalf("deposit with a send's client id: %v", err)
	}
}

type failingHistory struct{}

func (failingHistory) Insert(context.Context, history.Record) error {
	return errors.New("history store down")
}

func (failingHistory) List(context.Context, string, history.Filter) ([]history.Record, error) {
	return nil, nil
}

func TestSendSucceedsWhenHistoryFails(t *testing.T) {
	e := newEnv(t)
	e.svc.history = history.NewService(failingHistory{}, nil, logging.Discard())
	alice, bob := e.newWallet(t), e.newWallet(t)
	ctx := context.Background()

	res, err := e.svc.Send(ctx, SendInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "ETH", To: external, Amount: "0.2", ClientTxID: "tx-h"})
	if err != nil {
		t.Fatalf("send after committed posting returned %v", err)
	}
	if !res.Balance.Equal(decimal.NewFromInt(1)) || res.Record.ID == "" || res.Record.Type != history.TypeSend {
		t.Fatalf("unexpected result %+v", res)
	}
	// A retry with the same client id must not move funds again.
	if _, err := e.svc.Send(ctx, SendInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "ETH", To: external, Amount: "0.2", ClientTxID: "tx-h"}); !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	if _, err := e.svc.Send(ctx, SendInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "USDT", To: bob.EVMAddress, Amount: "10"}); err != nil {
		t.Fatalf("internal send: %v", err)
	}
	if _, err := e.svc.SimulateDeposit(ctx, DepositInput{OwnerID: alice.OwnerID, WalletID: alice.ID, Coin: "ETH", Amount: "1"}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := e.svc.Swap(ctx, SwapInput{OwnerID: alice.OwnerID, WalletID: alice.ID, From: "ETH", To: "USDT", Amount: "0.1"}); err != nil {
		t.Fatalf("swap: %v", err)
	}
}

func TestSimulateDeposit(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	rec, err := e.svc.SimulateDeposit(context.Background(), DepositInput{OwnerID: w.OwnerID, WalletID: w.ID, Coin: "LINK", Amount: "3.5"})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if rec.Type != history.TypeReceive || rec.Counterpart != "external" {
		t.Fatalf("unexpected record %+v", rec)
	}
	bal, _ := e.wallets.Balance(context.Background(), w.ID, "LINK")
	if !bal.Amount.Equal(decimal.RequireFromString("3.5")) {
		t.Fatalf("expected 3.5 LINK, got %s", bal.Amount)
	}
}

func TestQuoteSwap(t *testing.T) {
	e := newEnv(t)
	q, err := e.svc.QuoteSwap(context.Background(), SwapInput{From: "ETH", To: "USDT", Amount: "0.5"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !q.Rate.Equal(decimal.NewFromInt(2000)) || !q.Output.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected quote %+v", q)
	}
	if !q.MinReceived.Equal(decimal.RequireFromString("995")) || !q.Slippage.Equal(DefaultSlippage) {
		t.Fatalf("unexpected min received %s", q.MinReceived)
	}
	if !q.GasFeeETH.Equal(decimal.RequireFromString("0.0003")) {
		t.Fatalf("unexpected gas fee %s", q.GasFeeETH)
	}

	if _, err := e.svc.QuoteSwap(context.Background(), SwapInput{From: "ETH", To: "eth", Amount: "1"}); !errors.Is(err, ErrSameCoin) {
		t.Fatalf("expected ErrSameCoin, got %v", err)
	}
	bad := decimal.NewFromInt(80)
	if _, err := e.svc.QuoteSwap(context.Background(), SwapInput{From: "ETH", To: "BTC", Amount: "1", Slippage: &bad}); !errors.Is(err, ErrInvalidSlippage) {
		t.Fatalf("expected ErrInvalidSlippage, got %v", err)
	}
}

func TestSwapMovesBothHoldings(t *testing.T) {
	e := newEnv(t)
	w := e.newWallet(t)
	one := decimal.NewFromInt(1)
	res, err := e.svc.Swap(context.Background(), SwapInput{OwnerID: w.OwnerID, WalletID: w.ID, From: "USDT", To: "ETH", Amount: "60", Slippage: &one})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !res.FromBalance.Equal(decimal.NewFromInt(40)) || !res.ToBalance.Equal(decimal.RequireFromString("1.23")) {
		t.Fatalf("unexpected balances from=%s to=%s", res.FromBalance, res.ToBalance)
	}
	if res.Record.Type != history.TypeSwap || res.Record.CounterCoin != "ETH" || !res.Record.CounterAmount.Equal(decimal.RequireFromString("0.03")) {
		t.Fatalf("unexpected record %+v", res.Record)
	}
	if !res.Quote.MinReceived.Equal(decimal.RequireFromString("0.0297")) {
		t.Fatalf("unexpected min received %s", res.Quote.MinReceived)
	}
}
