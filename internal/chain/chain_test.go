package chain

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const addr = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

type fakeRPC struct {
	balance *big.Int
	gas     *big.Int
	token   []byte
	err     error
}

func (f fakeRPC) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, f.err
}

func (f fakeRPC) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gas, f.err
}

func (f fakeRPC) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.token, f.err
}

func TestETHBalanceConvertsWei(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	r := NewReader(fakeRPC{balance: wei}, nil)
	if got := r.ETHBalance(context.Background(), addr); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("expected 1.5, got %s", got)
	}
}

func TestETHBalanceFallsBackToZero(t *testing.T) {
	r := NewReader(fakeRPC{err: errors.New("rpc down")}, nil)
	if got := r.ETHBalance(context.Background(), addr); !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
	if got := NewReader(nil, nil).ETHBalance(context.Background(), addr); !got.IsZero() {
		t.Fatalf("expected zero without client, got %s", got)
	}
}

func TestGasPriceTiers(t *testing.T) {
	r := NewReader(fakeRPC{gas: big.NewInt(20_000_000_000)}, nil)
	gp := r.GasPrice(context.Background())
	if !gp.Low.Equal(decimal.NewFromInt(10)) || !gp.Medium.Equal(decimal.NewFromInt(20)) || !gp.High.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected tiers %+v", gp)
	}

	fb := NewReader(nil, nil).GasPrice(context.Background())
	if !fb.Mock || !fb.Medium.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected fallback %+v", fb)
	}
}

func TestTokenBalancesOnChain(t *testing.T) {
	raw := common.LeftPadBytes(big.NewInt(2_500_000).Bytes(), 32)
	r := NewReader(fakeRPC{token: raw}, nil)
	got := r.TokenBalances(context.Background(), addr)
	if !got["USDT"].Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected 2.5 USDT, got %s", got["USDT"])
	}
}

func TestDemoTokenBalancesScalePerAddress(t *testing.T) {
	got := NewReader(nil, nil).TokenBalances(context.Background(), addr)
	if len(got) != 6 {
		t.Fatalf("expected 6 tokens, got %d", len(got))
	}
	ratio := got["USDT"].Div(decimal.RequireFromString("125.50"))
	if ratio.LessThan(decimal.RequireFromString("0.79")) || ratio.GreaterThan(decimal.RequireFromString("1.3")) {
		t.Fatalf("multiplier out of range: %s", ratio)
	}
	again := DemoTokenBalances(addr)
	if !again["DAI"].Equal(got["DAI"]) {
		t.Fatalf("expected deterministic balances")
	}
}

func TestTransactionsMergesAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case "txlist":
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"hash":"0xaa","timeStamp":"1700000000","from":"0x1","to":"0x2","value":"1000000000000000000","blockNumber":"10","confirmations":"5","isError":"0"}]}`))
		case "tokentx":
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":[{"hash":"0xbb","timeStamp":"1700000500","from":"0x2","to":"0x1","value":"2500000","tokenSymbol":"USDC","tokenDecimal":"6","blockNumber":"11","confirmations":"4"}]}`))
		}
	}))
	defer srv.Close()

	e := NewExplorer(srv.URL, "key", time.Second, nil)
	txs := e.Transactions(context.Background(), addr)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(txs))
	}
	if txs[0].Hash != "0xbb" || !txs[0].Value.Equal(decimal.RequireFromString("2.5")) || txs[0].Symbol != "USDC" {
		t.Fatalf("unexpected newest transfer %+v", txs[0])
	}
	if !txs[1].Value.Equal(decimal.NewFromInt(1)) || txs[1].Symbol != "ETH" {
		t.Fatalf("unexpected ether transfer %+v", txs[1])
	}
}

func TestTransactionsRetriesThenGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewExplorer(srv.URL, "key", time.Second, nil)
	e.step = time.Millisecond
	if txs := e.Transactions(context.Background(), addr); len(txs) != 0 {
		t.Fatalf("expected no transfers, got %d", len(txs))
	}
	if calls.Load() != 6 {
		t.Fatalf("expected 3 attempts per action, got %d calls", calls.Load())
	}
}

func TestTransactionsWithoutKeyIsEmpty(t *testing.T) {
	e := NewExplorer("http://127.0.0.1:1", "", time.Second, nil)
	if txs := e.Transactions(context.Background(), addr); txs != nil {
		t.Fatalf("expected nil, got %v", txs)
	}
}
