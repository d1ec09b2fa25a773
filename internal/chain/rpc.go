// Package chain reads public Ethereum data for wallet addresses: balances over
// JSON-RPC and transaction history from the Etherscan indexer. Every call
// degrades to demo values or empty results when the upstream is unavailable.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/logging"
)

// RPC is the subset of *ethclient.Client used here.
type RPC interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to an Ethereum JSON-RPC endpoint. An empty url yields a nil
// client, which makes every lookup use its fallback.
func Dial(ctx context.Context, url string) (RPC, error) {
	if url == "" {
		return nil, nil
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return client, nil
}

type token struct {
	contract common.Address
	decimals int32
	fallback string
}

var tokens = map[string]token{
	"USDT": {contract: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), decimals: 6, fallback: "125.50"},
	"USDC": {contract: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), decimals: 6, fallback: "243.78"},
	"LINK": {contract: common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA"), decimals: 18, fallback: "15.25"},
	"UNI":  {contract: common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"), decimals: 18, fallback: "9.57"},
	"DAI":  {contract: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), decimals: 18, fallback: "187.32"},
	"WBTC": {contract: common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), decimals: 8, fallback: "0.0045"},
}

// balanceOf(address)
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// GasPrice holds fee tiers in gwei.
type GasPrice struct {
	Low    decimal.Decimal `json:"low"`
	Medium decimal.Decimal `json:"medium"`
	High   decimal.Decimal `json:"high"`
	Mock   bool            `json:"mock"`
}

// Reader answers balance and gas questions for Ethereum addresses.
type Reader struct {
	rpc    RPC
	logger *slog.Logger
}

// NewReader builds a Reader. rpc may be nil.
func NewReader(rpc RPC, logger *slog.Logger) *Reader {
	return &Reader{rpc: rpc, logger: logging.Component(logger, "chain")}
}

// ETHBalance returns the address's ether balance, or zero when it cannot be read.
func (r *Reader) ETHBalance(ctx context.Context, address string) decimal.Decimal {
	if r.rpc == nil || !common.IsHexAddress(address) {
		return decimal.Zero
	}
	wei, err := r.rpc.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		r.logger.Warn("eth balance lookup failed", slog.String("address", address), slog.Any("error", err))
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// TokenBalances returns ERC-20 balances keyed by symbol. When the RPC client
// is missing or any call fails, the demo table scaled per address is returned.
func (r *Reader) TokenBalances(ctx context.Context, address string) map[string]decimal.Decimal {
	if r.rpc != nil && common.IsHexAddress(address) {
		out, err := r.onChainTokens(ctx, common.HexToAddress(address))
		if err == nil {
			return out
		}
		r.logger.Warn("token balance lookup failed", slog.String("address", address), slog.Any("error", err))
	}
	return DemoTokenBalances(address)
}

func (r *Reader) onChainTokens(ctx context.Context, owner common.Address) (map[string]decimal.Decimal, error) {
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(owner.Bytes(), 32)...)
	out := make(map[string]decimal.Decimal, len(tokens))
	for sym, tk := range tokens {
		contract := tk.contract
		raw, err := r.rpc.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		out[sym] = decimal.NewFromBigInt(new(big.Int).SetBytes(raw), -tk.decimals)
	}
	return out, nil
}

// DemoTokenBalances scales the demo token table by a multiplier in [0.8, 1.3)
// derived from the address characters.
func DemoTokenBalances(address string) map[string]decimal.Decimal {
	sum := 0
	for _, ch := range address {
		sum += int(ch)
	}
	multiplier := decimal.NewFromInt(int64(sum%50)).Div(decimal.NewFromInt(100)).Add(decimal.RequireFromString("0.8"))

	out := make(map[string]decimal.Decimal, len(tokens))
	for sym, tk := range tokens {
		out[sym] = decimal.RequireFromString(tk.fallback).Mul(multiplier).Round(4)
	}
	return out
}

// GasPrice returns low/medium/high tiers around the node's suggested gas price.
func (r *Reader) GasPrice(ctx context.Context) GasPrice {
	fallback := GasPrice{
		Low:    decimal.NewFromInt(25),
		Medium: decimal.NewFromInt(30),
		High:   decimal.NewFromInt(35),
		Mock:   true,
	}
	if r.rpc == nil {
		return fallback
	}
	wei, err := r.rpc.SuggestGasPrice(ctx)
	if err != nil {
		r.logger.Warn("gas price lookup failed", slog.Any("error", err))
		return fallback
	}
	gwei := decimal.NewFromBigInt(wei, 0).Div(decimal.NewFromInt(params.GWei))
	return GasPrice{
		Low:    gwei.Div(decimal.NewFromInt(2)).Round(4),
		Medium: gwei.Round(4),
		High:   gwei.Mul(decimal.NewFromInt(2)).Round(4),
	}
}
