// Package portfolio values a wallet's holdings at market prices.
package portfolio

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/market"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

// SmallBalance is the USD value under which a position counts as dust.
var SmallBalance = decimal.NewFromInt(1)

// Holdings lists a wallet's coin balances.
type Holdings interface {
	Holdings(ctx context.Context, walletID string) ([]wallet.Holding, error)
}

// Quotes prices a coin.
type Quotes interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
}

// Position is one valued holding.
type Position struct {
	Coin       string          `json:"coin"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Price      decimal.Decimal `json:"price"`
	Value      decimal.Decimal `json:"value"`
	Change24h  decimal.Decimal `json:"change_24h"`
	Allocation decimal.Decimal `json:"allocation"`
	Mock       bool            `json:"mock"`
}

// Portfolio is the valued wallet.
type Portfolio struct {
	WalletID    string          `json:"wallet_id"`
	Positions   []Position      `json:"positions"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Change24h   decimal.Decimal `json:"change_24h"`
	ChangeValue decimal.Decimal `json:"change_value"`
}

// Service values wallets.
type Service struct {
	holdings Holdings
	quotes   Quotes
}

func NewService(holdings Holdings, quotes Quotes) *Service {
	return &Service{holdings: holdings, quotes: quotes}
}

// Options tune the valuation.
type Options struct {
	HideSmallBalances bool
}

// Value prices every non-zero holding and computes the value-weighted 24h change.
// Positions are sorted by value, largest first.
func (s *Service) Value(ctx context.Context, walletID string, opts Options) (Portfolio, error) {
	holdings, err := s.holdings.Holdings(ctx, walletID)
	if err != nil {
		return Portfolio{}, err
	}

	p := Portfolio{WalletID: walletID, Positions: []Position{}}
	for _, h := range holdings {
		if h.Units == 0 {
			continue
		}
		q, err := s.quotes.Quote(ctx, h.Coin)
		if err != nil {
			return Portfolio{}, err
		}
		pos := Position{
			Coin:      h.Coin,
			Name:      q.Name,
			Amount:    h.Amount,
			Price:     q.Price,
			Value:     h.Amount.Mul(q.Price).Round(2),
			Change24h: q.Change24h,
			Mock:      q.Mock,
		}
		if opts.HideSmallBalances && pos.Value.LessThan(SmallBalance) {
			continue
		}
		p.Positions = append(p.Positions, pos)
	}

	p.TotalValue, p.Change24h = Summarize(p.Positions)
	previous := decimal.Zero
	for i := range p.Positions {
		previous = previous.Add(previousValue(p.Positions[i]))
		if p.TotalValue.IsPositive() {
			p.Positions[i].Allocation = p.Positions[i].Value.Div(p.TotalValue).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}
	p.ChangeValue = p.TotalValue.Sub(previous).Round(2)

	sort.SliceStable(p.Positions, func(i, j int) bool { return p.Positions[i].Value.GreaterThan(p.Positions[j].Value) })
	return p, nil
}

// Summarize returns the total value and the weighted 24h change in percent:
// (total - previous) / previous * 100, with previous = sum(value / (1 + change/100)).
func Summarize(positions []Position) (total, change decimal.Decimal) {
	previous := decimal.Zero
	for _, pos := range positions {
		total = total.Add(pos.Value)
		previous = previous.Add(previousValue(pos))
	}
	if !previous.IsPositive() {
		return total, decimal.Zero
	}
	change = total.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2)
	return total, change
}

func previousValue(pos Position) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pos.Change24h.Div(decimal.NewFromInt(100)))
	if !factor.IsPositive() {
		return pos.Value
	}
	return pos.Value.Div(factor)
}
