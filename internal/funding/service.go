package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/market"
	"github.com/cryptovault/cryptovault/internal/metrics"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

var (
	// ErrAmountRequired is returned when neither a coin nor a USD amount is given.
	ErrAmountRequired = errors.New("amount or usd_amount is required")
	// ErrAmbiguousAmount is returned when both are given.
	ErrAmbiguousAmount = errors.New("give either amount or usd_amount, not both")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	// ErrPriceUnavailable means no usable price exists for the coin.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// Prices quotes coins in USD.
type Prices interface {
	Quote(ctx context.Context, symbol string) (market.Quote, error)
}

// Service buys and sells coins against the simulated ramp.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	prices   Prices
	ramp     Ramp
	history  *history.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService prepares a funding service.
func NewService(ledgerBackend ledger.Ledger, wallets *wallet.Service, prices Prices, ramp Ramp, hist *history.Service, notifier notification.Notifier, logger *slog.Logger) (*Service, error) {
	if wallets == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price source is required")
	}
	if ramp == nil {
		ramp = NewStaticRamp()
	}
	return &Service{
		ledger:   ledgerBackend,
		wallets:  wallets,
		prices:   prices,
		ramp:     ramp,
		history:  hist,
		notifier: notifier,
		logger:   logging.Component(logger, "funding"),
	}, nil
}

// TradeInput captures a buy or sell request.
type TradeInput struct {
	OwnerID    string
	WalletID   string
	Coin       string
	Amount     string
	USDAmount  string
	CardNumber string
	ClientTxID string
}

// TradeResult represents the domain outcome of a buy or sell.
type TradeResult struct {
	TransactionID string
	Status        string
	Coin          string
	Amount        decimal.Decimal
	USDAmount     decimal.Decimal
	Price         decimal.Decimal
	WalletBalance decimal.Decimal
	RampReference string
	CompletedAt   time.Time
}

type pricedTrade struct {
	coin   asset.Coin
	amount decimal.Decimal
	usd    decimal.Decimal
	price  decimal.Decimal
	units  int64
}

func (s *Service) price(ctx context.Context, in TradeInput) (pricedTrade, error) {
	coinRaw, usdRaw := strings.TrimSpace(in.Amount), strings.TrimSpace(in.USDAmount)
	switch {
	case coinRaw == "" && usdRaw == "":
		return pricedTrade{}, ErrAmountRequired
	case coinRaw != "" && usdRaw != "":
		return pricedTrade{}, ErrAmbiguousAmount
	}
	coin, err := asset.Lookup(in.Coin)
	if err != nil {
		return pricedTrade{}, err
	}
	q, err := s.prices.Quote(ctx, coin.Symbol)
	if err != nil {
		return pricedTrade{}, err
	}
	if !q.Price.IsPositive() {
		return pricedTrade{}, ErrPriceUnavailable
	}

	t := pricedTrade{coin: coin, price: q.Price}
	if coinRaw != "" {
		if t.amount, err = decimal.NewFromString(coinRaw); err != nil {
			return pricedTrade{}, ErrInvalidAmount
		}
		t.amount = t.amount.Truncate(ledger.Decimals)
		t.usd = t.amount.Mul(q.Price).Round(2)
	} else {
		if t.usd, err = decimal.NewFromString(usdRaw); err != nil {
			return pricedTrade{}, ErrInvalidAmount
		}
		t.amount = t.usd.DivRound(q.Price, ledger.Decimals+4).Truncate(ledger.Decimals)
	}
	if !t.amount.IsPositive() || !t.usd.IsPositive() {
		return pricedTrade{}, ErrInvalidAmount
	}
	if t.units, err = ledger.ToUnits(t.amount); err != nil {
		return pricedTrade{}, ErrInvalidAmount
	}
	return t, nil
}

// Buy charges the ramp in USD and credits coin to the wallet at the spot price.
func (s *Service) Buy(ctx context.Context, in TradeInput) (TradeResult, error) {
	if in.CardNumber != "" {
		if err := validateCardNumber(in.CardNumber); err != nil {
			return TradeResult{}, err
		}
	}
	t, err := s.price(ctx, in)
	if err != nil {
		return TradeResult{}, err
	}
	w, err := s.wallets.Authorize(ctx, in.OwnerID, in.WalletID)
	if err != nil {
		return TradeResult{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}
	txID := ledger.ScopedTxID(w.ID, in.ClientTxID)

	// The ramp sees the same key on a retry, so a replayed buy is not charged twice.
	decision, err := s.ramp.AuthorizeBuy(ctx, BuyAuthorization{IdempotencyKey: txID, CardNumber: in.CardNumber, Coin: t.coin.Symbol, FiatAmount: t.usd})
	if err != nil {
		return TradeResult{}, err
	}

	posting, err := s.ledger.Deposit(ctx, ledger.WalletAccount(w.ID, t.coin.Symbol), ledger.KindBuy, txID, t.units)
	result := s.result(t, posting, decision)
	if err != nil {
		return result, err
	}
	s.record(ctx, w, history.TypeBuy, t, fmt.Sprintf("Bought %s %s for $%s", t.amount.String(), t.coin.Symbol, t.usd.StringFixed(2)))
	return result, nil
}

// Sell debits coin from the wallet and pays the USD value out through the ramp.
func (s *Service) Sell(ctx context.Context, in TradeInput) (TradeResult, error) {
	t, err := s.price(ctx, in)
	if err != nil {
		return TradeResult{}, err
	}
	w, err := s.wallets.Authorize(ctx, in.OwnerID, in.WalletID)
	if err != nil {
		return TradeResult{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	txID := ledger.ScopedTxID(w.ID, in.ClientTxID)

	posting, err := s.ledger.Withdraw(ctx, ledger.WalletAccount(w.ID, t.coin.Symbol), ledger.KindSell, txID, t.units)
	if err != nil {
		return s.result(t, posting, AuthorizationDecision{}), err
	}
	decision, err := s.ramp.AuthorizePayout(ctx, PayoutAuthorization{IdempotencyKey: txID, Coin: t.coin.Symbol, FiatAmount: t.usd})
	if err != nil {
		return TradeResult{}, err
	}
	s.record(ctx, w, history.TypeSell, t, fmt.Sprintf("Sold %s %s for $%s", t.amount.String(), t.coin.Symbol, t.usd.StringFixed(2)))
	return s.result(t, posting, decision), nil
}

func (s *Service) result(t pricedTrade, posting ledger.PostingResult, decision AuthorizationDecision) TradeResult {
	return TradeResult{
		TransactionID: posting.TransactionID,
		Status:        posting.Status,
		Coin:          t.coin.Symbol,
		Amount:        t.amount,
		USDAmount:     t.usd,
		Price:         t.price,
		WalletBalance: ledger.FromUnits(posting.WalletBalance),
		RampReference: decision.Reference,
		CompletedAt:   time.Now().UTC(),
	}
}

func (s *Service) record(ctx context.Context, w wallet.Wallet, typ string, t pricedTrade, details string) {
	metrics.SimulatedTransactions.WithLabelValues(typ).Inc()
	if s.history != nil {
		if _, err := s.history.Record(ctx, history.Record{
			OwnerID:    w.OwnerID,
			WalletID:   w.ID,
			Type:       typ,
			Coin:       t.coin.Symbol,
			Amount:     t.amount,
			FiatAmount: t.usd,
			Details:    details,
		}); err != nil {
			s.logger.Error("record trade", slog.String("wallet_id", w.ID), slog.Any("error", err))
		}
	}
	if s.notifier != nil {
		kind := notification.KindBuy
		if typ == history.TypeSell {
			kind = notification.KindSell
		}
		if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: w.OwnerID, Body: details}); err != nil {
			s.logger.Warn("notification failed", slog.Any("error", err))
		}
	}
}

func validateCardNumber(card string) error {
	digits := strings.ReplaceAll(card, " ", "")
	if len(digits) < 12 || len(digits) > 19 {
		return fmt.Errorf("card number must be between 12 and 19 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("card number must be numeric")
		}
	}
	return nil
}
