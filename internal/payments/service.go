package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/history"
	"github.com/cryptovault/cryptovault/internal/ledger"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/metrics"
	"github.com/cryptovault/cryptovault/internal/notification"
	"github.com/cryptovault/cryptovault/internal/wallet"
)

var (
	// ErrEmptyAmount is returned before anything else when no amount was entered.
	ErrEmptyAmount = errors.New("amount is required")
	// ErrInvalidAmount rejects unparsable, zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrSameCoin rejects swapping a coin into itself.
	ErrSameCoin = errors.New("cannot swap a coin for itself")
	// ErrInvalidSlippage rejects slippage outside [0, 50] percent.
	ErrInvalidSlippage = errors.New("slippage must be between 0 and 50 percent")
)

// DefaultSlippage is applied when a swap request leaves slippage unset.
var DefaultSlippage = decimal.RequireFromString("0.5")

// baseSwapGas is the ether spent by a swap at 100 gwei.
var baseSwapGas = decimal.RequireFromString("0.001")

// Rates converts between coins.
type Rates interface {
	// ExchangeRate returns to.price / from.price.
	ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// GasOracle reports current fee tiers.
type GasOracle interface {
	GasPrice(ctx context.Context) chain.GasPrice
}

// Service runs the simulated send, deposit and swap flows.
type Service struct {
	ledger   ledger.Ledger
	wallets  *wallet.Service
	rates    Rates
	gas      GasOracle
	history  *history.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a payment service.
func NewService(ledger ledger.Ledger, wallets *wallet.Service, rates Rates, gas GasOracle, history *history.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		ledger:   ledger,
		wallets:  wallets,
		rates:    rates,
		gas:      gas,
		history:  history,
		notifier: notifier,
		logger:   logging.Component(logger, "payments"),
	}
}

// SendInput captures a send request. Amount is the user's raw input.
type SendInput struct {
	OwnerID    string
	WalletID   string
	Coin       string
	To         string
	Amount     string
	ClientTxID string
}

// SendResult describes a completed send.
type SendResult struct {
	Record  history.Record
	Balance decimal.Decimal
	// Internal is set when the recipient is another wallet on this service.
	Internal bool
}

// ParseAmount validates a user-entered amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

func toUnits(amount decimal.Decimal) (int64, error) {
	units, err := ledger.ToUnits(amount)
	if err != nil || units == 0 {
		return 0, ErrInvalidAmount
	}
	return units, nil
}

// Send moves coin out of the wallet. A recipient address belonging to another
// local wallet is credited directly; any other address is treated as external.
func (s *Service) Send(ctx context.Context, in SendInput) (SendResult, error) {
	if strings.TrimSpace(in.Amount) == "" {
		return SendResult{}, ErrEmptyAmount
	}
	to := strings.TrimSpace(in.To)
	if to == "" {
		return SendResult{}, wallet.ErrEmptyAddress
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return SendResult{}, err
	}
	coin, err := asset.Lookup(in.Coin)
	if err != nil {
		return SendResult{}, err
	}
	if err := wallet.ValidateAddress(coin.Symbol, to); err != nil {
		return SendResult{}, err
	}
	units, err := toUnits(amount)
	if err != nil {
		return SendResult{}, err
	}

	from, err := s.wallets.Authorize(ctx, in.OwnerID, in.WalletID)
	if err != nil {
		return SendResult{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}
	fromCode := ledger.WalletAccount(from.ID, coin.Symbol)

	var (
		balance   int64
		recipient wallet.Wallet
		internal  bool
	)
	if rcpt, err := s.wallets.FindByAddress(ctx, to); err == nil && rcpt.ID != from.ID {
		recipient, internal = rcpt, true
		res, err := s.ledger.Transfer(ctx, fromCode, ledger.WalletAccount(rcpt.ID, coin.Symbol), ledger.KindTransfer, ledger.ScopedTxID(from.ID, in.ClientTxID), units)
		if err != nil {
			return SendResult{}, err
		}
		balance = res.FromBalance
	} else {
		res, err := s.ledger.Withdraw(ctx, fromCode, ledger.KindSend, ledger.ScopedTxID(from.ID, in.ClientTxID), units)
		if err != nil {
			return SendResult{}, err
		}
		balance = res.WalletBalance
	}

	hash := history.NewHash(in.ClientTxID, from.ID, to)
	rec := s.record(ctx, history.Record{
		OwnerID:     from.OwnerID,
		WalletID:    from.ID,
		Type:        history.TypeSend,
		Coin:        coin.Symbol,
		Amount:      amount,
		Counterpart: to,
		Hash:        hash,
		Details:     fmt.Sprintf("Sent %s %s to %s", amount.String(), coin.Symbol, history.ShortAddress(to)),
	})
	metrics.SimulatedTransactions.WithLabelValues(history.TypeSend).Inc()

	if internal {
		fromAddr, _ := wallet.ReceiveAddress(from, coin.Symbol)
		s.record(ctx, history.Record{
			OwnerID:     recipient.OwnerID,
			WalletID:    recipient.ID,
			Type:        history.TypeReceive,
			Coin:        coin.Symbol,
			Amount:      amount,
			Counterpart: fromAddr,
			Hash:        hash,
			Details:     fmt.Sprintf("Received %s %s from %s", amount.String(), coin.Symbol, history.ShortAddress(fromAddr)),
		})
		s.notify(ctx, notification.KindTransferReceived, recipient.OwnerID,
			fmt.Sprintf("You received %s %s", amount.String(), coin.Symbol))
	}
	s.notify(ctx, notification.KindTransferSent, from.OwnerID, rec.Details)

	s.logger.Info("send completed",
		slog.String("wallet_id", from.ID),
		slog.String("coin", coin.Symbol),
		slog.String("amount", amount.String()),
		slog.Bool("internal", internal),
	)
	return SendResult{Record: rec, Balance: ledger.FromUnits(balance), Internal: internal}, nil
}

// DepositInput simulates an incoming transfer from an outside address.
type DepositInput struct {
	OwnerID    string
	WalletID   string
	Coin       string
	Amount     string
	From       string
	ClientTxID string
}

// SimulateDeposit credits coin to the wallet as if it arrived from From.
func (s *Service) SimulateDeposit(ctx context.Context, in DepositInput) (history.Record, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return history.Record{}, err
	}
	coin, err := asset.Lookup(in.Coin)
	if err != nil {
		return history.Record{}, err
	}
	units, err := toUnits(amount)
	if err != nil {
		return history.Record{}, err
	}
	w, err := s.wallets.Authorize(ctx, in.OwnerID, in.WalletID)
	if err != nil {
		return history.Record{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}
	if _, err := s.ledger.Deposit(ctx, ledger.WalletAccount(w.ID, coin.Symbol), ledger.KindReceive, ledger.ScopedTxID(w.ID, in.ClientTxID), units); err != nil {
		return history.Record{}, err
	}

	from := strings.TrimSpace(in.From)
	if from == "" {
		from = "external"
	}
	rec := s.record(ctx, history.Record{
		OwnerID:     w.OwnerID,
		WalletID:    w.ID,
		Type:        history.TypeReceive,
		Coin:        coin.Symbol,
		Amount:      amount,
		Counterpart: from,
		Details:     fmt.Sprintf("Received %s %s from %s", amount.String(), coin.Symbol, history.ShortAddress(from)),
	})
	metrics.SimulatedTransactions.WithLabelValues(history.TypeReceive).Inc()
	s.notify(ctx, notification.KindTransferReceived, w.OwnerID, rec.Details)
	return rec, nil
}

// Receive returns the wallet's deposit address and QR code for coin.
func (s *Service) Receive(ctx context.Context, ownerID, walletID, coin string) (wallet.ReceiveInfo, error) {
	return s.wallets.Receive(ctx, ownerID, walletID, coin)
}

// SwapInput describes a swap or swap quote.
type SwapInput struct {
	OwnerID    string
	WalletID   string
	From       string
	To         string
	Amount     string
	Slippage   *decimal.Decimal
	ClientTxID string
}

// SwapQuote prices a swap without executing it.
type SwapQuote struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	Rate        decimal.Decimal `json:"rate"`
	Output      decimal.Decimal `json:"output"`
	MinReceived decimal.Decimal `json:"min_received"`
	Slippage    decimal.Decimal `json:"slippage"`
	GasFeeETH   decimal.Decimal `json:"gas_fee_eth"`
}

// SwapResult is an executed swap.
type SwapResult struct {
	Quote       SwapQuote
	Record      history.Record
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// QuoteSwap prices a swap of Amount From into To. Rate is To received per From.
func (s *Service) QuoteSwap(ctx context.Context, in SwapInput) (SwapQuote, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return SwapQuote{}, err
	}
	from, err := asset.Lookup(in.From)
	if err != nil {
		return SwapQuote{}, err
	}
	to, err := asset.Lookup(in.To)
	if err != nil {
		return SwapQuote{}, err
	}
	if from.Symbol == to.Symbol {
		return SwapQuote{}, ErrSameCoin
	}
	slippage := DefaultSlippage
	if in.Slippage != nil {
		slippage = *in.Slippage
	}
	if slippage.IsNegative() || slippage.GreaterThan(decimal.NewFromInt(50)) {
		return SwapQuote{}, ErrInvalidSlippage
	}

	// ExchangeRate(a, b) is b.price/a.price, so asking for (to, from) yields
	// how many To one From buys.
	rate, err := s.rates.ExchangeRate(ctx, to.Symbol, from.Symbol)
	if err != nil {
		return SwapQuote{}, err
	}
	output := amount.Mul(rate).Truncate(ledger.Decimals)
	hundred := decimal.NewFromInt(100)
	minReceived := output.Mul(hundred.Sub(slippage)).Div(hundred).Truncate(ledger.Decimals)

	gasFee := decimal.Zero
	if s.gas != nil {
		gp := s.gas.GasPrice(ctx)
		gasFee = baseSwapGas.Mul(gp.Medium).Div(hundred).Round(6)
	}

	return SwapQuote{
		From:        from.Symbol,
		To:          to.Symbol,
		Amount:      amount,
		Rate:        rate,
		Output:      output,
		MinReceived: minReceived,
		Slippage:    slippage,
		GasFeeETH:   gasFee,
	}, nil
}

// Swap exchanges one holding for another at the current rate.
func (s *Service) Swap(ctx context.Context, in SwapInput) (SwapResult, error) {
	q, err := s.QuoteSwap(ctx, in)
	if err != nil {
		return SwapResult{}, err
	}
	sold, err := toUnits(q.Amount)
	if err != nil {
		return SwapResult{}, err
	}
	bought, err := toUnits(q.Output)
	if err != nil {
		return SwapResult{}, err
	}
	w, err := s.wallets.Authorize(ctx, in.OwnerID, in.WalletID)
	if err != nil {
		return SwapResult{}, err
	}
	if in.ClientTxID == "" {
		in.ClientTxID = uuid.NewString()
	}

	res, err := s.ledger.Exchange(ctx, ledger.WalletAccount(w.ID, q.From), ledger.WalletAccount(w.ID, q.To), ledger.ScopedTxID(w.ID, in.ClientTxID), sold, bought)
	if err != nil {
		return SwapResult{}, err
	}

	rec := s.record(ctx, history.Record{
		OwnerID:       w.OwnerID,
		WalletID:      w.ID,
		Type:          history.TypeSwap,
		Coin:          q.From,
		Amount:        q.Amount,
		CounterCoin:   q.To,
		CounterAmount: q.Output,
		Details:       fmt.Sprintf("Swapped %s %s for %s %s", q.Amount.String(), q.From, q.Output.String(), q.To),
	})
	metrics.SimulatedTransactions.WithLabelValues(history.TypeSwap).Inc()
	s.notify(ctx, notification.KindSwap, w.OwnerID, rec.Details)

	return SwapResult{
		Quote:       q,
		Record:      rec,
		FromBalance: ledger.FromUnits(res.FromBalance),
		ToBalance:   ledger.FromUnits(res.ToBalance),
	}, nil
}

// record stores rec once its posting has committed. A storage failure is
// logged rather than returned so the caller is not told the transfer failed.
func (s *Service) record(ctx context.Context, rec history.Record) history.Record {
	stored, err := s.history.Record(ctx, rec)
	if err != nil {
		s.logger.Error("record history",
			slog.String("wallet_id", rec.WalletID),
			slog.String("type", rec.Type),
			slog.Any("error", err),
		)
		return s.history.Prepare(rec)
	}
	return stored
}

func (s *Service) notify(ctx context.Context, kind, userID, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: userID, Body: body}); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
