package market

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/metrics"
)

const (
	DefaultCacheTTL = 2 * time.Minute
	DefaultTimeout  = 5 * time.Second
)

// Service resolves quotes through cache, providers (in order) and the demo table.
type Service struct {
	cache     Cache
	providers []Provider
	ttl       time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
	jitter    func() float64
}

// NewService builds a quote service. Providers are tried in the order given,
// each bounded by timeout.
func NewService(cache Cache, providers []Provider, ttl, timeout time.Duration, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache(nil)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		cache:     cache,
		providers: providers,
		ttl:       ttl,
		timeout:   timeout,
		logger:    logging.Component(logger, "market"),
		now:       time.Now,
		jitter:    func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Quote returns market data for symbol. It never fails for lack of upstream
// data: when every provider is down a mock quote is served and cached.
func (s *Service) Quote(ctx context.Context, symbol string) (Quote, error) {
	symbol = asset.Normalize(symbol)
	if symbol == "" {
		return Quote{}, asset.ErrUnknownCoin
	}

	if q, ok, err := s.cache.Get(ctx, symbol); err != nil {
		s.logger.Warn("price cache read failed", slog.String("symbol", symbol), slog.Any("error", err))
	} else if ok {
		metrics.PriceLookups.WithLabelValues("cache").Inc()
		return q, nil
	}

	coin, err := asset.Lookup(symbol)
	if err != nil {
		coin = asset.Coin{Symbol: symbol, Name: symbol}
	}

	q, ok := s.fetch(ctx, coin)
	if !ok {
		if err := ctx.Err(); err != nil {
			return Quote{}, err
		}
		q = demoQuote(coin.Symbol, coin.Name, s.jitter)
		s.logger.Warn("serving demo price", slog.String("symbol", symbol), slog.String("price", q.Price.String()))
	}
	q.FetchedAt = s.now().UTC()
	metrics.PriceLookups.WithLabelValues(string(q.Source)).Inc()

	if err := s.cache.Set(ctx, q, s.ttl); err != nil {
		s.logger.Warn("price cache write failed", slog.String("symbol", symbol), slog.Any("error", err))
	}
	return q, nil
}

func (s *Service) fetch(ctx context.Context, coin asset.Coin) (Quote, bool) {
	for _, p := range s.providers {
		if ctx.Err() != nil {
			return Quote{}, false
		}
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		q, err := p.Fetch(callCtx, coin)
		cancel()
		metrics.ProviderLatency.WithLabelValues(string(p.Name())).Observe(time.Since(start).Seconds())

		if err == nil {
			return q, true
		}
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		metrics.ProviderFailures.WithLabelValues(string(p.Name())).Inc()
		s.logger.Warn("price provider failed",
			slog.String("provider", string(p.Name())),
			slog.String("symbol", coin.Symbol),
			slog.Any("error", err),
		)
	}
	return Quote{}, false
}

// Quotes resolves several symbols, preserving order.
func (s *Service) Quotes(ctx context.Context, symbols []string) ([]Quote, error) {
	out := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, err := s.Quote(ctx, sym)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// Price is a shorthand for Quote(...).Price.
func (s *Service) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q, err := s.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Price, nil
}

// ExchangeRate returns to.price / from.price, or 1 when either price is unknown.
func (s *Service) ExchangeRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	fq, err := s.Quote(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}
	tq, err := s.Quote(ctx, to)
	if err != nil {
		return decimal.Zero, err
	}
	if fq.Price.IsZero() || tq.Price.IsZero() {
		s.logger.Warn("exchange rate unavailable", slog.String("from", fq.Symbol), slog.String("to", tq.Symbol))
		return decimal.NewFromInt(1), nil
	}
	return tq.Price.DivRound(fq.Price, 12), nil
}
