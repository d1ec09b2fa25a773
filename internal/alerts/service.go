package alerts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptovault/cryptovault/internal/asset"
	"github.com/cryptovault/cryptovault/internal/logging"
	"github.com/cryptovault/cryptovault/internal/metrics"
	"github.com/cryptovault/cryptovault/internal/notification"
)

// Prices returns the latest USD price of a coin.
type Prices interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Service manages alerts and checks them against live prices.
type Service struct {
	repo     Repository
	prices   Prices
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, prices Prices, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		prices:   prices,
		notifier: notifier,
		logger:   logging.Component(logger, "alerts"),
		now:      time.Now,
	}
}

// CreateInput describes a new alert. Threshold is the raw user input.
type CreateInput struct {
	OwnerID   string
	Coin      string
	Threshold string
	Direction string
	Repeat    bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Alert, error) {
	coin, err := asset.Lookup(in.Coin)
	if err != nil {
		return Alert{}, err
	}
	threshold, err := decimal.NewFromString(strings.TrimSpace(in.Threshold))
	if err != nil || !threshold.IsPositive() {
		return Alert{}, ErrInvalidThreshold
	}
	dir := Direction(strings.ToLower(strings.TrimSpace(in.Direction)))
	if dir != Above && dir != Below {
		return Alert{}, ErrInvalidDirection
	}

	a := Alert{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		Coin:      coin.Symbol,
		Threshold: threshold,
		Direction: dir,
		Repeat:    in.Repeat,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Alert{}, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Alert, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Suggest proposes a threshold pct percent away from the current price.
func (s *Service) Suggest(ctx context.Context, coin, direction string, pct decimal.Decimal) (decimal.Decimal, error) {
	dir := Direction(strings.ToLower(direction))
	if dir != Above && dir != Below {
		return decimal.Zero, ErrInvalidDirection
	}
	price, err := s.prices.Price(ctx, coin)
	if err != nil {
		return decimal.Zero, err
	}
	return SuggestThreshold(price, dir, pct), nil
}

// Fired is an alert that crossed its threshold during a check.
type Fired struct {
	Alert Alert
	Price decimal.Decimal
}

// Check loads active alerts, prices each distinct coin once, and fires every
// alert whose threshold was crossed.
func (s *Service) Check(ctx context.Context) ([]Fired, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		metrics.AlertRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	prices := make(map[string]decimal.Decimal)
	for _, a := range active {
		if _, seen := prices[a.Coin]; seen {
			continue
		}
		p, err := s.prices.Price(ctx, a.Coin)
		if err != nil {
			s.logger.Warn("alert price lookup failed", slog.String("coin", a.Coin), slog.Any("error", err))
			p = decimal.Zero
		}
		prices[a.Coin] = p
	}

	var fired []Fired
	for _, a := range active {
		price := prices[a.Coin]
		if !Evaluate(a, price) {
			continue
		}
		at := s.now().UTC()
		if err := s.repo.MarkTriggered(ctx, a.ID, at); err != nil {
			s.logger.Error("mark alert triggered", slog.String("alert_id", a.ID), slog.Any("error", err))
			continue
		}
		a.Triggered, a.LastTriggered = true, &at
		fired = append(fired, Fired{Alert: a, Price: price})
		metrics.AlertsFired.Inc()

		if s.notifier != nil {
			msg := notification.Message{Kind: notification.KindPriceAlert, Destination: a.OwnerID, Body: Message(a, price)}
			if err := s.notifier.Send(ctx, msg); err != nil {
				s.logger.Warn("alert notification failed", slog.String("alert_id", a.ID), slog.Any("error", err))
			}
		}
	}
	metrics.AlertRuns.WithLabelValues("ok").Inc()
	return fired, nil
}
