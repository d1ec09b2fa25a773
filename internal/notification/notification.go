package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	KindTransferReceived = "transfer_received"
	KindTransferSent     = "transfer_sent"
	KindSwap             = "swap_completed"
	KindBuy              = "buy_completed"
	KindSell             = "sell_completed"
	KindPriceAlert       = "price_alert"
	KindSession          = "session.state_changed"
)

// Message describes a notification payload. Destination is the user id.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Fanout delivers every message to all notifiers, joining their errors.
type Fanout []Notifier

func (f Fanout) Send(ctx context.Context, message Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
