// Package alerts stores per-user price alerts and fires them when the market
// crosses their thresholds.
package alerts

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which side of the threshold fires the alert.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrInvalidThreshold = errors.New("threshold must be a positive number")
	ErrInvalidDirection = errors.New("direction must be above or below")
)

// Alert is a (coin, threshold, direction) watch owned by a user.
type Alert struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Coin          string          `json:"coin"`
	Threshold     decimal.Decimal `json:"threshold"`
	Direction     Direction       `json:"direction"`
	Repeat        bool            `json:"repeat"`
	Triggered     bool            `json:"triggered"`
	LastTriggered *time.Time      `json:"last_triggered,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Active reports whether the alert is still being watched.
func (a Alert) Active() bool {
	return !a.Triggered || a.Repeat
}

// Evaluate reports whether price fires the alert. Triggered one-shot alerts
// never fire again.
func Evaluate(a Alert, price decimal.Decimal) bool {
	if !a.Active() || !price.IsPositive() {
		return false
	}
	switch a.Direction {
	case Above:
		return price.GreaterThanOrEqual(a.Threshold)
	case Below:
		return price.LessThanOrEqual(a.Threshold)
	default:
		return false
	}
}

// Message is the notification text for a fired alert.
func Message(a Alert, price decimal.Decimal) string {
	return fmt.Sprintf("%s is now %s $%s (Current: $%s)", a.Coin, a.Direction, a.Threshold.String(), price.StringFixed(2))
}

// SuggestThreshold offsets price by pct percent in the alert's direction.
func SuggestThreshold(price decimal.Decimal, dir Direction, pct decimal.Decimal) decimal.Decimal {
	offset := pct.Div(decimal.NewFromInt(100))
	if dir == Below {
		offset = offset.Neg()
	}
	return price.Mul(decimal.NewFromInt(1).Add(offset)).Round(2)
}
