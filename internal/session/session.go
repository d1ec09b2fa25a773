// Package session keeps per-user client state between requests: the active
// wallet reference and display preferences.
package session

import (
	"context"
	"errors"
	"strings"
)

// Preferences are the user's display settings.
type Preferences struct {
	Currency          string `json:"currency"`
	Notifications     bool   `json:"notifications"`
	Language          string `json:"language"`
	SkipCoinDetails   bool   `json:"skip_coin_details"`
	HideSmallBalances bool   `json:"hide_small_balances"`
}

// DefaultPreferences is returned for users who never saved any.
func DefaultPreferences() Preferences {
	return Preferences{Currency: "USD", Notifications: true, Language: "en"}
}

// State is everything stored for one user.
type State struct {
	ActiveWalletID string      `json:"active_wallet_id"`
	Preferences    Preferences `json:"preferences"`
}

var supportedCurrencies = map[string]bool{"USD": true, "EUR": true, "GBP": true, "JPY": true}

// Validate normalizes and checks preferences.
func (p *Preferences) Validate() error {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if !supportedCurrencies[p.Currency] {
		return errors.New("currency must be one of USD, EUR, GBP, JPY")
	}
	p.Language = strings.ToLower(strings.TrimSpace(p.Language))
	if p.Language == "" {
		p.Language = "en"
	}
	return nil
}

// Store persists session state.
type Store interface {
	Get(ctx context.Context, userID string) (State, error)
	SetActiveWallet(ctx context.Context, userID, walletID string) error
	SetPreferences(ctx context.Context, userID string, prefs Preferences) error
	// Clear drops the active wallet reference. Preferences survive logout.
	Clear(ctx context.Context, userID string) error
}
