// Package asset lists the coins the wallet understands and how each maps onto
// market-data providers and address formats.
package asset

import (
	"errors"
	"sort"
	"strings"
)

// Family identifies the address format a coin's receive address uses.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
	// FamilyNative covers coins whose own chain is simulated; they share the EVM address.
	FamilyNative Family = "native"
)

// ErrUnknownCoin is returned for symbols outside the catalog.
var ErrUnknownCoin = errors.New("unsupported coin")

// Coin describes a supported asset.
type Coin struct {
	Symbol      string
	Name        string
	Family      Family
	CoinGeckoID string
	CoinCapID   string
	Stable      bool
}

var catalog = map[string]Coin{
	"BTC":  {Symbol: "BTC", Name: "Bitcoin", Family: FamilyNative, CoinGeckoID: "bitcoin", CoinCapID: "bitcoin"},
	"ETH":  {Symbol: "ETH", Name: "Ethereum", Family: FamilyEVM, CoinGeckoID: "ethereum", CoinCapID: "ethereum"},
	"TON":  {Symbol: "TON", Name: "Toncoin", Family: FamilyNative, CoinGeckoID: "the-open-network", CoinCapID: "ton"},
	"TRX":  {Symbol: "TRX", Name: "TRON", Family: FamilyNative, CoinGeckoID: "tron", CoinCapID: "tron"},
	"SOL":  {Symbol: "SOL", Name: "Solana", Family: FamilySolana, CoinGeckoID: "solana", CoinCapID: "solana"},
	"XRP":  {Symbol: "XRP", Name: "Ripple", Family: FamilyNative, CoinGeckoID: "ripple", CoinCapID: "xrp"},
	"USDT": {Symbol: "USDT", Name: "Tether", Family: FamilyEVM, CoinGeckoID: "tether", CoinCapID: "tether", Stable: true},
	"USDC": {Symbol: "USDC", Name: "USD Coin", Family: FamilyEVM, CoinGeckoID: "usd-coin", CoinCapID: "usd-coin", Stable: true},
	"LINK": {Symbol: "LINK", Name: "Chainlink", Family: FamilyEVM, CoinGeckoID: "chainlink", CoinCapID: "chainlink"},
	"UNI":  {Symbol: "UNI", Name: "Uniswap", Family: FamilyEVM, CoinGeckoID: "uniswap", CoinCapID: "uniswap"},
	"DAI":  {Symbol: "DAI", Name: "Dai", Family: FamilyEVM, CoinGeckoID: "dai", CoinCapID: "multi-collateral-dai", Stable: true},
	"WBTC": {Symbol: "WBTC", Name: "Wrapped Bitcoin", Family: FamilyEVM, CoinGeckoID: "wrapped-bitcoin", CoinCapID: "wrapped-bitcoin"},
}

// Normalize upper-cases and trims a symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Lookup returns the catalog entry for symbol (case-insensitive).
func Lookup(symbol string) (Coin, error) {
	coin, ok := catalog[Normalize(symbol)]
	if !ok {
		return Coin{}, ErrUnknownCoin
	}
	return coin, nil
}

// Supported reports whether symbol is in the catalog.
func Supported(symbol string) bool {
	_, ok := catalog[Normalize(symbol)]
	return ok
}

// Symbols returns every supported symbol in alphabetical order.
func Symbols() []string {
	out := make([]string, 0, len(catalog))
	for sym := range catalog {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
